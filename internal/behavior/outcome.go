package behavior

// Outcome is the binary result of evaluating a node.
type Outcome int

const (
	// Failure is the zero Outcome.
	Failure Outcome = iota
	Success
)

// OutcomeOf converts a callback result to an Outcome.
func OutcomeOf(ok bool) Outcome {
	if ok {
		return Success
	}
	return Failure
}

// Succeeded reports whether o is Success.
func (o Outcome) Succeeded() bool {
	return o == Success
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "invalid"
	}
}
