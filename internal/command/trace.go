package command

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeycumines/behave/internal/behavior"
)

// printTrace writes ended spans as an indented tree, children in start
// order. labels maps node IDs (as rendered by NodeID.String) to display
// names.
func printTrace(w io.Writer, spans []sdktrace.ReadOnlySpan, labels map[string]string, st styles) {
	known := make(map[trace.SpanID]bool, len(spans))
	for _, s := range spans {
		known[s.SpanContext().SpanID()] = true
	}

	children := make(map[trace.SpanID][]sdktrace.ReadOnlySpan)
	var roots []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if parent := s.Parent(); parent.IsValid() && known[parent.SpanID()] {
			children[parent.SpanID()] = append(children[parent.SpanID()], s)
		} else {
			roots = append(roots, s)
		}
	}

	byStart := func(a, b sdktrace.ReadOnlySpan) int {
		return a.StartTime().Compare(b.StartTime())
	}
	var walk func(s sdktrace.ReadOnlySpan, depth int)
	walk = func(s sdktrace.ReadOnlySpan, depth int) {
		_, _ = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), spanLine(s, labels, st))
		kids := children[s.SpanContext().SpanID()]
		slices.SortStableFunc(kids, byStart)
		for _, k := range kids {
			walk(k, depth+1)
		}
	}
	slices.SortStableFunc(roots, byStart)
	for _, r := range roots {
		walk(r, 0)
	}
}

func spanLine(s sdktrace.ReadOnlySpan, labels map[string]string, st styles) string {
	attrs := s.Attributes()
	node := attrString(attrs, behavior.AttrNode)
	kind := attrString(attrs, behavior.AttrKind)
	outcome := attrString(attrs, behavior.AttrOutcome)

	name := strings.TrimPrefix(s.Name(), "behavior.")
	if kind != "" {
		name += "(" + kind + ")"
	}
	if label, ok := labels[node]; ok {
		name += " " + label
	}

	var result string
	switch {
	case s.Status().Code == codes.Error:
		result = st.render(st.failure, "error: "+s.Status().Description)
	case outcome == behavior.Success.String():
		result = st.outcome(behavior.Success)
	case outcome != "":
		result = st.outcome(behavior.Failure)
	}

	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Microsecond)
	return fmt.Sprintf("%s %s %s", st.render(st.heading, name), result, st.render(st.muted, elapsed.String()))
}

func attrString(attrs []attribute.KeyValue, key attribute.Key) string {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}
