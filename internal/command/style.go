package command

import (
	"fmt"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/joeycumines/behave/internal/behavior"
)

// styles renders CLI output, with or without ANSI colour.
type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	plain   bool
}

// colorEnabled decides whether to emit colour for mode ("auto", "always" or
// "never"). auto colours terminals only, and honours NO_COLOR.
func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false, nil
		}
		f, ok := w.(interface{ Fd() uintptr })
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid color mode: %q", mode)
	}
}

func newStyles(color bool) styles {
	if !color {
		return styles{plain: true}
	}
	return styles{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		heading: lipgloss.NewStyle().Bold(true),
		muted:   lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) render(style lipgloss.Style, str string) string {
	if s.plain {
		return str
	}
	return style.Render(str)
}

func (s styles) outcome(o behavior.Outcome) string {
	if o.Succeeded() {
		return s.render(s.success, o.String())
	}
	return s.render(s.failure, o.String())
}
