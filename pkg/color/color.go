// Package color is a minimal ANSI styling helper for CLI output.
// It honors NO_COLOR so piped and scripted invocations stay clean.
package color

import (
	"fmt"
	"io"
	"os"
)

const reset = "\033[0m"

// Foreground colors and attributes.
const (
	FgRed    = 31
	FgGreen  = 32
	FgYellow = 33
	FgCyan   = 36
	FgWhite  = 37

	Bold = 1
	Dim  = 2
)

var disabled = os.Getenv("NO_COLOR") != ""

// Disable turns off all styling for the process. Used by --output json.
func Disable() {
	disabled = true
}

// Style is a reusable ANSI attribute set.
type Style struct {
	seq string
}

// New builds a Style from the given attributes.
func New(attrs ...int) *Style {
	if len(attrs) == 0 {
		return &Style{}
	}
	seq := "\033["
	for i, attr := range attrs {
		if i > 0 {
			seq += ";"
		}
		seq += fmt.Sprintf("%d", attr)
	}
	return &Style{seq: seq + "m"}
}

// Sprintf returns the formatted string wrapped in this style.
func (s *Style) Sprintf(format string, a ...interface{}) string {
	text := fmt.Sprintf(format, a...)
	if disabled || s.seq == "" {
		return text
	}
	return s.seq + text + reset
}

// Fprintf writes styled formatted output to w.
func (s *Style) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, s.Sprintf(format, a...))
}

// Printf writes styled formatted output to stdout.
func (s *Style) Printf(format string, a ...interface{}) {
	s.Fprintf(os.Stdout, format, a...)
}
