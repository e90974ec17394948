// Package output renders CLI results: status lines, aligned tables,
// and a JSON mode for scripting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crewmesh-systems/crewmesh/pkg/color"
)

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	infoStyle    = color.New(color.FgCyan)
	warnStyle    = color.New(color.FgYellow)
	headerStyle  = color.New(color.FgWhite, color.Bold)
)

// Stdout and Stderr are swappable for tests.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a green check line.
func Success(format string, a ...interface{}) {
	successStyle.Fprintf(Stdout, "✓ "+format+"\n", a...)
}

// Error prints a red cross line to stderr.
func Error(format string, a ...interface{}) {
	errorStyle.Fprintf(Stderr, "✗ "+format+"\n", a...)
}

// Info prints a cyan line.
func Info(format string, a ...interface{}) {
	infoStyle.Fprintf(Stdout, format+"\n", a...)
}

// Warn prints a yellow advisory line. Collision warnings land here:
// they inform, they never block.
func Warn(format string, a ...interface{}) {
	warnStyle.Fprintf(Stdout, "⚠ "+format+"\n", a...)
}

// JSON pretty-prints v to stdout.
func JSON(v interface{}) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows with columns padded to their widest cell.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one row; short rows are padded with empty cells.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	t.rows = append(t.rows, cells)
}

// Render writes the table to Stdout.
func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range t.headers {
		headerStyle.Fprintf(Stdout, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(Stdout)

	for i := range t.headers {
		fmt.Fprint(Stdout, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(Stdout)

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(Stdout, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(Stdout)
	}
}
