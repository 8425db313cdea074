package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// outputJSON controls whether commands should output JSON instead of styled text
	outputJSON bool

	stdout io.Writer = os.Stdout
)

// SetJSONOutput sets the JSON output mode
func SetJSONOutput(enabled bool) {
	outputJSON = enabled
}

// IsJSONOutput returns true if JSON output mode is enabled
func IsJSONOutput() bool {
	return outputJSON
}

// SetOutput redirects everything the commands print
func SetOutput(w io.Writer) {
	stdout = w
}

// PrintJSON outputs data as JSON if JSON mode is enabled, returns true if it did
func PrintJSON(data interface{}) bool {
	if !outputJSON {
		return false
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
	return true
}

// PrintSuccess prints a success message with a green checkmark
func PrintSuccess(msg string) {
	fmt.Fprintf(stdout, "  %s %s\n", SuccessStyle.Render(SymbolSuccess), msg)
}

// PrintSuccessf prints a formatted success message
func PrintSuccessf(format string, args ...interface{}) {
	PrintSuccess(fmt.Sprintf(format, args...))
}

// PrintError prints an error message with a red X
func PrintError(err error) {
	fmt.Fprintf(stdout, "  %s %s\n", ErrorStyle.Render(SymbolError), ErrorStyle.Render(err.Error()))
}

// PrintWarning prints a warning message with a yellow indicator
func PrintWarning(msg string) {
	fmt.Fprintf(stdout, "  %s %s\n", WarningStyle.Render(SymbolWarning), WarningStyle.Render(msg))
}

// PrintInfo prints an info message with an arrow
func PrintInfo(msg string) {
	fmt.Fprintf(stdout, "  %s %s\n", InfoStyle.Render(SymbolInfo), msg)
}

// PrintInfof prints a formatted info message
func PrintInfof(format string, args ...interface{}) {
	PrintInfo(fmt.Sprintf(format, args...))
}

// PrintHint prints a subtle hint/suggestion
func PrintHint(msg string) {
	fmt.Fprintf(stdout, "\n  %s\n", HintStyle.Render(msg))
}

// PrintHeader prints a section header
func PrintHeader(title string) {
	fmt.Fprintf(stdout, "\n  %s\n\n", BoldStyle.Render(title))
}

// PrintKeyValue prints a key-value pair with consistent alignment
func PrintKeyValue(key, value string) {
	fmt.Fprintf(stdout, "  %s %s\n", KeyStyle.Render(key), value)
}

// PrintBullet prints a bulleted item
func PrintBullet(text string) {
	fmt.Fprintf(stdout, "    %s %s\n", DimStyle.Render(SymbolBullet), text)
}

// Table represents a styled table
type Table struct {
	Headers []string
	Rows    [][]string
	Widths  []int
}

// NewTable creates a new table with the given headers
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{
		Headers: headers,
		Widths:  widths,
	}
}

// AddRow adds a row to the table, padding or truncating to the header count
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
			if len(cells[i]) > t.Widths[i] {
				t.Widths[i] = len(cells[i])
			}
		}
	}
	t.Rows = append(t.Rows, row)
}

// Print renders the table to stdout
func (t *Table) Print() {
	if len(t.Rows) == 0 {
		return
	}

	fmt.Fprint(stdout, "  ")
	for i, h := range t.Headers {
		style := TableHeaderStyle.Width(t.Widths[i] + 2)
		fmt.Fprint(stdout, style.Render(h))
	}
	fmt.Fprintln(stdout)

	fmt.Fprint(stdout, "  ")
	for i := range t.Headers {
		fmt.Fprint(stdout, DimStyle.Render(strings.Repeat("─", t.Widths[i])), "  ")
	}
	fmt.Fprintln(stdout)

	for _, row := range t.Rows {
		fmt.Fprint(stdout, "  ")
		for i, cell := range row {
			style := TableCellStyle.Width(t.Widths[i] + 2)
			fmt.Fprint(stdout, style.Render(cell))
		}
		fmt.Fprintln(stdout)
	}
}

// Truncate truncates a string to maxLen runes, adding "..." if needed
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
