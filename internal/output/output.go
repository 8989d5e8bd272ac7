package output

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

func PrintRight(text string) {
	FprintRight(os.Stdout, termWidth(), text)
}

// FprintRight overwrites the current line of w with text aligned to
// width columns.
func FprintRight(w io.Writer, width int, text string) {
	padding := width - len(text)
	if padding < 0 {
		padding = 0
	}

	fmt.Fprintf(w, "\r%s%s", spaces(padding), text)
}

func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}

// Table writes rows under header as a borderless table.
func Table(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
