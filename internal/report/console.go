package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorFailure = color.New(color.FgRed).SprintFunc()
)

// RenderConsole writes the report to w with verdict lines colored green or
// red.
func RenderConsole(w io.Writer, rep Report) {
	for _, line := range rep.Lines {
		switch {
		case !line.IsVerdict:
			fmt.Fprintln(w, line.Text)
		case line.Succeeded:
			fmt.Fprintln(w, colorSuccess(line.Text))
		default:
			fmt.Fprintln(w, colorFailure(line.Text))
		}
	}
	for _, line := range rep.Summary() {
		fmt.Fprintln(w, line)
	}
}
