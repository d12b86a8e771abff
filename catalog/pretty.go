package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

// PrettyPrintError pretty prints a schema parse error, including the
// offending portion of the source code, for human-friendly reading. It
// reports whether err carried a source position; callers should fall back
// to plain formatting when it did not.
func PrettyPrintError(w io.Writer, source string, err error) bool {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return false
	}

	// Disable colors if NO_COLOR environment variable is set
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	pos := perr.Position()
	lines := strings.Split(source, "\n")

	titleColor := color.New(color.FgRed, color.Bold)
	descColor := color.New(color.Bold)
	arrowColor := color.New(color.FgCyan, color.Bold)
	filePathColor := color.New(color.Underline)
	lineNumColor := color.New(color.FgCyan, color.Bold)

	titleColor.Fprintf(w, "error: ")
	descColor.Fprintf(w, "%s\n", perr.Message())

	arrowColor.Fprintf(w, "  --> ")
	filePathColor.Fprintf(w, "%s:%d\n", pos.Filename, pos.Line)

	lineNumColor.Fprintf(w, "   | \n")

	// Previous line for context (if available)
	if pos.Line > 1 && pos.Line-2 < len(lines) {
		lineNumColor.Fprintf(w, "%2d | ", pos.Line-1)
		fmt.Fprintf(w, "%s\n", lines[pos.Line-2])
	}

	// Line with offending content, with a caret pointing at the column
	if pos.Line >= 1 && pos.Line-1 < len(lines) {
		lineNumColor.Fprintf(w, "%2d | ", pos.Line)
		fmt.Fprintf(w, "%s\n", lines[pos.Line-1])

		indent := pos.Column - 1
		if indent < 0 {
			indent = 0
		}
		lineNumColor.Fprintf(w, "   | ")
		fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), titleColor.Sprint("^"))
	}

	lineNumColor.Fprintf(w, "   | \n")

	return true
}
