// Package reporter renders parse failures as terminal diagnostics with the
// offending source line and a caret under the failing column.
package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/strandlang/strand/parser"
)

// SyntaxError writes a caret diagnostic for a parse failure. Lines and
// columns are 1-based; a column past the line end pins the caret to the end.
func SyntaxError(w io.Writer, filename, source string, serr *parser.SyntaxError) {
	fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), serr.Error())
	fmt.Fprintf(w, "  %s %s:%d:%d\n", color.HiBlackString("-->"), filename, serr.Line, serr.Column)

	line, ok := sourceLine(source, serr.Line)
	if !ok {
		return
	}

	gutter := fmt.Sprintf("%4d | ", serr.Line)
	fmt.Fprintf(w, "%s%s\n", color.HiBlackString(gutter), line)

	col := serr.Column
	if col < 1 {
		col = 1
	}
	if col > len([]rune(line))+1 {
		col = len([]rune(line)) + 1
	}
	pad := caretPadding(line, col)
	fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", len(gutter)), pad, color.RedString("^"))
}

// caretPadding replays tabs from the source line so the caret lines up in
// terminals that expand tabs.
func caretPadding(line string, col int) string {
	var sb strings.Builder
	for i, r := range []rune(line) {
		if i >= col-1 {
			break
		}
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func sourceLine(source string, n int) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}
