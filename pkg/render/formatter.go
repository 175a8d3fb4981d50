package render

import (
	"strings"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

// FormatType selects the whitespace post-process applied to rendered output.
type FormatType int

const (
	// FormatNone leaves the output untouched.
	FormatNone FormatType = iota
	// FormatBlankLines reduces whitespace-only lines to empty lines.
	FormatBlankLines
	// FormatCollapseRuns reduces runs of two or more blank lines to a
	// single empty line. Lone blank lines are left byte-for-byte intact,
	// which makes this transform idempotent.
	FormatCollapseRuns
	// FormatTidy applies FormatBlankLines then FormatCollapseRuns.
	FormatTidy
	// FormatStripRuns applies FormatBlankLines then removes runs of two or
	// more blank lines entirely, keeping lone blanks.
	FormatStripRuns
)

// DefaultFormatType is applied when the caller does not choose one.
const DefaultFormatType = FormatTidy

// Format applies the selected whitespace transform to content.
func Format(content string, formatType FormatType) (string, error) {
	switch formatType {
	case FormatNone:
		return content, nil
	case FormatBlankLines:
		return emptyBlankLines(content), nil
	case FormatCollapseRuns:
		return collapseBlankRuns(content, 1), nil
	case FormatTidy:
		return collapseBlankRuns(emptyBlankLines(content), 1), nil
	case FormatStripRuns:
		return collapseBlankRuns(emptyBlankLines(content), 0), nil
	default:
		return "", sandbox.NewError(sandbox.ErrUnsupportedFormatType, "Unsupported format type")
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// emptyBlankLines rewrites every whitespace-only line as an empty line.
func emptyBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != "" && isBlank(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// collapseBlankRuns replaces every run of two or more blank lines with keep
// empty lines. Runs of exactly one blank line are preserved as they are.
func collapseBlankRuns(content string, keep int) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isBlank(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && isBlank(lines[j]) {
			j++
		}
		if j-i == 1 {
			out = append(out, lines[i])
		} else {
			for k := 0; k < keep; k++ {
				out = append(out, "")
			}
		}
		i = j
	}
	return strings.Join(out, "\n")
}
