package render

import (
	"strings"
	"testing"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

func TestFormatNone(t *testing.T) {
	input := "a\n \t\n\n\nb"
	got, err := Format(input, FormatNone)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != input {
		t.Fatalf("FormatNone changed content: %q", got)
	}
}

func TestFormatBlankLines(t *testing.T) {
	got, err := Format("a\n \t\nb\n", FormatBlankLines)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a\n\nb\n" {
		t.Fatalf("got %q, want %q", got, "a\n\nb\n")
	}
}

func TestFormatCollapseRuns(t *testing.T) {
	got, err := Format("a\n\n\n\nb", FormatCollapseRuns)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a\n\nb" {
		t.Fatalf("got %q, want %q", got, "a\n\nb")
	}
}

func TestFormatCollapseRunsKeepsLoneBlanks(t *testing.T) {
	input := "a\n \nb"
	got, err := Format(input, FormatCollapseRuns)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != input {
		t.Fatalf("lone blank not preserved byte-for-byte: %q", got)
	}
}

func TestFormatCollapseRunsIdempotent(t *testing.T) {
	inputs := []string{
		"a\n\n\n\nb\n\nc",
		"\n\n\na",
		"a\n \n\t\nb",
		"",
		"\n",
		"x\n\n",
	}
	for _, input := range inputs {
		once, err := Format(input, FormatCollapseRuns)
		if err != nil {
			t.Fatalf("Format failed: %v", err)
		}
		twice, err := Format(once, FormatCollapseRuns)
		if err != nil {
			t.Fatalf("Format failed: %v", err)
		}
		if once != twice {
			t.Fatalf("not idempotent on %q: %q then %q", input, once, twice)
		}
	}
}

func TestFormatTidy(t *testing.T) {
	got, err := Format("a\n \t\n\n  \nb", FormatTidy)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a\n\nb" {
		t.Fatalf("got %q, want %q", got, "a\n\nb")
	}
}

func TestFormatStripRuns(t *testing.T) {
	got, err := Format("a\n\n\n\nb\n\nc", FormatStripRuns)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a\nb\n\nc" {
		t.Fatalf("got %q, want %q", got, "a\nb\n\nc")
	}
}

func TestFormatStripRunsKeepsLoneBlanks(t *testing.T) {
	got, err := Format("a\n\nb", FormatStripRuns)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "a\n\nb" {
		t.Fatalf("got %q, want %q", got, "a\n\nb")
	}
}

func TestFormatStripRunsLinesAreSubsetOfBlankLines(t *testing.T) {
	inputs := []string{
		"a\n \n\n\t\nb\n\nc\n",
		"\n\n\nx",
		"one\ntwo\n\n\n",
	}
	for _, input := range inputs {
		loose, err := Format(input, FormatBlankLines)
		if err != nil {
			t.Fatalf("Format failed: %v", err)
		}
		tight, err := Format(input, FormatStripRuns)
		if err != nil {
			t.Fatalf("Format failed: %v", err)
		}
		counts := make(map[string]int)
		for _, line := range strings.Split(loose, "\n") {
			counts[line]++
		}
		for _, line := range strings.Split(tight, "\n") {
			counts[line]--
			if counts[line] < 0 {
				t.Fatalf("line %q of strict output missing from loose output of %q", line, input)
			}
		}
	}
}

func TestFormatUnsupportedType(t *testing.T) {
	for _, ft := range []FormatType{-1, 5, 42} {
		_, err := Format("x", ft)
		if err == nil {
			t.Fatalf("Format(%d) succeeded, want error", ft)
		}
		if !sandbox.IsKind(err, sandbox.ErrUnsupportedFormatType) {
			t.Fatalf("err = %v, want unsupported format type", err)
		}
		if err.Error() != "Unsupported format type" {
			t.Fatalf("message = %q", err.Error())
		}
	}
}
