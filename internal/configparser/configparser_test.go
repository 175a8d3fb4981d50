package configparser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTOML(t *testing.T) {
	data := []byte("title = \"report\"\ncount = 3\n\n[owner]\nname = \"mika\"\n")
	got, err := NewRegistry().Parse("context.toml", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got["title"] != "report" {
		t.Fatalf("title = %v", got["title"])
	}
	owner, ok := got["owner"].(map[string]any)
	if !ok {
		t.Fatalf("owner = %T", got["owner"])
	}
	if owner["name"] != "mika" {
		t.Fatalf("owner.name = %v", owner["name"])
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte("title: report\nrows:\n  - 1\n  - 2\n")
	got, err := NewRegistry().Parse("context.yaml", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got["title"] != "report" {
		t.Fatalf("title = %v", got["title"])
	}
}

func TestParseYAMLRequiresMapping(t *testing.T) {
	for _, data := range []string{"- a\n- b\n", "just a scalar\n"} {
		_, err := NewRegistry().Parse("context.yml", []byte(data))
		if err == nil || err.Error() != "Invalid YAML file loaded." {
			t.Fatalf("err = %v, want invalid YAML message", err)
		}
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("name,age,score\nbob,30,1.5\nmei,,90\n")
	got, err := NewRegistry().Parse("people.csv", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	rows, ok := got[DefaultCSVKey].([]map[string]any)
	if !ok {
		t.Fatalf("rows = %T", got[DefaultCSVKey])
	}
	want := []map[string]any{
		{"name": "bob", "age": int64(30), "score": 1.5},
		{"name": "mei", "age": DefaultCSVFill, "score": int64(90)},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSVOptions(t *testing.T) {
	data := []byte("a\n\n1\n")
	got, err := NewRegistry().Parse("x.csv", data, WithCSVKey("records"), WithCSVFill("-"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := got["records"]; !ok {
		t.Fatalf("custom key missing: %v", got)
	}
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, err := NewRegistry().Parse("context.ini", []byte("a=1"))
	if err == nil || err.Error() != "Unsupported file type" {
		t.Fatalf("err = %v, want unsupported file type", err)
	}
}

func TestParseFileSizeLimit(t *testing.T) {
	data := []byte(strings.Repeat("a", 32))
	_, err := NewRegistry().Parse("context.toml", data, WithMaxFileSize(16))
	if err == nil || err.Error() != "File size exceeds the maximum limit" {
		t.Fatalf("err = %v, want size limit message", err)
	}
}

func TestParseRejectsBinary(t *testing.T) {
	_, err := NewRegistry().Parse("context.yaml", []byte("a: 1\x00"))
	if err == nil {
		t.Fatalf("binary input accepted")
	}
}

func TestParseMemoryCeiling(t *testing.T) {
	data := []byte("blob: " + strings.Repeat("x", 64) + "\n")
	_, err := NewRegistry().Parse("context.yaml", data, WithMaxMemorySize(32))
	if err == nil {
		t.Fatalf("oversized parsed structure accepted")
	}
}

func TestRegisterCustomParser(t *testing.T) {
	r := NewRegistry()
	r.Register(".txt", func(data []byte, _ Config) (map[string]any, error) {
		return map[string]any{"raw": string(data)}, nil
	})
	got, err := r.Parse("note.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got["raw"] != "hello" {
		t.Fatalf("raw = %v", got["raw"])
	}
}
