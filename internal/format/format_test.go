package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{ID: "a", Tags: []string{"x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\"id\":\"a\",\"tags\":[\"x\"]}\n" {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestYAMLFormatterUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{ID: "a", Tags: []string{"x", "y"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"id: a\n", "tags:\n", "  - x\n", "  - y\n"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, got)
		}
	}
}

func TestForName(t *testing.T) {
	for _, name := range []string{"", "json", "pretty", "YAML", "yml"} {
		if _, err := ForName(name); err != nil {
			t.Fatalf("%q: %v", name, err)
		}
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
