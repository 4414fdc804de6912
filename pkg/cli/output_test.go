package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"version": "2", "sr": 24000}
	if err := Output(data, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got["version"] != "2" {
		t.Errorf("version = %v", got["version"])
	}
}

func TestOutputYAMLDefault(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]string{"embedder_name": "hubert_base"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "embedder_name: hubert_base") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOutputRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := Output([]byte("convert succeed"), OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "convert succeed" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output([]int{1, 2}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[\n  1,\n  2\n]" {
		t.Errorf("file = %q", data)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatYAML, "yaml": FormatYAML, "json": FormatJSON, "raw": FormatRaw} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("table"); err == nil {
		t.Error("ParseFormat accepted table")
	}
	if err := Output(1, OutputOptions{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("Output accepted xml")
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"ADDR", "PID"}, [][]string{{"127.0.0.1:5001", "4242"}})
	for _, want := range []string{"ADDR", "PID", "127.0.0.1:5001", "4242", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
