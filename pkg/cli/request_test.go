package cli

import (
	"os"
	"path/filepath"
	"testing"
)

type buildRequest struct {
	Weights  string         `yaml:"weights" json:"weights"`
	Epoch    int            `yaml:"epoch" json:"epoch"`
	Speakers map[int]string `yaml:"speakers" json:"speakers"`
}

func TestLoadRequestYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")
	os.WriteFile(path, []byte("weights: w.safetensors\nepoch: 12\nspeakers:\n  0: alice\n"), 0o644)

	var req buildRequest
	if err := LoadRequest(path, &req); err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if req.Weights != "w.safetensors" || req.Epoch != 12 || req.Speakers[0] != "alice" {
		t.Errorf("request = %+v", req)
	}
}

func TestParseRequestFallback(t *testing.T) {
	var req buildRequest
	if err := ParseRequest([]byte(`{"weights":"a","epoch":3}`), "request", &req); err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Weights != "a" || req.Epoch != 3 {
		t.Errorf("request = %+v", req)
	}
	if err := ParseRequest([]byte("{"), "bad.json", &req); err == nil {
		t.Error("ParseRequest accepted broken JSON")
	}
}

func TestLoadRequestMissing(t *testing.T) {
	var req buildRequest
	if err := LoadRequest(filepath.Join(t.TempDir(), "nope.yaml"), &req); err == nil {
		t.Fatal("LoadRequest of a missing file succeeded")
	}
}
