package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
)

// Summary is a printable overview of an artifact.
type Summary struct {
	Version             string          `json:"version" yaml:"version"`
	Info                string          `json:"info" yaml:"info"`
	SampleRate          string          `json:"sr" yaml:"sr"`
	F0                  int             `json:"f0" yaml:"f0"`
	EmbedderName        string          `json:"embedder_name" yaml:"embedder_name"`
	EmbedderOutputLayer int             `json:"embedder_output_layer" yaml:"embedder_output_layer"`
	Params              *Params         `json:"params" yaml:"params"`
	Speakers            []Speaker       `json:"speakers,omitempty" yaml:"speakers,omitempty"`
	Tensors             int             `json:"tensors" yaml:"tensors"`
	Elements            int             `json:"elements" yaml:"elements"`
	Bytes               int             `json:"bytes" yaml:"bytes"`
	DTypes              map[string]int  `json:"dtypes" yaml:"dtypes"`
	Weights             []WeightSummary `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Speaker is one speaker_info entry.
type Speaker struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// WeightSummary describes one tensor.
type WeightSummary struct {
	Name  string `json:"name" yaml:"name"`
	DType string `json:"dtype" yaml:"dtype"`
	Shape []int  `json:"shape" yaml:"shape"`
}

// Summary computes an overview of a. When withWeights is set each tensor is
// listed by name.
func (a *Artifact) Summary(withWeights bool) Summary {
	s := Summary{
		Version:             a.Version,
		Info:                a.Info,
		SampleRate:          a.SampleRate,
		F0:                  a.F0,
		EmbedderName:        a.EmbedderName,
		EmbedderOutputLayer: a.EmbedderOutputLayer,
		Params:              a.Params,
		DTypes:              make(map[string]int),
	}
	for _, name := range a.WeightNames() {
		t := a.Weight[name]
		if t == nil {
			continue
		}
		s.Tensors++
		s.Elements += t.NumElements()
		s.Bytes += t.ByteSize()
		s.DTypes[t.DType().String()]++
		if withWeights {
			s.Weights = append(s.Weights, WeightSummary{Name: name, DType: t.DType().String(), Shape: t.Shape()})
		}
	}
	for _, k := range slices.Sorted(maps.Keys(a.SpeakerInfo)) {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		s.Speakers = append(s.Speakers, Speaker{Index: idx, Name: a.SpeakerInfo[k]})
	}
	slices.SortFunc(s.Speakers, func(x, y Speaker) int { return x.Index - y.Index })
	return s
}

// Checksum returns the hex SHA-256 of everything read from r.
func Checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
