package checkpoint

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/nadare881/rvc-webui/pkg/tensor"
)

// Family identifies the model family a checkpoint belongs to.
type Family string

// FamilyVoras is the only family this package writes.
const FamilyVoras Family = "voras"

// VersionTag is the version string written into every voras checkpoint.
const VersionTag = "voras_beta"

// Valid reports whether f is a family this package can write. The zero
// value means FamilyVoras.
func (f Family) Valid() bool {
	return f == "" || f == FamilyVoras
}

// Options carries the metadata supplied by the trainer at save time.
type Options struct {
	// Family must be FamilyVoras (or empty).
	Family Family

	// SampleRate is an opaque label (e.g. "24k") stored verbatim as "sr".
	SampleRate string

	// F0 is accepted for compatibility with pitch-aware trainers. Voras
	// checkpoints always record pitch tracking as disabled.
	F0 bool

	// EmbedderName identifies the feature embedder used during training.
	EmbedderName string

	// EmbedderChannels is the embedder output width. It is implied by the
	// fixed emb_channels hyperparameter and is not stored.
	EmbedderChannels int

	// EmbedderOutputLayer is the embedder layer the features came from.
	EmbedderOutputLayer int

	// Epoch is the number of completed training epochs.
	Epoch int

	// Speakers maps speaker index to display name for multi-speaker
	// models. Nil means a single-speaker model.
	Speakers map[int]string

	// Atomic makes Save write to a temporary file and rename it over the
	// destination, so a crash never leaves a truncated checkpoint.
	Atomic bool
}

// Artifact is an assembled checkpoint. It is never modified after Build or
// Decode returns it.
type Artifact struct {
	Weight              map[string]*tensor.Tensor
	Params              *Params
	Version             string
	Info                string
	SampleRate          string
	F0                  int
	EmbedderName        string
	EmbedderOutputLayer int
	// SpeakerInfo maps "<index>" to speaker name; nil for single-speaker
	// models.
	SpeakerInfo map[string]string

	// config is the decoded "config" list, kept only to check it against
	// Params. Built artifacts derive config from Params.
	config []any
}

// Build assembles a checkpoint artifact from a parameter snapshot. It is
// pure and deterministic. The weights map is copied; tensors are shared.
//
// Weight names and values are the caller's responsibility; a nil tensor
// surfaces as an encode error when the artifact is written.
func Build(weights map[string]*tensor.Tensor, opts Options) *Artifact {
	cfg := DefaultModelConfig()

	var speakerInfo map[string]string
	if opts.Speakers != nil {
		cfg.SpkEmbedDim = len(opts.Speakers)
		speakerInfo = make(map[string]string, len(opts.Speakers))
		for idx, name := range opts.Speakers {
			speakerInfo[strconv.Itoa(idx)] = name
		}
	}

	return &Artifact{
		Weight:              maps.Clone(weights),
		Params:              cfg.Params(),
		Version:             VersionTag,
		Info:                fmt.Sprintf("%depoch", opts.Epoch),
		SampleRate:          opts.SampleRate,
		F0:                  0,
		EmbedderName:        opts.EmbedderName,
		EmbedderOutputLayer: opts.EmbedderOutputLayer,
		SpeakerInfo:         speakerInfo,
	}
}

// Config returns the ordered hyperparameter list.
func (a *Artifact) Config() []any {
	if a.config != nil {
		return slices.Clone(a.config)
	}
	return a.Params.Values()
}

// WeightNames returns the weight names in sorted order.
func (a *Artifact) WeightNames() []string {
	return slices.Sorted(maps.Keys(a.Weight))
}

// SpkEmbedDim returns the speaker embedding size recorded in params.
func (a *Artifact) SpkEmbedDim() int {
	v, _ := a.Params.Int(KeySpkEmbedDim)
	return v
}
