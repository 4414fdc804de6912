package checkpoint

import (
	"fmt"
	"reflect"
	"strconv"
)

// Validate checks the invariants of an artifact: the full hyperparameter
// set is present, the config list matches params, every weight is a
// well-formed tensor, f0 is zero and spk_embed_dim agrees with speaker_info.
//
// Violations are reported as *ValidationError; a config/params disagreement
// additionally wraps ErrConfigMismatch.
func (a *Artifact) Validate() error {
	if len(a.Weight) == 0 {
		return &ValidationError{Field: fieldWeight, Details: "no weights"}
	}
	for _, name := range a.WeightNames() {
		t := a.Weight[name]
		if t == nil {
			return &ValidationError{Field: "weight." + name, Details: "nil tensor"}
		}
		if !t.DType().Valid() {
			return &ValidationError{Field: "weight." + name, Details: "unsupported dtype " + t.DType().String()}
		}
		if t.NumElements()*t.DType().Size() != t.ByteSize() {
			return &ValidationError{Field: "weight." + name, Details: "data length does not match shape"}
		}
	}

	if a.Params == nil {
		return &ValidationError{Field: fieldParams, Details: "missing"}
	}
	for _, k := range modelConfigKeys {
		if _, ok := a.Params.Get(k); !ok {
			return &ValidationError{Field: fieldParams, Details: fmt.Sprintf("missing key %q", k)}
		}
	}

	config := a.Config()
	values := a.Params.Values()
	if len(config) != len(values) {
		return fmt.Errorf("%w: %w", ErrConfigMismatch, &ValidationError{
			Field:   fieldConfig,
			Details: fmt.Sprintf("%d values for %d params", len(config), len(values)),
		})
	}
	for i, k := range a.Params.Keys() {
		if !reflect.DeepEqual(config[i], values[i]) {
			return fmt.Errorf("%w: %w", ErrConfigMismatch, &ValidationError{
				Field:   fieldConfig,
				Details: fmt.Sprintf("config[%d]=%v but %s=%v", i, config[i], k, values[i]),
			})
		}
	}

	if a.Version == "" {
		return &ValidationError{Field: fieldVersion, Details: "empty"}
	}
	if a.F0 != 0 {
		return &ValidationError{Field: fieldF0, Details: fmt.Sprintf("got %d, want 0", a.F0)}
	}

	dim, ok := a.Params.Int(KeySpkEmbedDim)
	if !ok {
		return &ValidationError{Field: fieldParams, Details: KeySpkEmbedDim + " is not an integer"}
	}
	if a.SpeakerInfo != nil {
		if dim != len(a.SpeakerInfo) {
			return &ValidationError{
				Field:   fieldSpeakerInfo,
				Details: fmt.Sprintf("%d speakers but %s=%d", len(a.SpeakerInfo), KeySpkEmbedDim, dim),
			}
		}
		for k := range a.SpeakerInfo {
			if _, err := strconv.Atoi(k); err != nil {
				return &ValidationError{Field: fieldSpeakerInfo, Details: fmt.Sprintf("key %q is not a speaker index", k)}
			}
		}
	}
	return nil
}
