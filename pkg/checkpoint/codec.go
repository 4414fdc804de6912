package checkpoint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nadare881/rvc-webui/pkg/tensor"
)

// Format constants.
const (
	MagicBytes    = "VRCK"
	FormatVersion = 1
)

// Top-level keys of a checkpoint.
const (
	fieldWeight              = "weight"
	fieldConfig              = "config"
	fieldParams              = "params"
	fieldVersion             = "version"
	fieldInfo                = "info"
	fieldSR                  = "sr"
	fieldF0                  = "f0"
	fieldEmbedderName        = "embedder_name"
	fieldEmbedderOutputLayer = "embedder_output_layer"
	fieldSpeakerInfo         = "speaker_info"
)

var requiredFields = []string{
	fieldWeight, fieldConfig, fieldParams, fieldVersion, fieldInfo,
	fieldSR, fieldF0, fieldEmbedderName, fieldEmbedderOutputLayer,
}

// Encode writes a to w. Errors are wrapped in ErrEncode, or ErrIO when the
// writer itself fails.
func Encode(w io.Writer, a *Artifact) error {
	ew := &errWriter{w: w}
	bw := bufio.NewWriter(ew)
	if _, err := bw.WriteString(MagicBytes); err != nil {
		return fmt.Errorf("%w: write magic: %w", ErrIO, err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("%w: write version: %w", ErrIO, err)
	}
	enc := msgpack.NewEncoder(bw)
	if err := encodeArtifact(enc, a); err != nil {
		if ew.err != nil {
			return fmt.Errorf("%w: %w", ErrIO, ew.err)
		}
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	return nil
}

// errWriter keeps the first error returned by w, so that failures surfacing
// through the encoder can still be told apart from encoding errors.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	n, err := ew.w.Write(p)
	if err != nil && ew.err == nil {
		ew.err = err
	}
	return n, err
}

func encodeArtifact(enc *msgpack.Encoder, a *Artifact) error {
	n := len(requiredFields)
	if a.SpeakerInfo != nil {
		n++
	}
	if err := enc.EncodeMapLen(n); err != nil {
		return err
	}

	if err := enc.EncodeString(fieldWeight); err != nil {
		return err
	}
	if err := encodeWeights(enc, a.Weight); err != nil {
		return err
	}

	if err := enc.EncodeString(fieldConfig); err != nil {
		return err
	}
	values := a.Params.Values()
	if err := enc.EncodeArrayLen(len(values)); err != nil {
		return err
	}
	for i, v := range values {
		if err := encodeValue(enc, v); err != nil {
			return fmt.Errorf("config[%d]: %w", i, err)
		}
	}

	if err := enc.EncodeString(fieldParams); err != nil {
		return err
	}
	if a.Params == nil {
		if err := enc.EncodeMapLen(0); err != nil {
			return err
		}
	} else if err := a.Params.EncodeMsgpack(enc); err != nil {
		return err
	}

	for _, kv := range []struct{ key, value string }{
		{fieldVersion, a.Version},
		{fieldInfo, a.Info},
		{fieldSR, a.SampleRate},
	} {
		if err := enc.EncodeString(kv.key); err != nil {
			return err
		}
		if err := enc.EncodeString(kv.value); err != nil {
			return err
		}
	}

	if err := enc.EncodeString(fieldF0); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(a.F0)); err != nil {
		return err
	}
	if err := enc.EncodeString(fieldEmbedderName); err != nil {
		return err
	}
	if err := enc.EncodeString(a.EmbedderName); err != nil {
		return err
	}
	if err := enc.EncodeString(fieldEmbedderOutputLayer); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(a.EmbedderOutputLayer)); err != nil {
		return err
	}

	if a.SpeakerInfo != nil {
		if err := enc.EncodeString(fieldSpeakerInfo); err != nil {
			return err
		}
		if err := enc.EncodeMapLen(len(a.SpeakerInfo)); err != nil {
			return err
		}
		for _, k := range slices.Sorted(maps.Keys(a.SpeakerInfo)) {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := enc.EncodeString(a.SpeakerInfo[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeWeights(enc *msgpack.Encoder, weights map[string]*tensor.Tensor) error {
	if err := enc.EncodeMapLen(len(weights)); err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(weights)) {
		t := weights[name]
		if t == nil {
			return fmt.Errorf("weight %q: nil tensor", name)
		}
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := t.EncodeMsgpack(enc); err != nil {
			return fmt.Errorf("weight %q: %w", name, err)
		}
	}
	return nil
}

// Decode reads an artifact written by Encode. It checks the framing and
// that every required key is present; use Validate for semantic checks.
func Decode(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: read magic: %w", ErrDecode, err)
	}
	if string(magic) != MagicBytes {
		return nil, fmt.Errorf("%w: %w: %q", ErrDecode, ErrInvalidMagic, magic)
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: read version: %w", ErrDecode, err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %w: %d", ErrDecode, ErrUnsupportedVersion, version)
	}

	a, err := decodeArtifact(msgpack.NewDecoder(br))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return a, nil
}

func decodeArtifact(dec *msgpack.Decoder) (*Artifact, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	a := &Artifact{}
	seen := make(map[string]bool, n)
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		seen[key] = true
		switch key {
		case fieldWeight:
			a.Weight, err = decodeWeights(dec)
		case fieldConfig:
			a.config, err = decodeConfig(dec)
		case fieldParams:
			a.Params = NewParams()
			err = a.Params.DecodeMsgpack(dec)
		case fieldVersion:
			a.Version, err = dec.DecodeString()
		case fieldInfo:
			a.Info, err = dec.DecodeString()
		case fieldSR:
			a.SampleRate, err = dec.DecodeString()
		case fieldF0:
			a.F0, err = dec.DecodeInt()
		case fieldEmbedderName:
			a.EmbedderName, err = dec.DecodeString()
		case fieldEmbedderOutputLayer:
			a.EmbedderOutputLayer, err = dec.DecodeInt()
		case fieldSpeakerInfo:
			a.SpeakerInfo, err = decodeStringMap(dec)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	for _, f := range requiredFields {
		if !seen[f] {
			return nil, fmt.Errorf("missing key %q", f)
		}
	}
	if a.config == nil {
		a.config = []any{}
	}
	return a, nil
}

func decodeWeights(dec *msgpack.Decoder) (map[string]*tensor.Tensor, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*tensor.Tensor, max(n, 0))
	for range n {
		name, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		t := new(tensor.Tensor)
		if err := t.DecodeMsgpack(dec); err != nil {
			return nil, fmt.Errorf("weight %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func decodeConfig(dec *msgpack.Decoder) ([]any, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, max(n, 0))
	for i := range n {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("config[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeStringMap(dec *msgpack.Decoder) (map[string]string, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, max(n, 0))
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Load reads the checkpoint at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()
	return Decode(f)
}
