package checkpoint

import "github.com/nadare881/rvc-webui/pkg/tensor"

// Model is anything that can report a snapshot of its parameters.
type Model interface {
	StateDict() map[string]*tensor.Tensor
}

// Wrapper is a model that delegates to an inner replica, such as a
// data-parallel training wrapper. Checkpoints store the inner replica's
// parameters, never the wrapper's.
type Wrapper interface {
	Model
	Unwrap() Model
}

// Snapshot returns the parameters to persist for m, unwrapping replicas
// until a plain model is reached.
func Snapshot(m Model) map[string]*tensor.Tensor {
	for {
		w, ok := m.(Wrapper)
		if !ok {
			return m.StateDict()
		}
		m = w.Unwrap()
	}
}

// Weights is a plain model backed by a parameter map.
type Weights map[string]*tensor.Tensor

// StateDict implements Model.
func (w Weights) StateDict() map[string]*tensor.Tensor { return w }

// Replicated wraps a model the way a data-parallel trainer does: its own
// view prefixes every parameter name, while Unwrap exposes the replica.
type Replicated struct {
	Inner  Model
	Prefix string
}

// DefaultReplicaPrefix is the parameter prefix of a data-parallel wrapper.
const DefaultReplicaPrefix = "module."

// StateDict implements Model with prefixed parameter names.
func (r *Replicated) StateDict() map[string]*tensor.Tensor {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultReplicaPrefix
	}
	inner := r.Inner.StateDict()
	out := make(map[string]*tensor.Tensor, len(inner))
	for k, v := range inner {
		out[prefix+k] = v
	}
	return out
}

// Unwrap implements Wrapper.
func (r *Replicated) Unwrap() Model { return r.Inner }
