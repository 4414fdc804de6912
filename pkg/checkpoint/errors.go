package checkpoint

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps one of these so
// callers can tell filesystem problems from encoding problems.
var (
	ErrIO     = errors.New("checkpoint: i/o error")
	ErrEncode = errors.New("checkpoint: encode error")
	ErrDecode = errors.New("checkpoint: decode error")
)

// Format errors.
var (
	ErrInvalidMagic       = errors.New("checkpoint: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("checkpoint: unsupported format version")
	ErrUnsupportedFamily  = errors.New("checkpoint: unsupported model family")
	ErrConfigMismatch     = errors.New("checkpoint: config and params disagree")
)

// ValidationError describes why a decoded artifact is inconsistent.
type ValidationError struct {
	Field   string // top-level key or "weight.<name>"
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkpoint: invalid %s: %s", e.Field, e.Details)
}
