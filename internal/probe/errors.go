package probe

import (
	"errors"
	"fmt"
)

// Kind classifies a probe failure.
type Kind int

const (
	KindDecode      Kind = iota // Unreadable or corrupt byte stream.
	KindUnsupported             // Decodable, but not an optimizable format.
	KindTooLarge                // Dimensions exceed the configured Limits.
)

// Sentinel errors matched by ProbeError.Is.
var (
	ErrDecode      = errors.New("source unreadable or corrupt")
	ErrUnsupported = errors.New("source format not supported")
	ErrTooLarge    = errors.New("source dimensions exceed limits")
)

// ProbeError reports why a source could not be probed. It is fatal to the
// whole optimization call.
type ProbeError struct {
	Key  string
	Kind Kind
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %q: %v: %v", e.Key, e.sentinel(), e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind, so errors.Is(err, ErrUnsupported) works.
func (e *ProbeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ProbeError) sentinel() error {
	switch e.Kind {
	case KindUnsupported:
		return ErrUnsupported
	case KindTooLarge:
		return ErrTooLarge
	}
	return ErrDecode
}
