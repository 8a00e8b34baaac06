package optimize

import "fmt"

// Error is returned when a call cannot produce any derivative because the
// source failed to probe or decode. Err is the underlying *probe.ProbeError.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimize %q: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
