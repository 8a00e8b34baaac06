package encoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"syscall"

	"github.com/backmassage/mediaopt/internal/media"
)

// Kind classifies an encode failure.
type Kind int

const (
	KindIO          Kind = iota // Read or write failure other than a full disk.
	KindDiskFull                // ENOSPC or the tool reported no space left.
	KindRejected                // The encoder refused the input or its parameters.
	KindToolMissing             // External encoder binary not found.
	KindCanceled                // The context was canceled mid-encode.
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDiskFull:
		return "disk_full"
	case KindRejected:
		return "rejected"
	case KindToolMissing:
		return "tool_missing"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors matched by EncodeError.Is. A canceled encode matches the
// context error it wraps instead.
var (
	ErrIO          = errors.New("encode i/o failure")
	ErrDiskFull    = errors.New("no space left on device")
	ErrRejected    = errors.New("encoder rejected input")
	ErrToolMissing = errors.New("encoder tool not found")
)

// EncodeError reports a failed encode or write of one derivative.
type EncodeError struct {
	Format media.Format
	Kind   Kind
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s: %v", e.Format, e.Kind, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool {
	switch e.Kind {
	case KindIO:
		return target == ErrIO
	case KindDiskFull:
		return target == ErrDiskFull
	case KindRejected:
		return target == ErrRejected
	case KindToolMissing:
		return target == ErrToolMissing
	}
	return false
}

// Pre-compiled regexes for classifying encoder-tool stderr. Disk exhaustion
// is checked first; anything that matches neither pattern is a rejection.
var (
	reDiskFull = regexp.MustCompile(
		`(?i)No space left on device|Disk quota exceeded|ENOSPC`)

	reIOFailure = regexp.MustCompile(
		`(?i)Permission denied|` +
			`(cannot|can't|could not|couldn't|failed to) (open|write|create|save)|` +
			`Input/output error|Read-only file system`)
)

// MatchDiskFull reports whether stderr says the output device is full.
func MatchDiskFull(stderr string) bool {
	return reDiskFull.MatchString(stderr)
}

// MatchIOFailure reports whether stderr describes a file access failure.
func MatchIOFailure(stderr string) bool {
	return reIOFailure.MatchString(stderr)
}

// WrapIO classifies a filesystem error raised while producing format f.
func WrapIO(f media.Format, err error) *EncodeError {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &EncodeError{Format: f, Kind: KindCanceled, Err: err}
	case errors.Is(err, syscall.ENOSPC):
		return &EncodeError{Format: f, Kind: KindDiskFull, Err: err}
	}
	return &EncodeError{Format: f, Kind: KindIO, Err: err}
}

// classify turns a failed tool run into an EncodeError.
func classify(ctx context.Context, f media.Format, res ExecResult) *EncodeError {
	if err := ctx.Err(); err != nil {
		return &EncodeError{Format: f, Kind: KindCanceled, Err: err}
	}
	if errors.Is(res.Err, exec.ErrNotFound) {
		return &EncodeError{Format: f, Kind: KindToolMissing, Err: res.Err}
	}

	err := res.Err
	if line := lastLine(res.Stderr); line != "" {
		err = fmt.Errorf("%w: %s", res.Err, line)
	}
	switch {
	case MatchDiskFull(res.Stderr):
		return &EncodeError{Format: f, Kind: KindDiskFull, Err: err}
	case MatchIOFailure(res.Stderr):
		return &EncodeError{Format: f, Kind: KindIO, Err: err}
	}
	return &EncodeError{Format: f, Kind: KindRejected, Err: err}
}

// lastLine returns the last non-empty stderr line, which is where the
// supported tools print their error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
