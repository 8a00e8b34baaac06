// Package report builds the YAML manifest of produced variant identifiers,
// one entry per source file, so callers can persist them after a walk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/mediaopt/internal/optimize"
)

// Manifest is the document written by Write.
type Manifest struct {
	Generated time.Time `yaml:"generated"`
	Root      string    `yaml:"root"`
	Mode      string    `yaml:"mode"`
	Sources   []Entry   `yaml:"sources"`
}

// Entry describes one source file and what was produced from it.
type Entry struct {
	Key        string `yaml:"key"`
	Invocation string `yaml:"invocation,omitempty"`
	Format     string `yaml:"format,omitempty"`
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`

	OriginalBytes  int64    `yaml:"original_bytes,omitempty"`
	OptimizedBytes int64    `yaml:"optimized_bytes,omitempty"`
	SavingsPercent *float64 `yaml:"savings_percent,omitempty"`

	Variants []Variant `yaml:"variants,omitempty"`
	Failures []string  `yaml:"failures,omitempty"`

	// Error is set when the source could not be processed at all.
	Error string `yaml:"error,omitempty"`
}

// Variant is one produced derivative.
type Variant struct {
	Kind        string `yaml:"kind"`
	Format      string `yaml:"format"`
	ID          string `yaml:"id"`
	Width       int    `yaml:"width,omitempty"` // Requested responsive width.
	PixelWidth  int    `yaml:"pixel_width"`
	PixelHeight int    `yaml:"pixel_height"`
	Bytes       int64  `yaml:"bytes"`
}

// FromOutcome converts an optimization outcome into a manifest entry.
func FromOutcome(out *optimize.Outcome) Entry {
	e := Entry{
		Key:           out.Key,
		Invocation:    out.InvocationID,
		Format:        out.Source.Format.String(),
		Width:         out.Source.Width,
		Height:        out.Source.Height,
		OriginalBytes: out.OriginalSize,
	}
	if size, ok := out.OptimizedSize(); ok {
		e.OptimizedBytes = size
	}
	if pct, ok := out.SavingsPercent(); ok {
		e.SavingsPercent = &pct
	}
	for _, d := range out.Descriptors() {
		v := Variant{
			Kind:        d.Kind.String(),
			Format:      d.Format.String(),
			ID:          d.Identifier,
			PixelWidth:  d.PixelWidth,
			PixelHeight: d.PixelHeight,
			Bytes:       d.Size,
		}
		if d.Width != nil {
			v.Width = *d.Width
		}
		e.Variants = append(e.Variants, v)
	}
	for _, f := range out.Failures {
		e.Failures = append(e.Failures, f.String())
	}
	return e
}

// Failed returns the entry for a source whose processing failed outright.
func Failed(key string, err error) Entry {
	return Entry{Key: key, Error: err.Error()}
}

// Write marshals m to path, creating parent directories as needed.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
