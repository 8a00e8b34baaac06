package media

import (
	"path/filepath"
	"strings"
)

// Format is an encoded image format tag.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp" // Next-gen format A.
	FormatAVIF    Format = "avif" // Next-gen format B.
)

// Extension returns the canonical file extension for f, with leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	case FormatAVIF:
		return ".avif"
	}
	return ""
}

// Optimizable reports whether f is accepted as a pipeline source.
func (f Format) Optimizable() bool {
	return f == FormatJPEG || f == FormatPNG
}

// NextGen reports whether f is one of the next-gen derivative formats.
func (f Format) NextGen() bool {
	return f == FormatWebP || f == FormatAVIF
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// ParseFormat maps a decoder name or extension ("jpg", ".JPEG", "png") to a Format.
func ParseFormat(s string) Format {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	case "avif":
		return FormatAVIF
	}
	return FormatUnknown
}

// FormatFromPath returns the Format implied by path's extension.
func FormatFromPath(path string) Format {
	return ParseFormat(filepath.Ext(path))
}
