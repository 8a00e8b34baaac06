package encoder

import (
	"context"
	"image"
	"slices"

	"golang.org/x/image/draw"

	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/planner"
)

// Encoder produces the encoded bytes of img in one format. Implementations
// must be safe for concurrent use and must not retain img.
type Encoder interface {
	Format() media.Format
	Encode(ctx context.Context, img image.Image, quality int) ([]byte, error)
}

// Tools names the external encoder binaries. Bare names are resolved on
// PATH at encode time.
type Tools struct {
	CWebP    string
	AVIFEnc  string
	JPEGTran string

	// TempDir holds the intermediate files fed to the tools. Empty means
	// os.TempDir().
	TempDir string
}

// DefaultTools returns the conventional binary names.
func DefaultTools() Tools {
	return Tools{CWebP: "cwebp", AVIFEnc: "avifenc", JPEGTran: "jpegtran"}
}

// Registry maps a format to its encoder. It is read-only once built.
type Registry struct {
	encoders map[media.Format]Encoder
}

// NewRegistry returns a registry holding encs. A later encoder for the same
// format replaces an earlier one.
func NewRegistry(encs ...Encoder) *Registry {
	r := &Registry{encoders: make(map[media.Format]Encoder, len(encs))}
	for _, e := range encs {
		r.encoders[e.Format()] = e
	}
	return r
}

// Default returns the registry of all four built-in encoders configured from t.
func Default(t planner.Tuning, tools Tools) *Registry {
	return NewRegistry(
		&JPEG{Progressive: t.JPEGProgressive, JPEGTran: tools.JPEGTran},
		&PNG{BestCompression: t.PNGBestCompression},
		&WebP{Bin: tools.CWebP, Method: t.WebPMethod, TempDir: tools.TempDir},
		&AVIF{Bin: tools.AVIFEnc, Speed: t.AVIFSpeed, TempDir: tools.TempDir},
	)
}

// Lookup returns the encoder registered for f.
func (r *Registry) Lookup(f media.Format) (Encoder, bool) {
	e, ok := r.encoders[f]
	return e, ok
}

// With returns a copy of r with encs added or replaced.
func (r *Registry) With(encs ...Encoder) *Registry {
	out := &Registry{encoders: make(map[media.Format]Encoder, len(r.encoders)+len(encs))}
	for f, e := range r.encoders {
		out.encoders[f] = e
	}
	for _, e := range encs {
		out.encoders[e.Format()] = e
	}
	return out
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []media.Format {
	out := make([]media.Format, 0, len(r.encoders))
	for f := range r.encoders {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Resize scales img to exactly w x h with Catmull-Rom resampling. When img
// already has those dimensions it is returned unchanged.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
