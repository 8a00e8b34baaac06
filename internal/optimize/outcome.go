package optimize

import (
	"fmt"
	"math"

	"github.com/backmassage/mediaopt/internal/media"
)

// ResponsiveVariant is one entry of a responsive set.
type ResponsiveVariant struct {
	Width      int
	Descriptor media.VariantDescriptor
}

// VariantFailure records a derivative that could not be produced.
type VariantFailure struct {
	Kind   media.VariantKind
	Format media.Format
	Width  int // Requested responsive width; 0 for full-size variants.
	Err    error
}

func (f VariantFailure) String() string {
	if f.Width > 0 {
		return fmt.Sprintf("%s %s %dw: %v", f.Kind, f.Format, f.Width, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Format, f.Err)
}

// Outcome is the aggregate result of one optimization call. A nil variant
// pointer means the variant was not requested or failed.
type Outcome struct {
	InvocationID string
	Key          string
	Source       media.SourceMetadata

	Primary *media.VariantDescriptor
	WebP    *media.VariantDescriptor
	AVIF    *media.VariantDescriptor

	// Responsive lists, per format, the produced widths in plan order.
	// Formats with no successful width are absent.
	Responsive map[media.Format][]ResponsiveVariant

	OriginalSize int64
	Failures     []VariantFailure
}

func newOutcome(id, key string, meta media.SourceMetadata) *Outcome {
	return &Outcome{
		InvocationID: id,
		Key:          key,
		Source:       meta,
		Responsive:   make(map[media.Format][]ResponsiveVariant),
		OriginalSize: meta.Size,
	}
}

// OptimizedSize returns the primary variant's byte size. ok is false when
// the primary variant is absent.
func (o *Outcome) OptimizedSize() (size int64, ok bool) {
	if o.Primary == nil {
		return 0, false
	}
	return o.Primary.Size, true
}

// SavingsPercent returns (original - optimized) / original * 100 rounded to
// two decimals. It is negative when the re-encode grew the file. ok is false
// when the primary variant is absent.
func (o *Outcome) SavingsPercent() (pct float64, ok bool) {
	optimized, ok := o.OptimizedSize()
	if !ok || o.OriginalSize <= 0 {
		return 0, false
	}
	return Savings(o.OriginalSize, optimized), true
}

// Savings returns (original - optimized) / original * 100 rounded to two
// decimals. original must be positive.
func Savings(original, optimized int64) float64 {
	raw := float64(original-optimized) / float64(original) * 100
	return math.Round(raw*100) / 100
}

// NextGen returns the full-size next-gen descriptor for f, or nil.
func (o *Outcome) NextGen(f media.Format) *media.VariantDescriptor {
	switch f {
	case media.FormatWebP:
		return o.WebP
	case media.FormatAVIF:
		return o.AVIF
	}
	return nil
}

// Descriptors returns every produced descriptor: primary, next-gen, then
// responsive grouped by format in emission order.
func (o *Outcome) Descriptors() []media.VariantDescriptor {
	var out []media.VariantDescriptor
	for _, d := range []*media.VariantDescriptor{o.Primary, o.WebP, o.AVIF} {
		if d != nil {
			out = append(out, *d)
		}
	}
	for _, f := range []media.Format{media.FormatJPEG, media.FormatPNG, media.FormatWebP, media.FormatAVIF} {
		for _, rv := range o.Responsive[f] {
			out = append(out, rv.Descriptor)
		}
	}
	return out
}

// SmallestNextGen returns the smaller of the produced next-gen variants.
func (o *Outcome) SmallestNextGen() *media.VariantDescriptor {
	switch {
	case o.WebP == nil:
		return o.AVIF
	case o.AVIF == nil:
		return o.WebP
	case o.AVIF.Size < o.WebP.Size:
		return o.AVIF
	}
	return o.WebP
}

// fold places one finished task into the outcome.
func (o *Outcome) fold(r result) {
	if r.err != nil {
		o.Failures = append(o.Failures, VariantFailure{
			Kind:   r.job.Kind,
			Format: r.job.Format,
			Width:  r.job.Width,
			Err:    r.err,
		})
		return
	}
	d := r.desc
	switch r.job.Kind {
	case media.KindPrimary:
		o.Primary = d
	case media.KindNextGen:
		switch r.job.Format {
		case media.FormatWebP:
			o.WebP = d
		case media.FormatAVIF:
			o.AVIF = d
		}
	case media.KindResponsive:
		o.Responsive[r.job.Format] = append(o.Responsive[r.job.Format], ResponsiveVariant{
			Width:      r.job.Width,
			Descriptor: *d,
		})
	}
}
