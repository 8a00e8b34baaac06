package planner

import "github.com/backmassage/mediaopt/internal/media"

// VariantPlan configures the derivative set of one optimization call. Every
// field may be omitted: the zero VariantPlan, after [VariantPlan.Normalize],
// equals [DefaultVariantPlan]. Formats are opt-out so that omitting them
// keeps them on.
type VariantPlan struct {
	MaxWidth  int // Default: 1920.
	MaxHeight int // Default: 1920.
	Quality   int // 1-100. Default: 85. Next-gen formats subtract a Tuning offset.

	SkipWebP       bool // Suppress next-gen format A.
	SkipAVIF       bool // Suppress next-gen format B.
	SkipResponsive bool // Suppress responsive width variants.

	// ResponsiveWidths is an ordered set of target widths.
	// Default: 300, 600, 1200.
	ResponsiveWidths []int
}

// EmitsWebP reports whether p produces WebP variants.
func (p VariantPlan) EmitsWebP() bool { return !p.SkipWebP }

// EmitsAVIF reports whether p produces AVIF variants.
func (p VariantPlan) EmitsAVIF() bool { return !p.SkipAVIF }

// EmitsResponsive reports whether p produces responsive width variants.
func (p VariantPlan) EmitsResponsive() bool { return !p.SkipResponsive }

// Tuning holds the fixed per-format encoder settings. They are constructor
// parameters rather than constants so tests can vary them.
type Tuning struct {
	WebPQualityOffset int // Default: 5.
	AVIFQualityOffset int // Default: 10.

	JPEGProgressive    bool // Default: true. Lossless jpegtran rewrite when available.
	PNGBestCompression bool // Default: true. Go's encoder always filters adaptively.

	WebPMethod int // cwebp -m, 0 (fast) to 6 (slow). Default: 4.
	AVIFSpeed  int // avifenc -s, 0 (slow) to 10 (fast). Default: 6.
}

// Job is one encode the orchestrator performs.
type Job struct {
	Kind   media.VariantKind
	Format media.Format

	// Width is the requested responsive width; 0 for full-size variants.
	Width int

	// TargetWidth and TargetHeight are the fit-inside output dimensions.
	TargetWidth  int
	TargetHeight int

	Quality int
	Key     string
}

// Responsive reports whether j is a responsive job.
func (j Job) Responsive() bool { return j.Kind == media.KindResponsive }
