package planner

import (
	"errors"
	"fmt"
)

// Defaults applied by DefaultVariantPlan and Normalize.
const (
	DefaultMaxWidth  = 1920
	DefaultMaxHeight = 1920
	DefaultQuality   = 85
)

// DefaultResponsiveWidths are the srcset widths produced when not overridden.
var DefaultResponsiveWidths = []int{300, 600, 1200}

// DefaultVariantPlan returns the plan used when a caller omits every field.
func DefaultVariantPlan() VariantPlan {
	return VariantPlan{
		MaxWidth:         DefaultMaxWidth,
		MaxHeight:        DefaultMaxHeight,
		Quality:          DefaultQuality,
		ResponsiveWidths: append([]int(nil), DefaultResponsiveWidths...),
	}
}

// DefaultTuning returns the per-format encoder settings.
func DefaultTuning() Tuning {
	return Tuning{
		WebPQualityOffset:  5,
		AVIFQualityOffset:  10,
		JPEGProgressive:    true,
		PNGBestCompression: true,
		WebPMethod:         4,
		AVIFSpeed:          6,
	}
}

// Normalize fills zero-valued bounds and quality with defaults and removes
// duplicate responsive widths, keeping first occurrences in order.
func (p VariantPlan) Normalize() VariantPlan {
	if p.MaxWidth == 0 {
		p.MaxWidth = DefaultMaxWidth
	}
	if p.MaxHeight == 0 {
		p.MaxHeight = DefaultMaxHeight
	}
	if p.Quality == 0 {
		p.Quality = DefaultQuality
	}
	if p.ResponsiveWidths == nil {
		p.ResponsiveWidths = append([]int(nil), DefaultResponsiveWidths...)
	}
	seen := make(map[int]bool, len(p.ResponsiveWidths))
	widths := make([]int, 0, len(p.ResponsiveWidths))
	for _, w := range p.ResponsiveWidths {
		if seen[w] {
			continue
		}
		seen[w] = true
		widths = append(widths, w)
	}
	p.ResponsiveWidths = widths
	return p
}

// Validate checks ranges. Call after Normalize.
func (p VariantPlan) Validate() error {
	if p.MaxWidth < 0 || p.MaxHeight < 0 {
		return errors.New("max width and height must not be negative")
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100 (got %d)", p.Quality)
	}
	for _, w := range p.ResponsiveWidths {
		if w <= 0 {
			return fmt.Errorf("responsive widths must be positive (got %d)", w)
		}
	}
	return nil
}

// Validate checks tuning ranges.
func (t Tuning) Validate() error {
	if t.WebPQualityOffset < 0 || t.AVIFQualityOffset < 0 {
		return errors.New("quality offsets must not be negative")
	}
	if t.WebPMethod < 0 || t.WebPMethod > 6 {
		return fmt.Errorf("webp method must be between 0 and 6 (got %d)", t.WebPMethod)
	}
	if t.AVIFSpeed < 0 || t.AVIFSpeed > 10 {
		return fmt.Errorf("avif speed must be between 0 and 10 (got %d)", t.AVIFSpeed)
	}
	return nil
}
