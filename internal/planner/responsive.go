package planner

import "github.com/backmassage/mediaopt/internal/media"

// ResponsiveWidths returns the widths from requested that are strictly less
// than the source width, in request order. Wider targets would upscale or
// duplicate the full-size variant and are dropped silently. Widths above
// maxWidth are dropped too when maxWidth is positive.
func ResponsiveWidths(meta media.SourceMetadata, requested []int, maxWidth int) []int {
	out := make([]int, 0, len(requested))
	for _, w := range requested {
		if maxWidth > 0 && w > maxWidth {
			continue
		}
		if w > 0 && w < meta.Width {
			out = append(out, w)
		}
	}
	return out
}

// EmittedFormats returns the formats a plan produces for a source: the
// source's own format first, then each enabled next-gen format.
func EmittedFormats(p VariantPlan, source media.Format) []media.Format {
	formats := []media.Format{source}
	return append(formats, NextGenFormats(p)...)
}

// NextGenFormats returns the enabled next-gen formats, WebP before AVIF.
func NextGenFormats(p VariantPlan) []media.Format {
	var formats []media.Format
	if p.EmitsWebP() {
		formats = append(formats, media.FormatWebP)
	}
	if p.EmitsAVIF() {
		formats = append(formats, media.FormatAVIF)
	}
	return formats
}
