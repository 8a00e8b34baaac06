package planner

import (
	"math"

	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/naming"
)

// BuildJobs produces the complete, ordered job list for one source. This is
// the central decision matrix the orchestrator executes.
//
// Order:
//  1. Primary re-encode in the source format, bound by MaxWidth x MaxHeight
//  2. Full-size WebP, then AVIF, when enabled (same bounds, offset quality)
//  3. Responsive jobs, width-major, over every emitted format (see [FanOutJobs])
func BuildJobs(p VariantPlan, t Tuning, meta media.SourceMetadata, key string) []Job {
	jobs := []Job{fullSizeJob(media.KindPrimary, meta.Format, p, t, meta, naming.Primary(key))}
	jobs = append(jobs, NextGenJobs(p, t, meta, key)...)
	if p.EmitsResponsive() {
		jobs = append(jobs, FanOutJobs(meta, key, ResponsiveWidths(meta, p.ResponsiveWidths, p.MaxWidth), EmittedFormats(p, meta.Format), p.Quality, t)...)
	}
	return jobs
}

// NextGenJobs returns the full-size next-gen jobs enabled by p.
func NextGenJobs(p VariantPlan, t Tuning, meta media.SourceMetadata, key string) []Job {
	var jobs []Job
	for _, f := range NextGenFormats(p) {
		jobs = append(jobs, fullSizeJob(media.KindNextGen, f, p, t, meta, naming.NextGen(key, f)))
	}
	return jobs
}

// DerivativeKeys returns every key p may write for the source at key,
// whatever its dimensions: the key set of [BuildJobs], or of [NextGenJobs]
// when nextGenOnly is set, for a source wider than every requested width.
func DerivativeKeys(p VariantPlan, key string, nextGenOnly bool) []string {
	var keys []string
	if !nextGenOnly {
		keys = append(keys, naming.Primary(key))
	}
	for _, f := range NextGenFormats(p) {
		keys = append(keys, naming.NextGen(key, f))
	}
	if nextGenOnly || !p.EmitsResponsive() {
		return keys
	}
	unbounded := media.SourceMetadata{Width: math.MaxInt}
	for _, w := range ResponsiveWidths(unbounded, p.ResponsiveWidths, p.MaxWidth) {
		for _, f := range EmittedFormats(p, media.FormatFromPath(key)) {
			keys = append(keys, naming.Responsive(key, w, f))
		}
	}
	return keys
}

// FanOutJobs returns one width-bound job per (width, format). Callers pass
// widths already filtered by [ResponsiveWidths]; any width not strictly
// below the source width is skipped here as well. Height is unconstrained so
// each output keeps the source aspect ratio.
func FanOutJobs(meta media.SourceMetadata, key string, widths []int, formats []media.Format, quality int, t Tuning) []Job {
	surviving := ResponsiveWidths(meta, widths, 0)
	jobs := make([]Job, 0, len(surviving)*len(formats))
	for _, w := range surviving {
		tw, th := FitInside(meta.Width, meta.Height, w, 0)
		for _, f := range formats {
			jobs = append(jobs, Job{
				Kind:         media.KindResponsive,
				Format:       f,
				Width:        w,
				TargetWidth:  tw,
				TargetHeight: th,
				Quality:      QualityFor(f, quality, t),
				Key:          naming.Responsive(key, w, f),
			})
		}
	}
	return jobs
}

func fullSizeJob(kind media.VariantKind, f media.Format, p VariantPlan, t Tuning, meta media.SourceMetadata, key string) Job {
	tw, th := FitInside(meta.Width, meta.Height, p.MaxWidth, p.MaxHeight)
	return Job{
		Kind:         kind,
		Format:       f,
		TargetWidth:  tw,
		TargetHeight: th,
		Quality:      QualityFor(f, p.Quality, t),
		Key:          key,
	}
}
