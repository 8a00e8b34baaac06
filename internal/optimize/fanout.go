package optimize

import (
	"context"
	"image"

	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/planner"
)

// FanOut produces width-bound variants of an already decoded source for
// every (width, format) pair. Widths not strictly below the source width, or
// above plan.MaxWidth, are skipped. Each format's list keeps the order of
// widths; a failed pair is omitted and reported in the returned failures.
func (o *Orchestrator) FanOut(
	ctx context.Context,
	img image.Image,
	meta media.SourceMetadata,
	key string,
	widths []int,
	formats []media.Format,
	plan planner.VariantPlan,
) (map[media.Format][]ResponsiveVariant, []VariantFailure, error) {
	plan = plan.Normalize()
	inv := o.newInvocation(key, meta, img)
	jobs := planner.FanOutJobs(meta, key, planner.ResponsiveWidths(meta, widths, plan.MaxWidth), formats, plan.Quality, o.tuning)

	out, err := o.execute(ctx, inv, jobs)
	return out.Responsive, out.Failures, err
}
