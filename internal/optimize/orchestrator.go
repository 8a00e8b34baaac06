package optimize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/planner"
	"github.com/backmassage/mediaopt/internal/probe"
	"github.com/backmassage/mediaopt/internal/storage"
)

// Recorder observes every attempted variant. Implementations must be safe
// for concurrent use.
type Recorder interface {
	ObserveVariant(kind media.VariantKind, f media.Format, elapsed time.Duration, size int64, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveVariant(media.VariantKind, media.Format, time.Duration, int64, error) {}

// Options configures an Orchestrator. Registry and Store are required.
type Options struct {
	Registry *encoder.Registry
	Store    storage.Store
	Tuning   planner.Tuning
	Limits   probe.Limits

	// Workers bounds concurrent variant encodes within one call.
	// Values below 1 mean 1, which runs variants sequentially.
	Workers int

	Logger   zerolog.Logger
	Recorder Recorder
}

// Orchestrator runs optimization calls. It holds no per-call state and is
// safe for concurrent use; each call owns the output keys derived from its
// source key.
type Orchestrator struct {
	registry *encoder.Registry
	store    storage.Store
	tuning   planner.Tuning
	limits   probe.Limits
	workers  int
	log      zerolog.Logger
	rec      Recorder
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		return nil, errors.New("optimize: encoder registry is required")
	}
	if opts.Store == nil {
		return nil, errors.New("optimize: output store is required")
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	o := &Orchestrator{
		registry: opts.Registry,
		store:    opts.Store,
		tuning:   opts.Tuning,
		limits:   opts.Limits,
		workers:  max(opts.Workers, 1),
		log:      opts.Logger,
		rec:      opts.Recorder,
	}
	if o.rec == nil {
		o.rec = nopRecorder{}
	}
	return o, nil
}

// Optimize produces the full derivative set of src under plan.
//
// The returned error is non-nil only when src fails to probe or decode (an
// *Error), when plan is invalid, or when ctx is done. On cancellation the
// outcome holds whatever finished before the context ended.
func (o *Orchestrator) Optimize(ctx context.Context, src media.SourceAsset, plan planner.VariantPlan) (*Outcome, error) {
	plan = plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("optimize %q: %w", src.Key, err)
	}
	inv, err := o.begin(ctx, src)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, inv, planner.BuildJobs(plan, o.tuning, inv.meta, src.Key))
}

// ConvertNextGen produces only the full-size next-gen variants enabled by
// plan. No primary or responsive variants are written.
func (o *Orchestrator) ConvertNextGen(ctx context.Context, src media.SourceAsset, plan planner.VariantPlan) (*Outcome, error) {
	plan = plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("optimize %q: %w", src.Key, err)
	}
	inv, err := o.begin(ctx, src)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, inv, planner.NextGenJobs(plan, o.tuning, inv.meta, src.Key))
}

// invocation is the per-call state shared read-only by its variant tasks.
type invocation struct {
	id     string
	key    string
	meta   media.SourceMetadata
	scaler *scaler
	log    zerolog.Logger
}

func (o *Orchestrator) newInvocation(key string, meta media.SourceMetadata, img image.Image) *invocation {
	id := uuid.NewString()
	return &invocation{
		id:     id,
		key:    key,
		meta:   meta,
		scaler: newScaler(img),
		log:    o.log.With().Str("invocation", id).Str("key", key).Logger(),
	}
}

// begin probes and decodes src. Both failures are fatal to the call.
func (o *Orchestrator) begin(ctx context.Context, src media.SourceAsset) (*invocation, error) {
	meta, err := probe.Probe(ctx, src, o.limits)
	if err != nil {
		return nil, o.fatal(src.Key, err)
	}
	img, err := probe.Decode(ctx, src)
	if err != nil {
		return nil, o.fatal(src.Key, err)
	}
	inv := o.newInvocation(src.Key, meta, img)
	inv.log.Debug().
		Str("format", meta.Format.String()).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Int64("bytes", meta.Size).
		Msg("source probed")
	return inv, nil
}

func (o *Orchestrator) fatal(key string, err error) error {
	var pe *probe.ProbeError
	if !errors.As(err, &pe) {
		return err
	}
	o.log.Warn().Str("key", key).Err(err).Msg("source rejected")
	return &Error{Key: key, Err: err}
}

// execute runs jobs on the bounded pool and folds the results in job order.
func (o *Orchestrator) execute(ctx context.Context, inv *invocation, jobs []planner.Job) (*Outcome, error) {
	results := make([]result, len(jobs))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, job := range jobs {
		results[i] = result{job: job, skipped: true}
		if ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			results[i] = o.encodeVariant(ctx, inv, job)
			return nil
		})
	}
	_ = g.Wait()

	out := newOutcome(inv.id, inv.key, inv.meta)
	for _, r := range results {
		if !r.skipped {
			out.fold(r)
		}
	}
	if err := ctx.Err(); err != nil {
		inv.log.Warn().Err(err).Int("failures", len(out.Failures)).Msg("optimization abandoned")
		return out, err
	}
	inv.log.Debug().Int("failures", len(out.Failures)).Msg("optimization complete")
	return out, nil
}
