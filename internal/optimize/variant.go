package optimize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/planner"
)

// result is the outcome of one variant task.
type result struct {
	job     planner.Job
	desc    *media.VariantDescriptor
	err     error
	skipped bool // Never started because the context ended first.
}

// encodeVariant resizes, encodes, and stores one job. Failures are returned
// in the result, never as a panic.
func (o *Orchestrator) encodeVariant(ctx context.Context, inv *invocation, job planner.Job) result {
	r := result{job: job}
	if ctx.Err() != nil {
		r.skipped = true
		return r
	}

	start := time.Now()
	r.desc, r.err = o.produce(ctx, inv, job)
	elapsed := time.Since(start)

	var size int64
	if r.desc != nil {
		size = r.desc.Size
	}
	o.rec.ObserveVariant(job.Kind, job.Format, elapsed, size, r.err)

	if r.err != nil {
		inv.log.Warn().
			Str("variant", job.Kind.String()).
			Str("format", job.Format.String()).
			Int("width", job.Width).
			Err(r.err).
			Msg("variant failed")
		return r
	}
	inv.log.Debug().
		Str("variant", job.Kind.String()).
		Str("format", job.Format.String()).
		Int("width", job.Width).
		Str("id", r.desc.Identifier).
		Int64("bytes", size).
		Dur("elapsed", elapsed).
		Msg("variant written")
	return r
}

func (o *Orchestrator) produce(ctx context.Context, inv *invocation, job planner.Job) (desc *media.VariantDescriptor, err error) {
	defer func() {
		if p := recover(); p != nil {
			desc = nil
			err = &encoder.EncodeError{Format: job.Format, Kind: encoder.KindRejected, Err: fmt.Errorf("encoder panic: %v", p)}
		}
	}()

	enc, ok := o.registry.Lookup(job.Format)
	if !ok {
		return nil, &encoder.EncodeError{Format: job.Format, Kind: encoder.KindToolMissing, Err: errors.New("no encoder registered")}
	}

	img := inv.scaler.at(job.TargetWidth, job.TargetHeight)
	data, err := enc.Encode(ctx, img, job.Quality)
	if err != nil {
		return nil, err
	}

	id, err := o.store.Write(ctx, job.Key, data)
	if err != nil {
		return nil, encoder.WrapIO(job.Format, err)
	}

	desc = &media.VariantDescriptor{
		Kind:        job.Kind,
		Format:      job.Format,
		Identifier:  id,
		Size:        int64(len(data)),
		PixelWidth:  job.TargetWidth,
		PixelHeight: job.TargetHeight,
	}
	if job.Responsive() {
		w := job.Width
		desc.Width = &w
	}
	return desc, nil
}

// scaler resizes the decoded source at most once per target size, so every
// format at one responsive width shares a single resample.
type scaler struct {
	src image.Image

	mu    sync.Mutex
	cache map[image.Point]*scaled
}

type scaled struct {
	once sync.Once
	img  image.Image
}

func newScaler(src image.Image) *scaler {
	return &scaler{src: src, cache: make(map[image.Point]*scaled)}
}

func (s *scaler) at(w, h int) image.Image {
	pt := image.Pt(w, h)
	s.mu.Lock()
	e, ok := s.cache[pt]
	if !ok {
		e = &scaled{}
		s.cache[pt] = e
	}
	s.mu.Unlock()

	e.once.Do(func() { e.img = encoder.Resize(s.src, w, h) })
	return e.img
}
