package optimize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/media/mediatest"
	"github.com/backmassage/mediaopt/internal/planner"
	"github.com/backmassage/mediaopt/internal/probe"
	"github.com/backmassage/mediaopt/internal/storage"
)

// --- Test doubles ---

// fakeEncoder stands in for the external next-gen tools. It records every
// call and returns a payload proportional to the pixel count.
type fakeEncoder struct {
	format media.Format
	err    error

	mu    sync.Mutex
	calls []encodeCall
}

type encodeCall struct {
	width, height, quality int
}

func (f *fakeEncoder) Format() media.Format { return f.format }

func (f *fakeEncoder) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	f.mu.Lock()
	f.calls = append(f.calls, encodeCall{b.Dx(), b.Dy(), quality})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, b.Dx()*b.Dy()/50+1), nil
}

func (f *fakeEncoder) Calls() []encodeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]encodeCall(nil), f.calls...)
}

// fullDiskStore fails writes to the listed keys with ENOSPC.
type fullDiskStore struct {
	storage.Store
	full map[string]bool
}

func (s *fullDiskStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s.full[key] {
		return "", fmt.Errorf("storage: write file: %w", &os.PathError{Op: "write", Path: key, Err: syscall.ENOSPC})
	}
	return s.Store.Write(ctx, key, data)
}

type recordedVariant struct {
	kind   media.VariantKind
	format media.Format
	failed bool
}

type memRecorder struct {
	mu   sync.Mutex
	seen []recordedVariant
}

func (r *memRecorder) ObserveVariant(kind media.VariantKind, f media.Format, _ time.Duration, _ int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedVariant{kind, f, err != nil})
}

type fixture struct {
	root string
	orch *Orchestrator
	webp *fakeEncoder
	avif *fakeEncoder
	rec  *memRecorder
}

type fixtureOption func(*Options)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFileStore(root)
	require.NoError(t, err)

	fx := &fixture{
		root: root,
		webp: &fakeEncoder{format: media.FormatWebP},
		avif: &fakeEncoder{format: media.FormatAVIF},
		rec:  &memRecorder{},
	}
	o := Options{
		Registry: encoder.NewRegistry(&encoder.JPEG{}, &encoder.PNG{}, fx.webp, fx.avif),
		Store:    store,
		Tuning:   planner.DefaultTuning(),
		Limits:   probe.DefaultLimits(),
		Workers:  1,
		Logger:   zerolog.Nop(),
		Recorder: fx.rec,
	}
	for _, opt := range opts {
		opt(&o)
	}
	fx.orch, err = New(o)
	require.NoError(t, err)
	return fx
}

func (fx *fixture) exists(key string) bool {
	_, err := os.Stat(filepath.Join(fx.root, filepath.FromSlash(key)))
	return err == nil
}

func responsiveWidths(rvs []ResponsiveVariant) []int {
	out := make([]int, 0, len(rvs))
	for _, rv := range rvs {
		out = append(out, rv.Width)
	}
	return out
}

// --- Construction ---

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Store: &storage.FileStore{}, Tuning: planner.DefaultTuning()})
	assert.Error(t, err)

	_, err = New(Options{Registry: encoder.NewRegistry(), Tuning: planner.DefaultTuning()})
	assert.Error(t, err)

	bad := planner.DefaultTuning()
	bad.WebPMethod = 9
	_, err = New(Options{Registry: encoder.NewRegistry(), Store: &storage.FileStore{}, Tuning: bad})
	assert.Error(t, err)
}

// --- Scenarios ---

func TestOptimize_LargeJPEG(t *testing.T) {
	fx := newFixture(t)
	data := mediatest.JPEG(t, 3000, 2000)

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("shop/chair.jpg", data), planner.DefaultVariantPlan())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.NotEmpty(t, out.InvocationID)
	assert.Equal(t, media.SourceMetadata{Width: 3000, Height: 2000, Size: int64(len(data)), Format: media.FormatJPEG}, out.Source)
	assert.Equal(t, int64(len(data)), out.OriginalSize)
	assert.Empty(t, out.Failures)

	require.NotNil(t, out.Primary)
	assert.Equal(t, media.FormatJPEG, out.Primary.Format)
	assert.Equal(t, "shop/chair-optimized.jpg", out.Primary.Identifier)
	assert.Nil(t, out.Primary.Width)
	assert.Equal(t, 1920, out.Primary.PixelWidth)
	assert.Equal(t, 1280, out.Primary.PixelHeight)
	assert.True(t, fx.exists("shop/chair-optimized.jpg"))

	require.NotNil(t, out.WebP)
	require.NotNil(t, out.AVIF)
	assert.Equal(t, "shop/chair.webp", out.WebP.Identifier)
	assert.Equal(t, "shop/chair.avif", out.AVIF.Identifier)

	// Full-size next-gen encodes share the primary bounds, at offset quality.
	webpCalls := fx.webp.Calls()
	avifCalls := fx.avif.Calls()
	require.Len(t, webpCalls, 4)
	require.Len(t, avifCalls, 4)
	assert.Equal(t, encodeCall{1920, 1280, 80}, webpCalls[0])
	assert.Equal(t, encodeCall{1920, 1280, 75}, avifCalls[0])

	for _, f := range []media.Format{media.FormatJPEG, media.FormatWebP, media.FormatAVIF} {
		rvs := out.Responsive[f]
		assert.Equal(t, []int{300, 600, 1200}, responsiveWidths(rvs), "%s widths", f)
		for _, rv := range rvs {
			require.NotNil(t, rv.Descriptor.Width)
			assert.Equal(t, rv.Width, *rv.Descriptor.Width)
			assert.Equal(t, rv.Width, rv.Descriptor.PixelWidth)
			assert.Equal(t, rv.Width*2/3, rv.Descriptor.PixelHeight)
			assert.True(t, fx.exists(rv.Descriptor.Identifier), rv.Descriptor.Identifier)
		}
	}
	assert.Equal(t, "shop/chair-300w.jpg", out.Responsive[media.FormatJPEG][0].Descriptor.Identifier)
	assert.Equal(t, "shop/chair-1200w.avif", out.Responsive[media.FormatAVIF][2].Descriptor.Identifier)

	size, ok := out.OptimizedSize()
	require.True(t, ok)
	assert.Equal(t, out.Primary.Size, size)
	pct, ok := out.SavingsPercent()
	require.True(t, ok)
	assert.Greater(t, pct, 0.0, "a 1920px q85 re-encode of a 3000px q95 source is smaller")

	assert.Len(t, fx.rec.seen, 12)
	assert.Len(t, out.Descriptors(), 12)
}

func TestOptimize_ZeroPlanUsesDefaults(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("hero.jpg", mediatest.JPEG(t, 1600, 1000)), planner.VariantPlan{})
	require.NoError(t, err)

	require.NotNil(t, out.Primary)
	assert.Equal(t, 1600, out.Primary.PixelWidth, "within the default 1920 bound")
	require.NotNil(t, out.WebP, "WebP is on unless skipped")
	require.NotNil(t, out.AVIF, "AVIF is on unless skipped")
	assert.Equal(t, encodeCall{1600, 1000, 80}, fx.webp.Calls()[0], "default quality 85 minus the WebP offset")
	for _, f := range []media.Format{media.FormatJPEG, media.FormatWebP, media.FormatAVIF} {
		assert.Equal(t, []int{300, 600, 1200}, responsiveWidths(out.Responsive[f]), "%s widths", f)
	}
	assert.Len(t, out.Descriptors(), 12)
}

func TestOptimize_SmallPNG(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("logo.png", mediatest.PNG(t, 200, 200)), planner.DefaultVariantPlan())
	require.NoError(t, err)

	require.NotNil(t, out.Primary)
	assert.Equal(t, media.FormatPNG, out.Primary.Format)
	assert.Equal(t, "logo-optimized.png", out.Primary.Identifier)
	assert.Equal(t, 200, out.Primary.PixelWidth)
	assert.Equal(t, 200, out.Primary.PixelHeight)

	require.NotNil(t, out.WebP)
	require.NotNil(t, out.AVIF)
	assert.Equal(t, 200, out.WebP.PixelWidth)
	assert.Empty(t, out.Responsive, "no width in the default set is below 200")
}

func TestOptimize_PrimaryDiskFull(t *testing.T) {
	fx := newFixture(t, func(o *Options) {
		o.Store = &fullDiskStore{Store: o.Store, full: map[string]bool{"chair-optimized.jpg": true}}
	})

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("chair.jpg", mediatest.JPEG(t, 1600, 900)), planner.DefaultVariantPlan())
	require.NoError(t, err, "a failed primary is not fatal")

	assert.Nil(t, out.Primary)
	_, ok := out.OptimizedSize()
	assert.False(t, ok)
	_, ok = out.SavingsPercent()
	assert.False(t, ok)

	require.NotNil(t, out.WebP)
	require.NotNil(t, out.AVIF)
	for _, f := range []media.Format{media.FormatJPEG, media.FormatWebP, media.FormatAVIF} {
		assert.Equal(t, []int{300, 600, 1200}, responsiveWidths(out.Responsive[f]), "%s widths", f)
	}

	require.Len(t, out.Failures, 1)
	failure := out.Failures[0]
	assert.Equal(t, media.KindPrimary, failure.Kind)
	assert.Equal(t, media.FormatJPEG, failure.Format)
	assert.ErrorIs(t, failure.Err, encoder.ErrDiskFull)
	assert.False(t, fx.exists("chair-optimized.jpg"))
}

func TestOptimize_NextGenDisabled(t *testing.T) {
	fx := newFixture(t)
	plan := planner.DefaultVariantPlan()
	plan.SkipWebP = true
	plan.SkipAVIF = true

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("chair.jpg", mediatest.JPEG(t, 1600, 900)), plan)
	require.NoError(t, err)

	assert.NotNil(t, out.Primary)
	assert.Nil(t, out.WebP)
	assert.Nil(t, out.AVIF)
	assert.Len(t, out.Responsive, 1)
	assert.Equal(t, []int{300, 600, 1200}, responsiveWidths(out.Responsive[media.FormatJPEG]))
	assert.Empty(t, fx.webp.Calls())
	assert.Empty(t, fx.avif.Calls())
}

func TestOptimize_ResponsiveDisabled(t *testing.T) {
	fx := newFixture(t)
	plan := planner.DefaultVariantPlan()
	plan.SkipResponsive = true

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("chair.jpg", mediatest.JPEG(t, 800, 600)), plan)
	require.NoError(t, err)
	assert.NotNil(t, out.Primary)
	assert.NotNil(t, out.WebP)
	assert.Empty(t, out.Responsive)
}

func TestOptimize_NextGenFailureIsIsolated(t *testing.T) {
	fx := newFixture(t)
	fx.webp.err = &encoder.EncodeError{Format: media.FormatWebP, Kind: encoder.KindRejected, Err: errors.New("bad input")}

	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("chair.jpg", mediatest.JPEG(t, 1400, 1000)), planner.DefaultVariantPlan())
	require.NoError(t, err)

	assert.NotNil(t, out.Primary)
	assert.Nil(t, out.WebP)
	assert.NotNil(t, out.AVIF)
	assert.NotContains(t, out.Responsive, media.FormatWebP)
	assert.Equal(t, []int{300, 600, 1200}, responsiveWidths(out.Responsive[media.FormatAVIF]))
	assert.Len(t, out.Failures, 4, "full-size plus three widths")
	for _, f := range out.Failures {
		assert.ErrorIs(t, f.Err, encoder.ErrRejected)
	}
	_, ok := out.SavingsPercent()
	assert.True(t, ok)
}

func TestOptimize_MissingEncoder(t *testing.T) {
	fx := newFixture(t, func(o *Options) {
		o.Registry = encoder.NewRegistry(&encoder.JPEG{}, &encoder.PNG{})
	})
	out, err := fx.orch.Optimize(context.Background(), media.BytesSource("chair.jpg", mediatest.JPEG(t, 400, 300)), planner.DefaultVariantPlan())
	require.NoError(t, err)
	assert.NotNil(t, out.Primary)
	assert.Nil(t, out.WebP)
	assert.Nil(t, out.AVIF)
	assert.Equal(t, []int{300}, responsiveWidths(out.Responsive[media.FormatJPEG]))
	for _, f := range out.Failures {
		assert.ErrorIs(t, f.Err, encoder.ErrToolMissing)
	}
}

func TestOptimize_ProbeFailureIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		src      media.SourceAsset
		sentinel error
	}{
		{"gif", media.BytesSource("anim.gif", mediatest.GIF(t, 40, 40)), probe.ErrUnsupported},
		{"garbage", media.BytesSource("chair.jpg", []byte("not an image at all")), probe.ErrUnsupported},
		{"corrupt", media.BytesSource("chair.jpg", mediatest.JPEG(t, 100, 100)[:20]), probe.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			out, err := fx.orch.Optimize(context.Background(), tt.src, planner.DefaultVariantPlan())
			assert.Nil(t, out)

			var oe *Error
			require.True(t, errors.As(err, &oe), "want *Error, got %T", err)
			assert.Equal(t, tt.src.Key, oe.Key)
			assert.ErrorIs(t, err, tt.sentinel)

			entries, readErr := os.ReadDir(fx.root)
			require.NoError(t, readErr)
			assert.Empty(t, entries, "nothing is written for a rejected source")
		})
	}
}

func TestOptimize_TooLarge(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.Limits = probe.Limits{MaxDimension: 500} })
	_, err := fx.orch.Optimize(context.Background(), media.BytesSource("wide.jpg", mediatest.JPEG(t, 600, 100)), planner.DefaultVariantPlan())
	assert.ErrorIs(t, err, probe.ErrTooLarge)
}

func TestOptimize_InvalidPlan(t *testing.T) {
	fx := newFixture(t)
	plan := planner.DefaultVariantPlan()
	plan.Quality = 140
	_, err := fx.orch.Optimize(context.Background(), media.BytesSource("a.jpg", mediatest.JPEG(t, 10, 10)), plan)
	assert.Error(t, err)
}

// cancelingEncoder cancels the call's context during its first encode.
type cancelingEncoder struct {
	encoder.Encoder
	cancel context.CancelFunc
}

func (c *cancelingEncoder) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	c.cancel()
	return c.Encoder.Encode(context.Background(), img, quality)
}

func TestOptimize_CancelStopsRemainingVariants(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx := newFixture(t, func(o *Options) {
		o.Registry = o.Registry.With(&cancelingEncoder{Encoder: &encoder.JPEG{}, cancel: cancel})
	})

	out, err := fx.orch.Optimize(ctx, media.BytesSource("chair.jpg", mediatest.JPEG(t, 1600, 900)), planner.DefaultVariantPlan())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out, "partial outcome is returned")

	// The primary's write sees the canceled context; nothing after it starts.
	assert.Nil(t, out.Primary)
	require.Len(t, out.Failures, 1)
	assert.ErrorIs(t, out.Failures[0].Err, context.Canceled)
	assert.Nil(t, out.WebP)
	assert.Empty(t, out.Responsive)
	assert.Empty(t, fx.webp.Calls())
}

func TestOptimize_CanceledBeforeStart(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := fx.orch.Optimize(ctx, media.BytesSource("chair.jpg", mediatest.JPEG(t, 100, 100)), planner.DefaultVariantPlan())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimize_WorkersDoNotChangeOutcome(t *testing.T) {
	data := mediatest.JPEG(t, 1500, 1000)
	identifiers := func(workers int) []string {
		fx := newFixture(t, func(o *Options) { o.Workers = workers })
		out, err := fx.orch.Optimize(context.Background(), media.BytesSource("shop/chair.jpg", data), planner.DefaultVariantPlan())
		require.NoError(t, err)
		var ids []string
		for _, d := range out.Descriptors() {
			ids = append(ids, d.Identifier)
		}
		return ids
	}
	assert.Equal(t, identifiers(1), identifiers(4))
}

func TestOptimize_ConcurrentCalls(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.Workers = 2 })
	data := mediatest.JPEG(t, 700, 400)
	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("batch/img%d.jpg", i)
			_, errs[i] = fx.orch.Optimize(context.Background(), media.BytesSource(key, data), planner.DefaultVariantPlan())
		}()
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
		assert.True(t, fx.exists(fmt.Sprintf("batch/img%d-optimized.jpg", i)))
		assert.True(t, fx.exists(fmt.Sprintf("batch/img%d-600w.webp", i)))
	}
}

// --- Bounds and quality ---

func TestOptimize_BoundsAndQuality(t *testing.T) {
	sizes := []image.Point{{2500, 1000}, {600, 900}, {1200, 1200}, {301, 50}}
	for _, sz := range sizes {
		t.Run(fmt.Sprintf("%dx%d", sz.X, sz.Y), func(t *testing.T) {
			fx := newFixture(t, func(o *Options) { o.Workers = 3 })
			plan := planner.DefaultVariantPlan()
			plan.Quality = 70
			out, err := fx.orch.Optimize(context.Background(), media.BytesSource("x.jpg", mediatest.JPEG(t, sz.X, sz.Y)), plan)
			require.NoError(t, err)

			for f, rvs := range out.Responsive {
				for _, rv := range rvs {
					assert.Less(t, rv.Width, sz.X, "%s responsive width below source width", f)
				}
			}
			for _, d := range out.Descriptors() {
				assert.LessOrEqual(t, d.PixelWidth, min(sz.X, plan.MaxWidth))
				assert.LessOrEqual(t, d.PixelHeight, plan.MaxHeight)
			}
			for _, c := range fx.webp.Calls() {
				assert.Equal(t, 65, c.quality)
			}
			for _, c := range fx.avif.Calls() {
				assert.Equal(t, 60, c.quality)
			}
		})
	}
}

// --- Next-gen only and fan-out entry points ---

func TestConvertNextGen(t *testing.T) {
	fx := newFixture(t)
	out, err := fx.orch.ConvertNextGen(context.Background(), media.BytesSource("shop/chair.jpg", mediatest.JPEG(t, 2400, 1200)), planner.DefaultVariantPlan())
	require.NoError(t, err)

	assert.Nil(t, out.Primary)
	assert.Empty(t, out.Responsive)
	require.NotNil(t, out.WebP)
	require.NotNil(t, out.AVIF)
	assert.Equal(t, 1920, out.WebP.PixelWidth)
	assert.Equal(t, 960, out.WebP.PixelHeight)
	assert.True(t, fx.exists("shop/chair.webp"))
	assert.True(t, fx.exists("shop/chair.avif"))
	assert.False(t, fx.exists("shop/chair-optimized.jpg"))
	assert.Same(t, out.WebP, out.SmallestNextGen(), "equal sizes resolve to WebP")
}

func TestFanOut(t *testing.T) {
	fx := newFixture(t)
	img := mediatest.Gradient(200, 100)
	meta := media.SourceMetadata{Width: 200, Height: 100, Size: 1000, Format: media.FormatPNG}

	got, failures, err := fx.orch.FanOut(context.Background(), img, meta, "icons/star.png",
		[]int{150, 200, 50, 400, 100}, []media.Format{media.FormatPNG, media.FormatWebP}, planner.DefaultVariantPlan())
	require.NoError(t, err)
	assert.Empty(t, failures)

	assert.Equal(t, []int{150, 50, 100}, responsiveWidths(got[media.FormatPNG]), "plan order kept, widths >= source dropped")
	assert.Equal(t, []int{150, 50, 100}, responsiveWidths(got[media.FormatWebP]))
	assert.Equal(t, "icons/star-50w.webp", got[media.FormatWebP][1].Descriptor.Identifier)
	assert.Equal(t, 75, got[media.FormatPNG][0].Descriptor.PixelHeight)
}

func TestFanOut_PairFailureDropsOnlyThatEntry(t *testing.T) {
	fx := newFixture(t, func(o *Options) {
		o.Store = &fullDiskStore{Store: o.Store, full: map[string]bool{"star-100w.webp": true}}
	})
	meta := media.SourceMetadata{Width: 200, Height: 200, Format: media.FormatPNG}

	got, failures, err := fx.orch.FanOut(context.Background(), mediatest.Gradient(200, 200), meta, "star.png",
		[]int{50, 100, 150}, []media.Format{media.FormatPNG, media.FormatWebP}, planner.DefaultVariantPlan())
	require.NoError(t, err)

	assert.Equal(t, []int{50, 100, 150}, responsiveWidths(got[media.FormatPNG]))
	assert.Equal(t, []int{50, 150}, responsiveWidths(got[media.FormatWebP]))
	require.Len(t, failures, 1)
	assert.Equal(t, 100, failures[0].Width)
	assert.Equal(t, media.KindResponsive, failures[0].Kind)
}
