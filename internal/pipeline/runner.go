package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/mediaopt/internal/config"
	"github.com/backmassage/mediaopt/internal/display"
	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/media"
	"github.com/backmassage/mediaopt/internal/metrics"
	"github.com/backmassage/mediaopt/internal/naming"
	"github.com/backmassage/mediaopt/internal/optimize"
	"github.com/backmassage/mediaopt/internal/planner"
	"github.com/backmassage/mediaopt/internal/report"
	"github.com/backmassage/mediaopt/internal/storage"
)

// FileObserver is notified once per source file with its result.
type FileObserver interface {
	ObserveFile(result string)
}

// Options carries optional collaborators for Run.
type Options struct {
	Observer FileObserver
}

// Summary is what a walk produced.
type Summary struct {
	Tally BatchTally

	// Entries holds one manifest entry per attempted file, in walk order.
	Entries []report.Entry
}

// fileResult is the outcome of one file, placed at its index in the walk.
type fileResult struct {
	key     string
	outcome *optimize.Outcome
	err     error
	started bool
}

// NewOrchestrator builds the orchestrator described by cfg: the built-in
// encoders configured from its tuning and tool paths, writing into its
// output root. rec may be nil.
func NewOrchestrator(cfg *config.Config, log zerolog.Logger, rec optimize.Recorder) (*optimize.Orchestrator, error) {
	store, err := storage.NewFileStore(cfg.OutputRoot())
	if err != nil {
		return nil, err
	}
	return optimize.New(optimize.Options{
		Registry: encoder.Default(cfg.Tuning(), cfg.Tools()),
		Store:    store,
		Tuning:   cfg.Tuning(),
		Limits:   cfg.Limits(),
		Workers:  cfg.EncodeWorkers,
		Logger:   log,
		Recorder: rec,
	})
}

// Run is the top-level batch entry point. It discovers files under
// cfg.InputDir, optimizes up to cfg.Jobs of them at once, and returns the
// aggregate tally. A failing file never stops the walk; cancellation stops
// dispatching new files and lets in-flight ones return their partial work.
func Run(ctx context.Context, cfg *config.Config, orch *optimize.Orchestrator, log zerolog.Logger, opts Options) Summary {
	var sum Summary

	files, err := Discover(cfg.InputDir, DiscoverOptions{
		ExcludeDirs: cfg.ExcludeDirs,
		OnError: func(path string, err error) {
			log.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("file discovery failed")
		return sum
	}
	sum.Tally.Scanned = len(files)
	logBatchHeader(cfg, log, len(files))
	collisions := claimKeys(cfg, files)

	if cfg.DryRun {
		for i, path := range files {
			if collisions[i] != nil {
				log.Warn().Err(collisions[i]).Msgf("[%d/%d] [DRY] would skip %s", i+1, len(files), relKey(cfg.InputDir, path))
				continue
			}
			log.Info().Msgf("[%d/%d] [DRY] would optimize %s", i+1, len(files), relKey(cfg.InputDir, path))
		}
		return sum
	}

	results := make([]fileResult, len(files))
	g := new(errgroup.Group)
	g.SetLimit(max(cfg.Jobs, 1))
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		if collisions[i] != nil {
			key := relKey(cfg.InputDir, path)
			log.Error().Str("key", key).Err(collisions[i]).Msgf("[%d/%d] cannot optimize", i+1, len(files))
			results[i] = fileResult{key: key, err: collisions[i], started: true}
			continue
		}
		g.Go(func() error {
			results[i] = processFile(ctx, cfg, orch, log, path, i+1, len(files))
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		log.Warn().Msg("interrupted")
	}

	for i := range results {
		sum.fold(cfg.Mode, results[i], opts.Observer)
	}
	logSummary(log, &sum.Tally)
	return sum
}

// claimKeys assigns every planned derivative key to the first source, in
// walk order, that would write it. A later source whose keys clash (chair.jpg
// and chair.png both deriving chair.webp) gets an error at its index and is
// not optimized, so no two invocations ever write the same key.
func claimKeys(cfg *config.Config, files []string) []error {
	plan := cfg.Plan().Normalize()
	nextGenOnly := cfg.Mode == config.ModeNextGen
	resolver := naming.NewCollisionResolver()
	errs := make([]error, len(files))
	for i, path := range files {
		key := relKey(cfg.InputDir, path)
		if clashes := resolver.Claim(key, planner.DerivativeKeys(plan, key, nextGenOnly)); len(clashes) > 0 {
			errs[i] = naming.CollisionError(key, clashes)
		}
	}
	return errs
}

// processFile runs one orchestrator invocation and logs its result.
func processFile(ctx context.Context, cfg *config.Config, orch *optimize.Orchestrator, log zerolog.Logger, path string, n, total int) fileResult {
	key := relKey(cfg.InputDir, path)
	r := fileResult{key: key}
	if ctx.Err() != nil {
		return r
	}
	r.started = true

	log.Info().Msgf("[%d/%d] %s", n, total, key)
	start := time.Now()
	src := media.FileSource(path, key)
	if cfg.Mode == config.ModeNextGen {
		r.outcome, r.err = orch.ConvertNextGen(ctx, src, cfg.Plan())
	} else {
		r.outcome, r.err = orch.Optimize(ctx, src, cfg.Plan())
	}

	fileLog := log.With().Str("key", key).Logger()
	switch {
	case r.outcome == nil && isCanceled(r.err):
		fileLog.Warn().Msg("interrupted before any variant")
	case r.outcome == nil:
		fileLog.Error().Err(r.err).Msg("cannot optimize")
	default:
		logOutcome(cfg.Mode, fileLog, r.outcome, time.Since(start))
	}
	return r
}

// fold adds one file's result to the summary. It is the only place the
// tally is mutated.
func (s *Summary) fold(mode config.Mode, r fileResult, obs FileObserver) {
	t := &s.Tally
	if !r.started {
		t.Interrupted++
		return
	}
	if r.outcome == nil {
		if isCanceled(r.err) {
			t.Interrupted++
			return
		}
		t.Failed++
		observe(obs, metrics.FileFailed)
		s.Entries = append(s.Entries, report.Failed(r.key, r.err))
		return
	}

	out := r.outcome
	if isCanceled(r.err) {
		t.Interrupted++
	} else {
		t.Processed++
		if len(out.Failures) > 0 {
			t.Partial++
		}
		observe(obs, metrics.FileOptimized)
	}
	if size, ok := comparableSize(mode, out); ok {
		t.OriginalBytes += out.OriginalSize
		t.OptimizedBytes += size
	}
	s.Entries = append(s.Entries, report.FromOutcome(out))
}

// comparableSize returns the variant size measured against the source: the
// primary in full mode, the smallest next-gen variant in nextgen mode.
func comparableSize(mode config.Mode, out *optimize.Outcome) (int64, bool) {
	if mode == config.ModeNextGen {
		if d := out.SmallestNextGen(); d != nil {
			return d.Size, true
		}
		return 0, false
	}
	return out.OptimizedSize()
}

// savingsPercent is Outcome.SavingsPercent in full mode and the same formula
// applied to the smallest next-gen variant in nextgen mode.
func savingsPercent(mode config.Mode, out *optimize.Outcome) (float64, bool) {
	if mode == config.ModeNextGen {
		d := out.SmallestNextGen()
		if d == nil || out.OriginalSize <= 0 {
			return 0, false
		}
		return optimize.Savings(out.OriginalSize, d.Size), true
	}
	return out.SavingsPercent()
}

func observe(obs FileObserver, result string) {
	if obs != nil {
		obs.ObserveFile(result)
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// relKey returns path relative to root with forward slashes, which is the
// storage key derivatives are named from.
func relKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(filepath.Base(path))
	}
	return filepath.ToSlash(rel)
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log zerolog.Logger, total int) {
	log.Info().Msgf("Found %d files", total)
	log.Info().
		Str("mode", string(cfg.Mode)).
		Str("bounds", display.FormatDimensions(cfg.MaxWidth, cfg.MaxHeight)).
		Int("quality", cfg.Quality).
		Bool("webp", cfg.EmitWebP).
		Bool("avif", cfg.EmitAVIF).
		Bool("responsive", cfg.EmitResponsive && cfg.Mode == config.ModeFull).
		Ints("widths", cfg.ResponsiveWidths).
		Int("jobs", cfg.Jobs).
		Int("encode_workers", cfg.EncodeWorkers).
		Msg("plan")
}

func logOutcome(mode config.Mode, log zerolog.Logger, out *optimize.Outcome, elapsed time.Duration) {
	ev := log.Info()
	if len(out.Failures) > 0 {
		ev = log.Warn().Int("failed_variants", len(out.Failures))
	}
	ev = ev.
		Str("source", display.FormatDimensions(out.Source.Width, out.Source.Height)).
		Str("original", display.FormatBytes(out.OriginalSize)).
		Int("variants", len(out.Descriptors())).
		Dur("elapsed", elapsed)

	if size, ok := comparableSize(mode, out); ok {
		ev = ev.Str("optimized", display.FormatBytes(size))
	}
	if pct, ok := savingsPercent(mode, out); ok {
		ev = ev.Str("saved", display.FormatPercent(pct))
	}
	if mode == config.ModeNextGen {
		if d := out.SmallestNextGen(); d != nil {
			ev = ev.Str("smallest", d.Format.String())
		}
	}
	ev.Msg("done")
}

func logSummary(log zerolog.Logger, t *BatchTally) {
	log.Info().
		Int("scanned", t.Scanned).
		Int("processed", t.Processed).
		Int("partial", t.Partial).
		Int("failed", t.Failed).
		Int("interrupted", t.Interrupted).
		Msg("=== Summary ===")
	if t.OriginalBytes > 0 {
		log.Info().Msgf("Size: %s -> %s (%s, %s saved)",
			display.FormatBytes(t.OriginalBytes),
			display.FormatBytes(t.OptimizedBytes),
			display.FormatBytesWithSign(-t.SpaceSaved()),
			display.FormatPercent(t.SavingsPercent()))
	}
}
