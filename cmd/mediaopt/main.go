// Command mediaopt is the CLI entrypoint for the mediaopt image optimizer.
//
// It resolves configuration from flags, MEDIAOPT_* environment variables and
// an optional YAML file, validates paths, and walks a directory tree writing
// optimized, next-gen and responsive variants of every JPEG and PNG found.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/mediaopt/internal/check"
	"github.com/backmassage/mediaopt/internal/config"
	"github.com/backmassage/mediaopt/internal/display"
	"github.com/backmassage/mediaopt/internal/logging"
	"github.com/backmassage/mediaopt/internal/metrics"
	"github.com/backmassage/mediaopt/internal/optimize"
	"github.com/backmassage/mediaopt/internal/pipeline"
	"github.com/backmassage/mediaopt/internal/report"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultConfig()
	root := newRootCmd(&cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mediaopt: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "mediaopt [flags] <root_dir>",
		Short:         "Optimize every JPEG and PNG under a directory",
		Long:          "Walks root_dir and writes a re-encoded primary, WebP and AVIF variants, and responsive widths for every JPEG and PNG found.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Resolve(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := config.SetPositional(cfg, args); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return optimizeTree(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(root.PersistentFlags(), cfg)

	root.AddCommand(&cobra.Command{
		Use:           "check [root_dir]",
		Short:         "Report encoder tool availability and output free space",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Resolve(cmd.Flags(), cfg); err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.InputDir = config.NormalizeDirArg(args[0])
			}
			log, err := logging.New(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner(os.Stdout)
			if !check.RunCheck(cmd.Context(), cfg, log.Logger) {
				return errors.New("check failed")
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediaopt %s (%s)\n", version, commit)
		},
	})
	return root
}

// optimizeTree runs the batch walk described by cfg. It fails only on setup
// errors; per-file failures are logged and counted.
func optimizeTree(parent context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner(os.Stdout)

	// Resolve and validate paths: input must exist, a separate output is
	// created if needed and must not be inside the input tree.
	inputAbs, err := absPath(cfg.InputDir)
	if err != nil {
		return fmt.Errorf("input not found: %s", cfg.InputDir)
	}
	cfg.InputDir = inputAbs
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("cannot create output directory: %s", cfg.OutputDir)
		}
		outputAbs, err := absPath(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("cannot resolve output path: %s", cfg.OutputDir)
		}
		if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
			return fmt.Errorf("%w; choose an output path outside %s", err, inputAbs)
		}
		cfg.OutputDir = outputAbs
	}

	log.Info().Msgf("=== mediaopt v%s (%s) ===", version, commit)
	log.Info().Msgf("In:  %s", cfg.InputDir)
	log.Info().Msgf("Out: %s", cfg.OutputRoot())
	if cfg.DryRun {
		log.Warn().Msg("DRY RUN, no files will be written")
	}

	// A missing next-gen tool disables that format instead of failing the run.
	if err := check.CheckDeps(cfg); err != nil {
		if errors.Is(err, check.ErrCWebPMissing) {
			log.Warn().Str("bin", cfg.CWebPPath).Msg("cwebp not found, WebP output disabled")
			cfg.EmitWebP = false
		}
		if errors.Is(err, check.ErrAVIFEncMissing) {
			log.Warn().Str("bin", cfg.AVIFEncPath).Msg("avifenc not found, AVIF output disabled")
			cfg.EmitAVIF = false
		}
		if cfg.Mode == config.ModeNextGen && !cfg.EmitWebP && !cfg.EmitAVIF {
			return errors.New("nextgen mode needs cwebp or avifenc")
		}
	}

	// Cancel on SIGINT/SIGTERM so the walk stops dispatching files and
	// in-flight invocations return between variants.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("received interrupt, finishing in-flight variants")
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		rec  optimize.Recorder
		opts pipeline.Options
		prom *metrics.Recorder
	)
	if cfg.MetricsFile != "" {
		prom, err = metrics.New()
		if err != nil {
			return err
		}
		rec, opts.Observer = prom, prom
	}

	orch, err := pipeline.NewOrchestrator(cfg, log.Logger, rec)
	if err != nil {
		return err
	}
	sum := pipeline.Run(ctx, cfg, orch, log.Logger, opts)

	if cfg.ManifestFile != "" && !cfg.DryRun {
		m := report.Manifest{
			Generated: time.Now().UTC(),
			Root:      cfg.InputDir,
			Mode:      string(cfg.Mode),
			Sources:   sum.Entries,
		}
		if err := report.Write(cfg.ManifestFile, m); err != nil {
			log.Error().Err(err).Msg("manifest not written")
		} else {
			log.Info().Str("path", cfg.ManifestFile).Msg("manifest written")
		}
	}
	if prom != nil {
		if err := prom.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error().Err(err).Msg("metrics not written")
		}
	}
	return nil
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
