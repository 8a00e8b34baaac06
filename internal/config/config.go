// Package config holds runtime configuration: defaults, flag and environment
// resolution, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/planner"
	"github.com/backmassage/mediaopt/internal/probe"
)

// --- Enum types for validated string fields ---

// Mode selects what a batch run produces.
type Mode string

const (
	ModeFull    Mode = "full"    // Primary, next-gen, and responsive variants (default).
	ModeNextGen Mode = "nextgen" // Full-size WebP and AVIF only.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then overlaid by [Resolve] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Paths. OutputDir empty means derivatives are written next to their
	// sources.
	InputDir   string
	OutputDir  string
	ConfigFile string // Optional YAML file layered under env and flags.

	Mode Mode

	// Variant plan.
	MaxWidth         int  // Default: 1920.
	MaxHeight        int  // Default: 1920.
	Quality          int  // Default: 85.
	EmitWebP         bool // Default: true. Cleared by --no-webp.
	EmitAVIF         bool // Default: true. Cleared by --no-avif.
	EmitResponsive   bool // Default: true. Cleared by --no-responsive.
	ResponsiveWidths []int

	// Encoder tuning.
	WebPQualityOffset  int  // Default: 5.
	AVIFQualityOffset  int  // Default: 10.
	WebPMethod         int  // Default: 4.
	AVIFSpeed          int  // Default: 6.
	JPEGProgressive    bool // Default: true.
	PNGBestCompression bool // Default: true.
	CWebPPath          string
	AVIFEncPath        string
	JPEGTranPath       string

	// Source limits.
	MaxDimension int   // Default: 16384.
	MaxPixels    int64 // Default: 100 MP.

	// Concurrency.
	Jobs          int // Files in flight. Default: logical CPUs.
	EncodeWorkers int // Variants in flight per file. Default: 1.

	// Discovery.
	ExcludeDirs []string // Directory names skipped during the walk. Default: node_modules.

	// Behavior.
	DryRun bool

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.

	// Reports.
	ManifestFile string // Optional YAML manifest of produced identifiers.
	MetricsFile  string // Optional Prometheus textfile.
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	plan := planner.DefaultVariantPlan()
	tuning := planner.DefaultTuning()
	limits := probe.DefaultLimits()
	tools := encoder.DefaultTools()
	return Config{
		Mode:               ModeFull,
		MaxWidth:           plan.MaxWidth,
		MaxHeight:          plan.MaxHeight,
		Quality:            plan.Quality,
		EmitWebP:           plan.EmitsWebP(),
		EmitAVIF:           plan.EmitsAVIF(),
		EmitResponsive:     plan.EmitsResponsive(),
		ResponsiveWidths:   plan.ResponsiveWidths,
		WebPQualityOffset:  tuning.WebPQualityOffset,
		AVIFQualityOffset:  tuning.AVIFQualityOffset,
		WebPMethod:         tuning.WebPMethod,
		AVIFSpeed:          tuning.AVIFSpeed,
		JPEGProgressive:    tuning.JPEGProgressive,
		PNGBestCompression: tuning.PNGBestCompression,
		CWebPPath:          tools.CWebP,
		AVIFEncPath:        tools.AVIFEnc,
		JPEGTranPath:       tools.JPEGTran,
		MaxDimension:       limits.MaxDimension,
		MaxPixels:          limits.MaxPixels,
		Jobs:               CPUCount(),
		EncodeWorkers:      1,
		ExcludeDirs:        []string{"node_modules"},
		ColorMode:          ColorAuto,
	}
}

// CPUCount returns the number of logical CPUs, which bounds the file pool.
func CPUCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. Jobs above the CPU count
// are capped to it. The input directory must be set.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeFull, ModeNextGen:
		// valid
	default:
		return fmt.Errorf("invalid mode %q (use 'full' or 'nextgen')", c.Mode)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if err := c.Plan().Validate(); err != nil {
		return err
	}
	if err := c.Tuning().Validate(); err != nil {
		return err
	}
	if c.MaxDimension < 0 || c.MaxPixels < 0 {
		return errors.New("source limits must not be negative")
	}
	if c.Mode == ModeNextGen && !c.EmitWebP && !c.EmitAVIF {
		return errors.New("nextgen mode with both --no-webp and --no-avif produces nothing")
	}

	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1 (got %d)", c.Jobs)
	}
	if cpus := CPUCount(); c.Jobs > cpus {
		c.Jobs = cpus
	}
	if c.EncodeWorkers < 1 {
		return fmt.Errorf("encode workers must be at least 1 (got %d)", c.EncodeWorkers)
	}

	if c.InputDir == "" {
		return errors.New("need exactly one root_dir")
	}
	return nil
}

// ValidatePaths ensures a separate output directory is not strictly inside
// the input directory, where every run would rediscover and re-walk its
// own output tree. Writing in place (equal paths) is allowed. Both arguments
// must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	if outputAbs == inputAbs {
		return nil
	}
	sep := string(filepath.Separator)
	if strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}

// OutputRoot returns where derivatives are written.
func (c *Config) OutputRoot() string {
	if c.OutputDir == "" {
		return c.InputDir
	}
	return c.OutputDir
}

// Plan returns the variant plan described by c.
func (c *Config) Plan() planner.VariantPlan {
	return planner.VariantPlan{
		MaxWidth:         c.MaxWidth,
		MaxHeight:        c.MaxHeight,
		Quality:          c.Quality,
		SkipWebP:         !c.EmitWebP,
		SkipAVIF:         !c.EmitAVIF,
		SkipResponsive:   !c.EmitResponsive,
		ResponsiveWidths: c.ResponsiveWidths,
	}
}

// Tuning returns the encoder tuning described by c.
func (c *Config) Tuning() planner.Tuning {
	return planner.Tuning{
		WebPQualityOffset:  c.WebPQualityOffset,
		AVIFQualityOffset:  c.AVIFQualityOffset,
		JPEGProgressive:    c.JPEGProgressive,
		PNGBestCompression: c.PNGBestCompression,
		WebPMethod:         c.WebPMethod,
		AVIFSpeed:          c.AVIFSpeed,
	}
}

// Limits returns the source limits described by c.
func (c *Config) Limits() probe.Limits {
	return probe.Limits{MaxDimension: c.MaxDimension, MaxPixels: c.MaxPixels}
}

// Tools returns the encoder binaries described by c.
func (c *Config) Tools() encoder.Tools {
	return encoder.Tools{CWebP: c.CWebPPath, AVIFEnc: c.AVIFEncPath, JPEGTran: c.JPEGTranPath}
}
