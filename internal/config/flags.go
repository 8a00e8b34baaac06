package config

// This file registers CLI flags and resolves them against the config file
// and environment. Flags are grouped into plan, tuning, limits, concurrency,
// discovery, display, and reports. Negated flags (e.g. --no-webp) are
// applied after resolution so Config defaults hold unless set.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEDIAOPT_QUALITY=80.
const EnvPrefix = "MEDIAOPT"

// RegisterFlags defines every option on fs. Flag defaults come from cfg,
// which should be [DefaultConfig].
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	definePlanFlags(fs, cfg)
	defineTuningFlags(fs, cfg)
	defineLimitFlags(fs, cfg)
	defineDisplayFlags(fs, cfg)
	defineReportFlags(fs, cfg)
}

// definePlanFlags registers -m/--mode, -o/--output, bounds, quality, formats, and widths.
func definePlanFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringP("mode", "m", string(cfg.Mode), "Run mode: full | nextgen")
	fs.StringP("output", "o", cfg.OutputDir, "Write derivatives under this directory instead of next to sources")
	fs.Int("max-width", cfg.MaxWidth, "Maximum width of full-size variants")
	fs.Int("max-height", cfg.MaxHeight, "Maximum height of full-size variants")
	fs.IntP("quality", "q", cfg.Quality, "Base encode quality (1-100)")
	fs.Bool("no-webp", false, "Do not produce WebP variants")
	fs.Bool("no-avif", false, "Do not produce AVIF variants")
	fs.Bool("no-responsive", false, "Do not produce responsive width variants")
	fs.IntSlice("widths", cfg.ResponsiveWidths, "Responsive widths, in order (e.g. 300,600,1200)")
}

// defineTuningFlags registers the per-format encoder knobs and tool paths.
func defineTuningFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Int("webp-offset", cfg.WebPQualityOffset, "Quality subtracted for WebP")
	fs.Int("avif-offset", cfg.AVIFQualityOffset, "Quality subtracted for AVIF")
	fs.Int("webp-method", cfg.WebPMethod, "cwebp method, 0 (fast) to 6 (small)")
	fs.Int("avif-speed", cfg.AVIFSpeed, "avifenc speed, 0 (small) to 10 (fast)")
	fs.Bool("no-progressive", false, "Keep baseline JPEG (skip the jpegtran rewrite)")
	fs.Bool("fast-png", false, "Use default instead of best PNG compression")
	fs.String("cwebp", cfg.CWebPPath, "cwebp binary")
	fs.String("avifenc", cfg.AVIFEncPath, "avifenc binary")
	fs.String("jpegtran", cfg.JPEGTranPath, "jpegtran binary")
}

// defineLimitFlags registers source limits, concurrency, discovery, and dry-run.
func defineLimitFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Int("max-dimension", cfg.MaxDimension, "Reject sources wider or taller than this (0 = no limit)")
	fs.Int64("max-pixels", cfg.MaxPixels, "Reject sources with more pixels than this (0 = no limit)")
	fs.IntP("jobs", "j", cfg.Jobs, "Files processed concurrently (capped at CPU count)")
	fs.Int("encode-workers", cfg.EncodeWorkers, "Variants encoded concurrently per file")
	fs.StringSlice("exclude", cfg.ExcludeDirs, "Directory names to skip")
	fs.BoolP("dry-run", "d", false, "List eligible files without encoding")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log, --config.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Bool("color", false, "Force colored logs")
	fs.Bool("no-color", false, "Disable colored logs")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.StringP("log", "l", cfg.LogFile, "Append logs to file")
	fs.String("config", cfg.ConfigFile, "YAML config file (keys are flag names)")
}

// defineReportFlags registers --manifest and --metrics-file.
func defineReportFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("manifest", cfg.ManifestFile, "Write a YAML manifest of produced variants")
	fs.String("metrics-file", cfg.MetricsFile, "Write Prometheus metrics in textfile format")
}

// Resolve overlays cfg with, in increasing precedence, the YAML config file,
// MEDIAOPT_* environment variables, and flags set on fs. fs must already be
// parsed. Positional arguments are not handled here.
func Resolve(fs *pflag.FlagSet, cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	widths, err := intList(v.Get("widths"))
	if err != nil {
		return fmt.Errorf("widths: %w", err)
	}

	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(v.GetString("mode"))))
	cfg.OutputDir = NormalizeDirArg(v.GetString("output"))
	cfg.MaxWidth = v.GetInt("max-width")
	cfg.MaxHeight = v.GetInt("max-height")
	cfg.Quality = v.GetInt("quality")
	cfg.ResponsiveWidths = widths

	cfg.WebPQualityOffset = v.GetInt("webp-offset")
	cfg.AVIFQualityOffset = v.GetInt("avif-offset")
	cfg.WebPMethod = v.GetInt("webp-method")
	cfg.AVIFSpeed = v.GetInt("avif-speed")
	cfg.CWebPPath = v.GetString("cwebp")
	cfg.AVIFEncPath = v.GetString("avifenc")
	cfg.JPEGTranPath = v.GetString("jpegtran")

	cfg.MaxDimension = v.GetInt("max-dimension")
	cfg.MaxPixels = v.GetInt64("max-pixels")
	cfg.Jobs = v.GetInt("jobs")
	cfg.EncodeWorkers = v.GetInt("encode-workers")
	cfg.ExcludeDirs = stringList(v.Get("exclude"))
	cfg.DryRun = v.GetBool("dry-run")

	cfg.Verbose = v.GetBool("verbose")
	cfg.LogFile = v.GetString("log")
	cfg.ManifestFile = v.GetString("manifest")
	cfg.MetricsFile = v.GetString("metrics-file")

	applyNegatedFlags(cfg, v)
	return nil
}

// applyNegatedFlags copies negated and override flag values into cfg (e.g. no-webp -> EmitWebP=false).
func applyNegatedFlags(cfg *Config, v *viper.Viper) {
	if v.GetBool("no-webp") {
		cfg.EmitWebP = false
	}
	if v.GetBool("no-avif") {
		cfg.EmitAVIF = false
	}
	if v.GetBool("no-responsive") {
		cfg.EmitResponsive = false
	}
	if v.GetBool("no-progressive") {
		cfg.JPEGProgressive = false
	}
	if v.GetBool("fast-png") {
		cfg.PNGBestCompression = false
	}
	if v.GetBool("no-color") {
		cfg.ColorMode = ColorNever
	} else if v.GetBool("color") {
		cfg.ColorMode = ColorAlways
	}
}

// SetPositional sets InputDir from the single positional root_dir argument.
func SetPositional(cfg *Config, args []string) error {
	if len(args) != 1 {
		return errors.New("need exactly one root_dir")
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	return nil
}

// intList accepts the shapes a list value takes across sources: []int from
// flags, []any from YAML, and a comma-separated string from the environment.
func intList(raw any) ([]int, error) {
	switch vals := raw.(type) {
	case nil:
		return nil, nil
	case []int:
		return vals, nil
	case []any:
		out := make([]int, 0, len(vals))
		for _, item := range vals {
			n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(item)))
			if err != nil {
				return nil, fmt.Errorf("%v is not a whole number", item)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return parseIntCSV(fmt.Sprint(raw))
}

func parseIntCSV(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return []int{}, nil
	}
	var out []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", field)
		}
		out = append(out, n)
	}
	return out, nil
}

func stringList(raw any) []string {
	var items []string
	switch vals := raw.(type) {
	case nil:
		return nil
	case []string:
		items = vals
	case []any:
		for _, item := range vals {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = strings.Split(strings.Trim(fmt.Sprint(raw), "[]"), ",")
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
