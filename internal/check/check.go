// Package check provides system diagnostics (the check subcommand) and
// pre-pipeline dependency validation (CheckDeps) for the external encoder
// tools and the output volume.
package check

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/backmassage/mediaopt/internal/config"
	"github.com/backmassage/mediaopt/internal/display"
	"github.com/backmassage/mediaopt/internal/encoder"
)

// Sentinel errors returned by CheckDeps when an enabled format's tool is missing.
var (
	ErrCWebPMissing   = errors.New("cwebp not found on PATH")
	ErrAVIFEncMissing = errors.New("avifenc not found on PATH")
)

// minFreeBytes is the free-space threshold below which RunCheck warns.
const minFreeBytes = 512 << 20

// ToolStatus describes one external binary.
type ToolStatus struct {
	Name    string // Role, e.g. "cwebp".
	Bin     string // Configured binary name or path.
	Path    string // Resolved path; empty when missing.
	Version string // First line of the version output.
	Err     error
}

// Found reports whether the binary was resolved.
func (s ToolStatus) Found() bool { return s.Err == nil }

// RunCheck logs the availability and version of every encoder tool and the
// free space on the output volume. It returns false when a tool needed by an
// enabled format is missing.
func RunCheck(ctx context.Context, cfg *config.Config, log zerolog.Logger) bool {
	log.Info().Msg("=== System Check ===")

	for _, s := range Tools(ctx, cfg) {
		if !s.Found() {
			log.Warn().Str("bin", s.Bin).Msgf("%s not found", s.Name)
			continue
		}
		log.Info().Str("path", s.Path).Str("version", s.Version).Msgf("%s found", s.Name)
	}

	root := cfg.OutputRoot()
	if root == "" {
		root = "."
	}
	free, err := FreeSpace(root)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("path", root).Msg("cannot read free space")
	case free < minFreeBytes:
		log.Warn().Str("path", root).Str("free", display.FormatBytes(int64(free))).Msg("low free space on output volume")
	default:
		log.Info().Str("path", root).Str("free", display.FormatBytes(int64(free))).Msg("output volume")
	}

	if err := CheckDeps(cfg); err != nil {
		log.Error().Err(err).Msg("missing encoder tools for enabled formats")
		return false
	}
	return true
}

// CheckDeps verifies that every enabled next-gen format has its tool on
// PATH. Missing tools are reported together; match them with errors.Is
// against ErrCWebPMissing and ErrAVIFEncMissing. JPEG and PNG are encoded
// in-process and need nothing.
func CheckDeps(cfg *config.Config) error {
	var errs []error
	if cfg.EmitWebP {
		if _, err := exec.LookPath(cfg.CWebPPath); err != nil {
			errs = append(errs, ErrCWebPMissing)
		}
	}
	if cfg.EmitAVIF {
		if _, err := exec.LookPath(cfg.AVIFEncPath); err != nil {
			errs = append(errs, ErrAVIFEncMissing)
		}
	}
	return errors.Join(errs...)
}

// Tools resolves the configured cwebp, avifenc, and jpegtran binaries.
func Tools(ctx context.Context, cfg *config.Config) []ToolStatus {
	return []ToolStatus{
		probeTool(ctx, "cwebp", cfg.CWebPPath, "-version"),
		probeTool(ctx, "avifenc", cfg.AVIFEncPath, "--version"),
		probeTool(ctx, "jpegtran", cfg.JPEGTranPath, "-version"),
	}
}

// FreeSpace returns the free bytes on the volume holding path. A path that
// does not exist yet is measured at its nearest existing parent.
func FreeSpace(path string) (uint64, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	for {
		if _, err := os.Stat(p); err == nil {
			break
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	u, err := disk.Usage(p)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// --- internal helpers ---

func probeTool(ctx context.Context, name, bin, versionFlag string) ToolStatus {
	s := ToolStatus{Name: name, Bin: bin}
	path, err := exec.LookPath(bin)
	if err != nil {
		s.Err = err
		return s
	}
	s.Path = path

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res := encoder.Execute(ctx, []string{path, versionFlag}, nil)
	s.Version = firstLine(string(res.Stdout))
	if s.Version == "" {
		s.Version = firstLine(res.Stderr)
	}
	if s.Version == "" {
		s.Version = "unknown"
	}
	return s
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
