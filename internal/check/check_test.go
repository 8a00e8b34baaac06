package check

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mediaopt/internal/config"
)

func missingTools(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.InputDir = t.TempDir()
	cfg.CWebPPath = "cwebp-not-installed"
	cfg.AVIFEncPath = "avifenc-not-installed"
	cfg.JPEGTranPath = "jpegtran-not-installed"
	return cfg
}

func TestCheckDeps_Missing(t *testing.T) {
	cfg := missingTools(t)
	err := CheckDeps(&cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCWebPMissing))
	assert.True(t, errors.Is(err, ErrAVIFEncMissing))

	cfg.EmitAVIF = false
	err = CheckDeps(&cfg)
	assert.True(t, errors.Is(err, ErrCWebPMissing))
	assert.False(t, errors.Is(err, ErrAVIFEncMissing))
}

func TestCheckDeps_DisabledFormatsNeedNothing(t *testing.T) {
	cfg := missingTools(t)
	cfg.EmitWebP = false
	cfg.EmitAVIF = false
	assert.NoError(t, CheckDeps(&cfg))
}

func TestTools_Missing(t *testing.T) {
	cfg := missingTools(t)
	statuses := Tools(context.Background(), &cfg)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.False(t, s.Found(), s.Name)
		assert.Empty(t, s.Path)
	}
	assert.Equal(t, "avifenc-not-installed", statuses[1].Bin)
}

func TestTools_Installed(t *testing.T) {
	if _, err := exec.LookPath("cwebp"); err != nil {
		t.Skip("cwebp not available")
	}
	cfg := config.DefaultConfig()
	s := Tools(context.Background(), &cfg)[0]
	require.True(t, s.Found())
	assert.NotEmpty(t, s.Version)
}

func TestRunCheck(t *testing.T) {
	cfg := missingTools(t)
	assert.False(t, RunCheck(context.Background(), &cfg, zerolog.Nop()))

	cfg.EmitWebP = false
	cfg.EmitAVIF = false
	assert.True(t, RunCheck(context.Background(), &cfg, zerolog.Nop()))
}

func TestFreeSpace(t *testing.T) {
	dir := t.TempDir()
	free, err := FreeSpace(dir)
	require.NoError(t, err)

	// A not-yet-created output root is measured at its parent.
	nested, err := FreeSpace(filepath.Join(dir, "out", "deeper"))
	require.NoError(t, err)
	assert.InDelta(t, float64(free), float64(nested), float64(64<<20))
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.3.2\n", "1.3.2"},
		{"\n  Version: 1.0.4 (aom [enc/dec])\nlibyuv\n", "Version: 1.0.4 (aom [enc/dec])"},
		{"", ""},
		{"   \n\t\n", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstLine(tt.in))
	}
}
