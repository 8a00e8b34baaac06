package term

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mediaopt/internal/config"
)

func TestResolve(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, Resolve(config.ColorAlways, f))
	assert.False(t, Resolve(config.ColorNever, f))
	assert.False(t, Resolve(config.ColorAuto, f), "a regular file is not a terminal")
	assert.False(t, IsTerminal(nil))
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(config.ColorNever) })

	assert.True(t, Configure(config.ColorAlways))
	assert.True(t, Enabled())
	assert.NotEmpty(t, Red)

	assert.False(t, Configure(config.ColorNever))
	assert.False(t, Enabled())
	assert.Empty(t, Green)
}
