package sound

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"loud-beep", "normal-beep", "quiet-beep"}, r.Names())

	s, ok := r.Get("normal-beep")
	require.True(t, ok)
	assert.Equal(t, "Normal beep", s.Name)
	assert.True(t, s.Builtin)
	assert.Empty(t, s.Path)

	assert.False(t, r.Has("klaxon"))
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"chime.wav", "gong.mp3", "README.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	r := NewRegistry()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chime, ok := r.Get("chime")
	require.True(t, ok)
	assert.False(t, chime.Builtin)
	assert.Equal(t, filepath.Join(dir, "chime.wav"), chime.Path)

	assert.True(t, r.Has("gong"))
	assert.False(t, r.Has("README"))
	assert.False(t, r.Has("nested"))
}

func TestRegistryLoadDirMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLogPlayer(t *testing.T) {
	var p Player = LogPlayer{}
	assert.NoError(t, p.Play("normal-beep", false))
	assert.NoError(t, p.Play("normal-beep", true))
	assert.NoError(t, p.Stop())
}
