package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NotInitialisedReturnsTypedError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)
	var notInit *ErrNotInitialised
	require.ErrorAs(t, err, &notInit)
}

func TestInit_CreatesLayoutAndDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Init(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)
	assert.DirExists(t, VectorsDir(dir))
	assert.DirExists(t, CacheDir(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider.EmbedModel, loaded.Provider.EmbedModel)
}

func TestInit_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	first, err := Init(dir)
	require.NoError(t, err)
	first.Checkpoints.LastIndexedID = "abc123"
	require.NoError(t, Save(dir, first))

	second, err := Init(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc123", second.Checkpoints.LastIndexedID)
}

func TestDimensions_KnownAndUnknownModel(t *testing.T) {
	cfg := New()
	cfg.Provider.EmbedModel = "nomic-embed-text"
	assert.Equal(t, 768, cfg.Dimensions())

	cfg.Provider.EmbedModel = "totally-unknown-model"
	assert.Equal(t, 256, cfg.Dimensions())
}

func TestLockPath_UnderStateDir(t *testing.T) {
	dir := "/tmp/proj"
	assert.Equal(t, filepath.Join(dir, StateDirName, "sync.lock"), LockPath(dir))
}
