package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test_key", "test_value"))

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("f", 0.75))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("slice", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("s"))
	assert.Equal(t, 42, store.GetInt("i"))
	assert.Equal(t, 0.75, store.GetFloat("f"))
	assert.True(t, store.GetBool("b"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("slice"))

	// Missing keys yield zero values.
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Equal(t, 0.0, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsAcrossReopens(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vault.root", "/notes"))
	require.NoError(t, store.Set("linking.batch_size", 25))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "/notes", reopened.GetString("vault.root"))
	assert.Equal(t, 25, reopened.GetInt("linking.batch_size"))
}

func TestConfigStore_GetFloat_AcceptsIntegers(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("linking.ai_score_threshold", 6))

	// TOML reloads integers as int64; thresholds still read as floats.
	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 6.0, reopened.GetFloat("linking.ai_score_threshold"))
}
