package credential

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_GetMissing(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "credentials.json"))
	require.NoError(t, err)

	value, ok, err := store.Get()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestFileStore_SetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, store.Set("  GOOGLE_ABUSE_EXEMPTION=ID=abc  "))

	value, ok, err := store.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=ID=abc", value)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updated_at": "2025-01-02T03:04:05Z"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// a second store over the same file sees the value
	other, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err = other.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=ID=abc", value)
}

func TestFileStore_RejectsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	assert.Error(t, store.Set("   "))

	_, err = NewFileStore(" ")
	assert.Error(t, err)
}

func TestFileStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	_, _, err = store.Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credential file")
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := NewFileStore(path)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, store.Set("cookie"))
		}()
	}
	wg.Wait()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err := store.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cookie", value)
}
