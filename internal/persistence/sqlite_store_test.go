package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "trxsrt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_TranslationRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetTranslation(ctx, "en", "es", "Hello")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutTranslation(ctx, CachedTranslation{Source: "en", Target: "es", Text: "Hello", Translated: "Hola", Backend: "gtx"}))

	got, ok, err := store.GetTranslation(ctx, "en", "es", "Hello")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hola", got)

	// keyed by language pair
	_, ok, err = store.GetTranslation(ctx, "en", "fr", "Hello")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutTranslation(ctx, CachedTranslation{Source: "en", Target: "es", Text: "Hello", Translated: "¡Hola!", Backend: "deeplx"}))
	got, _, err = store.GetTranslation(ctx, "en", "es", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", got)
}

func TestSQLiteStore_DeleteTranslationsBefore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutTranslation(ctx, CachedTranslation{Source: "en", Target: "de", Text: "old", Translated: "alt", UpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.PutTranslation(ctx, CachedTranslation{Source: "en", Target: "de", Text: "new", Translated: "neu", UpdatedAt: now}))

	n, err := store.DeleteTranslationsBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.GetTranslation(ctx, "en", "de", "old")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.GetTranslation(ctx, "en", "de", "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	store.now = func() time.Time { return base }
	first := store.NewJobRecord("/subs/movie.srt", "en", "es", 3)
	require.NotEmpty(t, first.ID)
	require.NoError(t, store.UpsertJob(ctx, first))

	store.now = func() time.Time { return base.Add(time.Second) }
	second := store.NewJobRecord("/subs/movie.srt", "en", "fr", 3)
	assert.NotEqual(t, first.ID, second.ID)
	require.NoError(t, store.UpsertJob(ctx, second))

	first.Status = JobStatusSucceeded
	first.OutputPath = "/subs/movie.es.srt"
	first.CachedLines = 1
	first.UpdatedAt = base.Add(2 * time.Second)
	require.NoError(t, store.UpsertJob(ctx, first))

	all, err := store.LoadJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "fr", all[0].Target)
	assert.Equal(t, JobStatusRunning, all[0].Status)
	assert.Equal(t, first.ID, all[1].ID)
	assert.Equal(t, JobStatusSucceeded, all[1].Status)
	assert.Equal(t, "/subs/movie.es.srt", all[1].OutputPath)
	assert.Equal(t, 1, all[1].CachedLines)

	latest, err := store.LoadJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, second.ID, latest[0].ID)

	assert.Error(t, store.UpsertJob(ctx, JobRecord{}))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trxsrt.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutTranslation(context.Background(), CachedTranslation{Source: "en", Target: "ja", Text: "cat", Translated: "猫"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, ok, err := reopened.GetTranslation(context.Background(), "en", "ja", "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "猫", got)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
