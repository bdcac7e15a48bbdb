package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)

func record(id, session string, age time.Duration) *model.TranscriptRecord {
	return &model.TranscriptRecord{
		ID:               id,
		SessionID:        session,
		Summary:          "summary of " + id,
		WordCount:        3,
		MessageCount:     2,
		EscalationReason: "needs onsite visit",
		GeneratedAt:      base.Add(-age),
	}
}

func backends(t *testing.T) map[string]TranscriptStore {
	t.Helper()

	disk := NewDiskStorage(t.TempDir(), 2)
	require.NoError(t, disk.Init())

	sqlite := NewSQLiteStorage(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, sqlite.Init())
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]TranscriptStore{
		"memory": NewMemoryStorage(),
		"disk":   disk,
		"sqlite": sqlite,
	}
}

func TestTranscriptStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get("s1")
			assert.ErrorIs(t, err, ErrTranscriptNotFound)

			require.NoError(t, store.Save(record("a", "s1", 2*time.Hour)))
			require.NoError(t, store.Save(record("b", "s1", time.Hour)))
			require.NoError(t, store.Save(record("c", "s2", 3*time.Hour)))

			latest, err := store.Get("s1")
			require.NoError(t, err)
			assert.Equal(t, "b", latest.ID)
			assert.Equal(t, "summary of b", latest.Summary)
			assert.True(t, latest.GeneratedAt.Equal(base.Add(-time.Hour)))

			list, err := store.List()
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"b", "a", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
			assert.Equal(t, "needs onsite visit", list[0].EscalationReason)

			purged, err := store.PurgeBefore(base.Add(-150 * time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, purged)
			_, err = store.Get("s2")
			assert.ErrorIs(t, err, ErrTranscriptNotFound)

			require.NoError(t, store.Delete("s1"))
			assert.ErrorIs(t, store.Delete("s1"), ErrTranscriptNotFound)

			list, err = store.List()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSaveRejectsInvalidRecords(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(nil), ErrInvalidData)
			assert.ErrorIs(t, store.Save(&model.TranscriptRecord{ID: "x"}), ErrInvalidData)
			assert.ErrorIs(t, store.Save(record("../escape", "s1", 0)), ErrInvalidData)
		})
	}
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	store := NewMemoryStorage()
	r := record("a", "s1", 0)
	require.NoError(t, store.Save(r))

	r.Summary = "mutated"
	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "summary of a", got.Summary)
}

func TestDiskStorageSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	first := NewDiskStorage(dir, 10)
	require.NoError(t, first.Init())
	require.NoError(t, first.Save(record("a", "s1", 0)))
	require.NoError(t, first.Close())

	second := NewDiskStorage(dir, 10)
	require.NoError(t, second.Init())
	got, err := second.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestDiskStorageRebuildsMissingIndex(t *testing.T) {
	dir := t.TempDir()

	first := NewDiskStorage(dir, 10)
	require.NoError(t, first.Init())
	require.NoError(t, first.Save(record("a", "s1", 0)))
	require.NoError(t, os.Remove(filepath.Join(dir, indexFile)))

	second := NewDiskStorage(dir, 10)
	require.NoError(t, second.Init())
	list, err := second.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].SessionID)
}

func TestDiskStorageCacheEviction(t *testing.T) {
	store := NewDiskStorage(t.TempDir(), 1)
	require.NoError(t, store.Init())

	require.NoError(t, store.Save(record("a", "s1", time.Hour)))
	require.NoError(t, store.Save(record("b", "s2", 0)))
	assert.Len(t, store.cache, 1)

	// evicted records are reloaded from disk
	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestDiskStorageBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())
	require.NoError(t, store.Save(record("a", "s1", 0)))

	require.NoError(t, store.Backup())

	matches, err := filepath.Glob(filepath.Join(dir, backupDir, "backup_*", transcriptsDir, "a.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDiskStoragePurgeClearsBackups(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())
	require.NoError(t, store.Save(record("old", "s-old", 30*24*time.Hour)))
	require.NoError(t, store.Save(record("new", "s-new", time.Hour)))
	require.NoError(t, store.Backup())

	purged, err := store.PurgeBefore(base.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = store.Get("s-old")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	old, err := filepath.Glob(filepath.Join(dir, backupDir, "backup_*", transcriptsDir, "old.json"))
	require.NoError(t, err)
	assert.Empty(t, old)

	kept, err := filepath.Glob(filepath.Join(dir, backupDir, "backup_*", transcriptsDir, "new.json"))
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	indexes, err := filepath.Glob(filepath.Join(dir, backupDir, "backup_*", indexFile))
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	data, err := os.ReadFile(indexes[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s-old")
	assert.Contains(t, string(data), "s-new")
}

func TestDiskStorageKeepsNewestBackups(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())

	for i := 1; i <= maxBackups+2; i++ {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, backupDir, fmt.Sprintf("backup_%d", i), transcriptsDir), 0755))
	}

	_, err := store.PurgeBefore(base)
	require.NoError(t, err)

	dirs, err := store.backupDirs()
	require.NoError(t, err)
	require.Len(t, dirs, maxBackups)
	assert.Equal(t, filepath.Join(dir, backupDir, "backup_3"), dirs[0])
	assert.NoDirExists(t, filepath.Join(dir, backupDir, "backup_1"))
}

func TestOpen(t *testing.T) {
	store, err := Open(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, store)

	store, err = Open(config.StorageConfig{Type: "sqlite", DataDir: filepath.Join(t.TempDir(), "nested")})
	require.NoError(t, err)
	assert.IsType(t, &GormStorage{}, store)
	require.NoError(t, store.Close())

	_, err = Open(config.StorageConfig{Type: "redis"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	_, err = Open(config.StorageConfig{Type: "postgres"})
	assert.ErrorIs(t, err, ErrStorageInit)
}

func TestNewFallsBackToMemory(t *testing.T) {
	store := New(config.StorageConfig{Type: "redis"})
	assert.IsType(t, &MemoryStorage{}, store)
}
