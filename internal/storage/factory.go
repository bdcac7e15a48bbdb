package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"troublebot-backend/internal/config"
	"troublebot-backend/pkg/logger"
)

// Open builds and initializes the backend named by cfg.Type.
func Open(cfg config.StorageConfig) (TranscriptStore, error) {
	var store TranscriptStore

	switch cfg.Type {
	case "", "memory":
		store = NewMemoryStorage()
	case "disk":
		store = NewDiskStorage(cfg.DataDir, cfg.CacheSize)
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
			}
			path = filepath.Join(cfg.DataDir, "transcripts.db")
		}
		store = NewSQLiteStorage(path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres requires storage.dsn", ErrStorageInit)
		}
		store = NewPostgresStorage(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Type)
	}

	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

// New is Open with a fallback to memory storage, so a broken archive never
// blocks transcript generation.
func New(cfg config.StorageConfig) TranscriptStore {
	store, err := Open(cfg)
	if err != nil {
		logger.Errorf("Failed to initialize %s storage, falling back to memory: %v", cfg.Type, err)
		mem := NewMemoryStorage()
		_ = mem.Init()
		return mem
	}
	return store
}
