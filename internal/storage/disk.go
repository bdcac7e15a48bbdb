package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"troublebot-backend/internal/model"
	"troublebot-backend/pkg/logger"
)

const (
	transcriptsDir = "transcripts"
	backupDir      = "backup"
	indexFile      = "transcripts.json"

	backupPrefix = "backup_"
	maxBackups   = 5
)

// DiskStorage keeps one JSON file per transcript plus an index of summaries.
// Files are named by record ID; session IDs come from clients and never
// reach the filesystem.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	index     map[string]*model.TranscriptSummary
	cache     map[string]*model.TranscriptRecord
	cacheSize int
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		index:     make(map[string]*model.TranscriptSummary),
		cache:     make(map[string]*model.TranscriptRecord),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	d.warmCache()

	logger.Infof("Disk storage initialized at %s with %d transcripts", d.dataDir, len(d.index))
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, transcriptsDir),
		filepath.Join(d.dataDir, backupDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, indexFile)
}

func (d *DiskStorage) recordPath(id string) string {
	return filepath.Join(d.dataDir, transcriptsDir, id+".json")
}

func (d *DiskStorage) loadIndex() error {
	data, err := os.ReadFile(d.indexPath())
	if os.IsNotExist(err) {
		return d.rebuildIndex()
	}
	if err != nil {
		return err
	}

	var summaries []*model.TranscriptSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		logger.Warnf("Transcript index is corrupt, rebuilding: %v", err)
		return d.rebuildIndex()
	}

	for _, s := range summaries {
		d.index[s.ID] = s
	}
	return nil
}

// rebuildIndex scans the record files when the index is missing or unreadable.
func (d *DiskStorage) rebuildIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, transcriptsDir))
	if err != nil {
		return err
	}

	d.index = make(map[string]*model.TranscriptSummary, len(files))
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		id := strings.TrimSuffix(file.Name(), ".json")
		record, err := d.loadRecordFromFile(id)
		if err != nil {
			logger.Errorf("Failed to load transcript %s for index rebuild: %v", id, err)
			continue
		}
		d.index[id] = summaryOf(record)
	}

	return d.saveIndex()
}

func (d *DiskStorage) saveIndex() error {
	summaries := make([]*model.TranscriptSummary, 0, len(d.index))
	for _, s := range d.index {
		summaries = append(summaries, s)
	}
	sortNewestFirst(summaries)

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(d.indexPath(), data)
}

func (d *DiskStorage) loadRecordFromFile(id string) (*model.TranscriptRecord, error) {
	data, err := os.ReadFile(d.recordPath(id))
	if err != nil {
		return nil, err
	}

	var record model.TranscriptRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (d *DiskStorage) saveRecordToFile(record *model.TranscriptRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(d.recordPath(record.ID), data)
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

func (d *DiskStorage) warmCache() {
	summaries := make([]*model.TranscriptSummary, 0, len(d.index))
	for _, s := range d.index {
		summaries = append(summaries, s)
	}
	sortNewestFirst(summaries)

	for _, s := range summaries {
		if len(d.cache) >= d.cacheSize {
			break
		}
		record, err := d.loadRecordFromFile(s.ID)
		if err != nil {
			logger.Errorf("Failed to load transcript %s: %v", s.ID, err)
			continue
		}
		d.cache[s.ID] = record
	}
}

func (d *DiskStorage) Save(record *model.TranscriptRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := *record
	if err := d.saveRecordToFile(&stored); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.index[stored.ID] = summaryOf(&stored)
	if err := d.saveIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[stored.ID] = &stored
	d.evictCache()
	return nil
}

func (d *DiskStorage) Get(sessionID string) (*model.TranscriptRecord, error) {
	d.mu.RLock()
	var latest *model.TranscriptSummary
	for _, s := range d.index {
		if s.SessionID != sessionID {
			continue
		}
		if latest == nil || s.GeneratedAt.After(latest.GeneratedAt) {
			latest = s
		}
	}
	if latest == nil {
		d.mu.RUnlock()
		return nil, ErrTranscriptNotFound
	}
	if cached, ok := d.cache[latest.ID]; ok {
		out := *cached
		d.mu.RUnlock()
		return &out, nil
	}
	id := latest.ID
	d.mu.RUnlock()

	record, err := d.loadRecordFromFile(id)
	if os.IsNotExist(err) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[id] = record
	d.evictCache()
	d.mu.Unlock()

	out := *record
	return &out, nil
}

func (d *DiskStorage) List() ([]*model.TranscriptSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	summaries := make([]*model.TranscriptSummary, 0, len(d.index))
	for _, s := range d.index {
		out := *s
		summaries = append(summaries, &out)
	}
	sortNewestFirst(summaries)

	return summaries, nil
}

func (d *DiskStorage) Delete(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed, err := d.removeWhere(func(s *model.TranscriptSummary) bool {
		return s.SessionID == sessionID
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrTranscriptNotFound
	}
	return nil
}

// PurgeBefore removes expired records from the live archive and from every
// backup, and keeps only the newest maxBackups backups.
func (d *DiskStorage) PurgeBefore(cutoff time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed, err := d.removeWhere(func(s *model.TranscriptSummary) bool {
		return s.GeneratedAt.Before(cutoff)
	})
	if err != nil {
		return removed, err
	}

	if err := d.pruneBackups(cutoff); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return removed, nil
}

// backupDirs lists backup directories oldest first.
func (d *DiskStorage) backupDirs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.dataDir, backupDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	type stamped struct {
		path string
		ts   int64
	}
	var dirs []stamped
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimPrefix(e.Name(), backupPrefix), 10, 64)
		if err != nil {
			continue
		}
		dirs = append(dirs, stamped{filepath.Join(d.dataDir, backupDir, e.Name()), ts})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ts < dirs[j].ts })

	paths := make([]string, len(dirs))
	for i, dir := range dirs {
		paths[i] = dir.path
	}
	return paths, nil
}

// pruneBackups drops surplus backups and expired records inside the rest.
// Caller holds d.mu.
func (d *DiskStorage) pruneBackups(cutoff time.Time) error {
	dirs, err := d.backupDirs()
	if err != nil {
		return err
	}

	if len(dirs) > maxBackups {
		for _, dir := range dirs[:len(dirs)-maxBackups] {
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
			logger.Infof("Removed old backup %s", dir)
		}
		dirs = dirs[len(dirs)-maxBackups:]
	}

	for _, dir := range dirs {
		if err := purgeBackupDir(dir, cutoff); err != nil {
			return err
		}
	}
	return nil
}

func purgeBackupDir(dir string, cutoff time.Time) error {
	recordsDir := filepath.Join(dir, transcriptsDir)
	files, err := os.ReadDir(recordsDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		path := filepath.Join(recordsDir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var record model.TranscriptRecord
		if err := json.Unmarshal(data, &record); err != nil {
			logger.Warnf("Unreadable backup record %s: %v", path, err)
			continue
		}
		if record.GeneratedAt.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	indexPath := filepath.Join(dir, indexFile)
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var summaries []*model.TranscriptSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return os.Remove(indexPath)
	}
	kept := summaries[:0]
	for _, s := range summaries {
		if !s.GeneratedAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(summaries) {
		return nil
	}
	out, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(indexPath, out)
}

// removeWhere deletes matching records and rewrites the index. Caller holds d.mu.
func (d *DiskStorage) removeWhere(match func(*model.TranscriptSummary) bool) (int, error) {
	removed := 0
	for id, s := range d.index {
		if !match(s) {
			continue
		}
		if err := os.Remove(d.recordPath(id)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		delete(d.index, id)
		delete(d.cache, id)
		removed++
	}

	if removed > 0 {
		if err := d.saveIndex(); err != nil {
			return removed, fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}
	return removed, nil
}

func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id          string
		generatedAt time.Time
	}

	entries := make([]cacheEntry, 0, len(d.cache))
	for id, record := range d.cache {
		entries = append(entries, cacheEntry{id: id, generatedAt: record.GeneratedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].generatedAt.Before(entries[j].generatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.TranscriptRecord)
	return nil
}

// Backup copies the record files and index into backup/backup_<unix>.
func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dst := filepath.Join(d.dataDir, backupDir, fmt.Sprintf("%s%d", backupPrefix, time.Now().Unix()))
	dstTranscripts := filepath.Join(dst, transcriptsDir)

	if err := os.MkdirAll(dstTranscripts, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := copyDir(filepath.Join(d.dataDir, transcriptsDir), dstTranscripts); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := copyFile(d.indexPath(), filepath.Join(dst, indexFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", dst)
	return nil
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
