package storage

import (
	"errors"
	"fmt"
	"time"

	"troublebot-backend/internal/model"
	"troublebot-backend/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStorage archives transcripts in SQLite or PostgreSQL.
type GormStorage struct {
	dialector gorm.Dialector
	name      string
	db        *gorm.DB
}

// NewSQLiteStorage opens (or creates) the database file at path.
func NewSQLiteStorage(path string) *GormStorage {
	return &GormStorage{dialector: sqlite.Open(path), name: "sqlite"}
}

func NewPostgresStorage(dsn string) *GormStorage {
	return &GormStorage{dialector: postgres.Open(dsn), name: "postgres"}
}

func (g *GormStorage) Init() error {
	db, err := gorm.Open(g.dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s database: %v", ErrStorageInit, g.name, err)
	}

	if err := db.AutoMigrate(&model.TranscriptRecord{}); err != nil {
		return fmt.Errorf("%w: failed to migrate transcript schema: %v", ErrStorageInit, err)
	}

	g.db = db
	logger.Infof("%s transcript storage initialized", g.name)
	return nil
}

func (g *GormStorage) Close() error {
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Backup is left to the database's own tooling.
func (g *GormStorage) Backup() error {
	return nil
}

func (g *GormStorage) conn() (*gorm.DB, error) {
	if g.db == nil {
		return nil, fmt.Errorf("%w: database connection is nil", ErrStorageInit)
	}
	return g.db, nil
}

func (g *GormStorage) Save(record *model.TranscriptRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	db, err := g.conn()
	if err != nil {
		return err
	}

	stored := *record
	if err := db.Save(&stored).Error; err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (g *GormStorage) Get(sessionID string) (*model.TranscriptRecord, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}

	var record model.TranscriptRecord
	err = db.Where("session_id = ?", sessionID).
		Order("generated_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	return &record, nil
}

func (g *GormStorage) List() ([]*model.TranscriptSummary, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}

	var records []model.TranscriptRecord
	err = db.Select("id", "session_id", "word_count", "message_count", "escalation_reason", "generated_at").
		Order("generated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	summaries := make([]*model.TranscriptSummary, len(records))
	for i := range records {
		summaries[i] = summaryOf(&records[i])
	}
	return summaries, nil
}

func (g *GormStorage) Delete(sessionID string) error {
	db, err := g.conn()
	if err != nil {
		return err
	}

	result := db.Where("session_id = ?", sessionID).Delete(&model.TranscriptRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete transcript: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTranscriptNotFound
	}
	return nil
}

func (g *GormStorage) PurgeBefore(cutoff time.Time) (int, error) {
	db, err := g.conn()
	if err != nil {
		return 0, err
	}

	result := db.Where("generated_at < ?", cutoff).Delete(&model.TranscriptRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge transcripts: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
