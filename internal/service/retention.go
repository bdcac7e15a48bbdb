package service

import (
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/storage"
	"troublebot-backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RetentionJob periodically backs up the transcript archive and drops
// transcripts older than the configured TTL.
type RetentionJob struct {
	cron     *cron.Cron
	store    storage.TranscriptStore
	ttl      time.Duration
	schedule string
	now      func() time.Time
}

func NewRetentionJob(store storage.TranscriptStore, cfg config.RetentionConfig) *RetentionJob {
	return &RetentionJob{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		store:    store,
		ttl:      cfg.TTL,
		schedule: cfg.Schedule,
		now:      time.Now,
	}
}

// Start schedules the sweep. A non-positive TTL disables it.
func (j *RetentionJob) Start() error {
	if j.ttl <= 0 {
		logger.Info("Transcript retention disabled")
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}

	j.cron.Start()
	logger.Infof("Transcript retention scheduled (%s, ttl %s)", j.schedule, j.ttl)

	return nil
}

func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}

// Run performs one sweep.
func (j *RetentionJob) Run() {
	cutoff := j.now().Add(-j.ttl)

	summaries, err := j.store.List()
	if err != nil {
		logger.Errorf("Transcript retention sweep failed: %v", err)
		return
	}
	expired := 0
	for _, s := range summaries {
		if s.GeneratedAt.Before(cutoff) {
			expired++
		}
	}
	if expired == 0 {
		return
	}

	if err := j.store.Backup(); err != nil {
		logger.Errorf("Transcript backup failed, skipping purge: %v", err)
		return
	}

	purged, err := j.store.PurgeBefore(cutoff)
	if err != nil {
		logger.Errorf("Transcript purge failed: %v", err)
		return
	}
	if purged > 0 {
		logger.Infof("Purged %d transcripts generated before %s", purged, cutoff.Format(time.RFC3339))
	}
}
