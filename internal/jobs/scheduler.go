package jobs

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"plancore/api/internal/config"
	"plancore/api/internal/models"
)

const archiveBatchSize = 5000

// ArchiveStore reads and purges login logs past the retention cutoff.
type ArchiveStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.LoginLog, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// ArchiveSink receives the exported archive objects.
type ArchiveSink interface {
	PutArchive(ctx context.Context, key string, data []byte, contentType string) error
}

// Scheduler runs the audit retention job: login-log rows older than the
// retention window are exported to the object store as gzipped JSON lines,
// then deleted. The auth path itself never mutates the log.
type Scheduler struct {
	cron  *cron.Cron
	logs  ArchiveStore
	store ArchiveSink
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewScheduler(logs ArchiveStore, store ArchiveSink, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		logs:  logs,
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Audit.ArchiveEnabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Audit.ArchiveSchedule, s.runArchive); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for any running job, up to a bound.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) runArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.ArchiveOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("audit archive failed")
	}
}

// ArchiveOnce drains one batch of expired login logs into the archive
// bucket. Rows are only deleted after the upload succeeded.
func (s *Scheduler) ArchiveOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.Audit.Retention)

	entries, err := s.logs.ListOlderThan(ctx, cutoff, archiveBatchSize)
	if err != nil {
		return fmt.Errorf("list expired login logs: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	data, err := encodeArchive(entries)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	key := fmt.Sprintf("login-logs/%s.jsonl.gz", time.Now().UTC().Format("2006/01/02T15-04-05"))
	if err := s.store.PutArchive(ctx, key, data, "application/gzip"); err != nil {
		return err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	if err := s.logs.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("purge archived login logs: %w", err)
	}

	s.log.Info().
		Int("count", len(entries)).
		Str("key", key).
		Msg("login logs archived")
	return nil
}

func encodeArchive(entries []models.LoginLog) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
