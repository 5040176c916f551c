/*
scheduler.go - Automated backup scheduler

PURPOSE:
  Writes the whole fund collection to a dated JSON backup file on a cron
  schedule. The file is the same document GET /api/backup downloads and
  POST /api/restore accepts.

DESIGN:
  - robfig/cron with a seconds field (default "0 0 2 * * *", daily at 02:00)
  - One file per calendar day: chitfund_backup_YYYY-MM-DD.json
  - Runs once on start; skips a day whose file already exists
  - Old backups are kept; pruning is left to the operator

USAGE:
  scheduler := NewBackupScheduler(book, dir, logger)
  if err := scheduler.Start("0 0 2 * * *"); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Backup endpoint (manual download)
  - store/jsonfile/jsonfile.go: Backup codec and filename
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/chitfund/book"
	"github.com/warp/chitfund/logging"
	"github.com/warp/chitfund/store/jsonfile"
)

// BackupScheduler handles automated daily backups.
type BackupScheduler struct {
	Book *book.Book
	Dir  string
	Now  func() time.Time

	log  *logging.Logger
	cron *cron.Cron
	mu   sync.Mutex
}

// NewBackupScheduler creates a new scheduler. An empty dir disables it.
func NewBackupScheduler(b *book.Book, dir string, logger *logging.Logger) *BackupScheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &BackupScheduler{
		Book: b,
		Dir:  dir,
		Now:  time.Now,
		log:  logger.WithComponent(logging.ComponentStorage),
	}
}

// Start registers the backup job under spec and starts the cron runner.
func (s *BackupScheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Dir == "" {
		s.log.Info("backup scheduler disabled")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() { s.RunNow(context.Background()) }); err != nil {
		return fmt.Errorf("register backup job: %w", err)
	}
	s.cron = c

	// Run immediately on start
	s.RunNow(context.Background())
	c.Start()

	s.log.Info("backup scheduler started", "dir", s.Dir, "schedule", spec)
	return nil
}

// Stop stops the scheduler and waits for a running backup to finish.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		s.log.Info("backup scheduler stopped")
	}
}

// RunNow writes today's backup unless it already exists. It returns the file
// path and whether a new file was written.
func (s *BackupScheduler) RunNow(ctx context.Context) (string, bool) {
	path := filepath.Join(s.Dir, jsonfile.BackupFilename(s.Now()))

	if _, err := os.Stat(path); err == nil {
		s.log.DebugContext(ctx, "backup already taken", "path", path)
		return path, false
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.log.ErrorContext(ctx, "backup check failed", logging.FieldError, err.Error())
		return path, false
	}

	funds := s.Book.Snapshot()
	if err := jsonfile.New(path).SaveAll(ctx, funds); err != nil {
		s.log.ErrorContext(ctx, "backup failed",
			logging.FieldOperation, logging.OpExport,
			logging.FieldError, fmt.Sprintf("write %s: %v", path, err))
		return path, false
	}

	s.log.InfoContext(ctx, "backup written",
		logging.FieldOperation, logging.OpExport,
		logging.FieldCount, len(funds),
		"path", path)
	return path, true
}
