package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"easymed-admin-backend/internal/authority"
	"easymed-admin-backend/internal/config"
	"easymed-admin-backend/internal/kvstore"
	"easymed-admin-backend/internal/logger"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store  kvstore.Store
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store kvstore.Store, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// Config returns the application configuration used by jobs
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// BackupRoster copies the persisted team roster under a dated backup key so
// an accidental roster wipe can be recovered by an operator.
func (jr *JobRunner) BackupRoster() {
	jr.runWithRecovery("BackupRoster", func() {
		ctx := context.Background()

		data, err := jr.store.Get(ctx, authority.TeamKey)
		if err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				logger.Info("No roster to back up")
				return
			}
			logger.Error("Failed to read roster for backup", "error", err)
			return
		}

		backupKey := fmt.Sprintf("%s_backup_%s", authority.TeamKey, jr.now().UTC().Format("2006-01-02"))
		if err := jr.store.Set(ctx, backupKey, data); err != nil {
			logger.Error("Failed to write roster backup", "key", backupKey, "error", err)
			return
		}
		logger.Info("Roster backup written", "key", backupKey)
	})
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.BackupRoster()
}
