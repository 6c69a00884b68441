package scheduler

import (
	"context"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(syncCtrl *controllers.SyncController, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		syncCtrl: syncCtrl,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 6 hours: refresh every configured user's snapshot
	_, err := s.cron.AddFunc("0 */6 * * *", func() {
		s.runSync()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run initial sync immediately so the first classification has data
	go s.runSync()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSync executes the sync job
func (s *Scheduler) runSync() {
	s.logger.Info("Running scheduled sync")

	if err := s.syncCtrl.SyncAll(context.Background()); err != nil {
		s.logger.WithError(err).Error("Sync job failed")
	} else {
		s.logger.Info("Sync job completed")
	}
}
