package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

// RetentionSweeper deletes aged audit entries on a cron schedule
type RetentionSweeper struct {
	store         *DBStore
	logger        *observability.Logger
	retentionDays int
	cron          *cron.Cron
}

// NewRetentionSweeper creates a sweeper; Start schedules it
func NewRetentionSweeper(store *DBStore, logger *observability.Logger, retentionDays int) *RetentionSweeper {
	return &RetentionSweeper{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start registers the sweep on the given cron schedule and starts the
// scheduler
func (s *RetentionSweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.WithError(err).Error("audit retention sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// Sweep deletes entries older than the retention window
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("audit retention sweep completed")
	}
	return nil
}

// Stop halts the scheduler and waits for a running sweep
func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
