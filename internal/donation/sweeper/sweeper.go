// Package sweeper runs the opt-in cron job that expires stale donations.
// The claim-time precondition is the authoritative guard; the sweep only
// keeps listings tidy for browsing.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Expirer is the donation service method the sweep drives.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Sweeper schedules periodic expiry passes.
type Sweeper struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New builds a sweeper from a cron schedule spec, e.g. "*/5 * * * *".
func New(schedule string, expirer Expirer, logger *slog.Logger) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		count, err := expirer.ExpireStale(context.Background())
		if err != nil {
			logger.Error("expiry sweep failed", "error", err)
			return
		}
		if count > 0 {
			logger.Info("expiry sweep marked donations expired", "count", count)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{cron: c, logger: logger}, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
