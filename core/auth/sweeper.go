package auth

import (
	"context"

	"github.com/robfig/cron/v3"

	"aegis-log/config"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

// SessionSweeper periodically removes expired session rows so the sessions
// table does not grow without bound.
type SessionSweeper struct {
	cfg    config.SweeperConfig
	store  store.SessionStore
	logger *utils.Logger
	cron   *cron.Cron
}

func NewSessionSweeper(cfg config.SweeperConfig, sessions store.SessionStore, logger *utils.Logger) *SessionSweeper {
	return &SessionSweeper{cfg: cfg, store: sessions, logger: logger}
}

func (s *SessionSweeper) StartWithContext(ctx context.Context) {
	if s == nil || !s.cfg.Enabled {
		return
	}
	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.RunOnce(ctx) }); err != nil {
		s.logger.Errorf("session sweeper schedule %q: %v", schedule, err)
		return
	}
	s.cron = c
	c.Start()
}

func (s *SessionSweeper) StopWithContext(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	return nil
}

func (s *SessionSweeper) RunOnce(ctx context.Context) {
	n, err := s.store.DeleteExpired(ctx, utils.NowUTC())
	if err != nil {
		s.logger.Errorf("session sweep: %v", err)
		return
	}
	if n > 0 {
		s.logger.Printf("session sweep removed %d expired sessions", n)
	}
}
