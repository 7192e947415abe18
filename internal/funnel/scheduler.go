package funnel

import (
	"context"
	"errors"
	"time"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Scheduler periodically syncs every active source whose auto-sync
// frequency window has elapsed. Each tick is one scan; each due source
// runs through the normal single-source flow with sync_type=automatic.
type Scheduler struct {
	service *SyncService
	store   *Store
	logger  *logging.Logger
	now     func() time.Time

	tick <-chan time.Time
	stop func()
}

type SchedulerConfig struct {
	Service *SyncService
	Store   *Store
	Logger  *logging.Logger

	Interval time.Duration
	Now      func() time.Time

	// Tick/Stop override the internal ticker, for tests.
	Tick <-chan time.Time
	Stop func()
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Service == nil || cfg.Store == nil {
		return nil, errors.New("funnel: scheduler requires service and store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Scheduler{
		service: cfg.Service,
		store:   cfg.Store,
		logger:  logger,
		now:     now,
		tick:    tick,
		stop:    stop,
	}, nil
}

// Start blocks until ctx is cancelled, scanning once immediately and then
// on every tick.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	defer func() {
		if s.stop != nil {
			s.stop()
		}
	}()

	s.RunDue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tick:
			s.RunDue(ctx)
		}
	}
}

// RunDue syncs every source that is due. Failures are logged and isolated
// per source.
func (s *Scheduler) RunDue(ctx context.Context) {
	due, err := s.store.DueSources(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("auto-sync scan failed", "error", err)
		return
	}
	for _, source := range due {
		if _, err := s.service.SyncSource(ctx, source.SourceType, SyncOptions{SyncType: SyncTypeAutomatic}); err != nil {
			s.logger.Error("auto-sync failed", "source", source.SourceType, "error", err)
		}
	}
}
