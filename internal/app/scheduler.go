package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger erases recycle-bin records past their retention window.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// GaugeRefresher recomputes the bed count gauge from the store.
type GaugeRefresher interface {
	RefreshInventoryGauge(ctx context.Context) error
}

// Scheduler runs the periodic recycle-bin purge.  Listing endpoints already
// hide expired records, so a missed run only delays the physical delete.
type Scheduler struct {
	interval time.Duration
	purgers  map[string]Purger
	gauge    GaugeRefresher
	log      *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler builds a scheduler that purges every named purger each
// interval.  gauge may be nil.
func NewScheduler(interval time.Duration, purgers map[string]Purger, gauge GaugeRefresher, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		purgers:  purgers,
		gauge:    gauge,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting background scheduler", zap.Duration("interval", s.interval))
	go s.loop(ctx)
}

// Stop ends the loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stop:
			s.log.Info("background scheduler stopped")
			return
		case <-ctx.Done():
			s.log.Info("background scheduler cancelled")
			return
		}
	}
}

// RunOnce performs a single purge pass.  A failing purger is logged and the
// others still run.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for name, p := range s.purgers {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			s.log.Error("recycle bin purge failed", zap.String("kind", name), zap.Error(err))
			continue
		}
		if n > 0 {
			s.log.Info("recycle bin purged", zap.String("kind", name), zap.Int("removed", n))
		}
	}
	if s.gauge != nil {
		if err := s.gauge.RefreshInventoryGauge(ctx); err != nil {
			s.log.Warn("refresh bed gauge failed", zap.Error(err))
		}
	}
}
