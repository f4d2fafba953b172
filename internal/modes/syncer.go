package modes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/routing"
)

// Fetcher returns the modes served by the backend.
type Fetcher interface {
	Fetch(ctx context.Context) ([]routing.TransportMode, error)
	URL() string
}

// Syncer refreshes a Holder from the backend's capability document.
type Syncer struct {
	fetcher    Fetcher
	holder     *Holder
	configured *Registry
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time

	mu   sync.Mutex
	last *Report
}

// NewSyncer creates a Syncer. configured is the registry built from
// configuration; refreshed snapshots are always a subset of it.
func NewSyncer(fetcher Fetcher, holder *Holder, configured *Registry, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		fetcher:    fetcher,
		holder:     holder,
		configured: configured,
		logger:     logger,
		timeout:    30 * time.Second,
		now:        time.Now,
	}
}

// Refresh fetches the capability document and publishes the configured modes
// the backend still serves. If the backend serves none of them the current
// snapshot is kept.
func (s *Syncer) Refresh(ctx context.Context) (Report, error) {
	available, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("modes: refresh: %w", err)
	}

	report := Diff(s.fetcher.URL(), available, s.configured.IDs(), s.now())
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	next := s.configured.Restrict(available)
	if len(next.IDs()) == 0 {
		s.logger.Warn("backend serves none of the enabled modes, keeping current set",
			zap.String("available", Join(available)),
		)
		return report, nil
	}
	s.holder.Store(next)

	s.logger.Info("transport modes refreshed",
		zap.String("enabled", Join(next.IDs())),
		zap.String("disabled", Join(report.DisabledKnown)),
		zap.String("unknown", Join(report.Unknown)),
	)
	return report, nil
}

// LastReport returns the report of the most recent successful fetch.
func (s *Syncer) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

// Schedule registers Refresh on c with a standard five-field cron spec.
func (s *Syncer) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Error("scheduled capability refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("modes: schedule %q: %w", spec, err)
	}
	return id, nil
}
