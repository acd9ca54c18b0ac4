package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/dashboard"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/robfig/cron/v3"
)

var ErrNoSnapshot = errors.New("dashboard snapshot is not ready")

type SnapshotBuilder interface {
	Build(ctx context.Context) (*dashboard.Snapshot, error)
	Backtest(ctx context.Context, code string) (model.BacktestResult, error)
}

// Refresher keeps the latest snapshot and rebuilds it on a cron schedule.
// A failed rebuild keeps serving the previous snapshot.
type Refresher struct {
	builder  SnapshotBuilder
	schedule string
	timeout  time.Duration
	logger   logger.Logger

	mu       sync.RWMutex
	snapshot *dashboard.Snapshot
	lastErr  error
}

func NewRefresher(builder SnapshotBuilder, schedule string, logger logger.Logger) *Refresher {
	return &Refresher{
		builder:  builder,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
	}
}

func (r *Refresher) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.builder.Build(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	if err != nil {
		return fmt.Errorf("%w: can't refresh snapshot", err)
	}
	r.snapshot = snap
	return nil
}

func (r *Refresher) Snapshot() (*dashboard.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		if r.lastErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, r.lastErr)
		}
		return nil, ErrNoSnapshot
	}
	return r.snapshot, nil
}

// Run builds the first snapshot and refreshes until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Errorf("%s: initial refresh failed", err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() {
		if err := r.Refresh(ctx); err != nil {
			r.logger.Errorf("%s: scheduled refresh failed", err)
			return
		}
		r.logger.Debugf("snapshot refreshed")
	}); err != nil {
		return fmt.Errorf("%w: can't schedule refresh %q", err, r.schedule)
	}

	c.Start()
	r.logger.Infof("refreshing dashboard %s", r.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
