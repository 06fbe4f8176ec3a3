package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/application/ordersync"
	"github.com/marketship/backend/internal/domain/order"
)

var (
	// ErrAlreadyRunning is returned when Start is called on a running poller.
	ErrAlreadyRunning = errors.New("scheduler: poller already running")

	// ErrNotRunning is returned when Stop is called on a stopped poller.
	ErrNotRunning = errors.New("scheduler: poller not running")
)

// OrderSyncer is the slice of the sync service the poller drives.
type OrderSyncer interface {
	ListPendingOrders(ctx context.Context, limit int) ([]order.Summary, error)
	SyncOrder(ctx context.Context, orderID string, opts ordersync.SyncOptions) (*order.SyncRecord, error)
}

// PollerConfig controls the pending-order sync loop.
type PollerConfig struct {
	Interval time.Duration
	Batch    int
	Options  ordersync.SyncOptions
}

// Poller periodically lists pending storefront orders and runs a sync for
// each. One order's failure is logged and does not stop the sweep; the sync
// record keeps the retry-safe state between sweeps.
type Poller struct {
	syncer OrderSyncer
	cfg    PollerConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPoller creates a pending-order sync poller.
func NewPoller(syncer OrderSyncer, cfg PollerConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 20
	}
	return &Poller{syncer: syncer, cfg: cfg, logger: logger}
}

// Start launches the background sweep loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.run(ctx)

	p.logger.Info("order sync poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("batch", p.cfg.Batch))
	return nil
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.Info("order sync poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep runs one pass over the pending orders.
func (p *Poller) sweep(ctx context.Context) {
	summaries, err := p.syncer.ListPendingOrders(ctx, p.cfg.Batch)
	if err != nil {
		p.logger.Warn("pending order listing failed", zap.Error(err))
		return
	}
	if len(summaries) == 0 {
		return
	}

	synced, failed := 0, 0
	for _, summary := range summaries {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		record, err := p.syncer.SyncOrder(ctx, summary.ID, p.cfg.Options)
		if err != nil {
			failed++
			p.logger.Warn("scheduled order sync failed",
				zap.String("order_id", summary.ID), zap.Error(err))
			continue
		}
		if record.Status == order.SyncStatusCompleted {
			synced++
		} else {
			failed++
		}
	}

	p.logger.Info("order sync sweep finished",
		zap.Int("pending", len(summaries)),
		zap.Int("completed", synced),
		zap.Int("failed", failed))
}
