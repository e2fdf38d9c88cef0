package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/pkg/metrics"
	"github.com/tonscope/tokenrisk/pkg/models"
)

// Sweeper periodically recomputes the risk record of every tracked token.
// Per-token failures are logged and counted but never abort the run; the
// successful recomputes of one run are committed as a single batch. Only a
// failure to enumerate the tracked tokens aborts a run outright.
type Sweeper struct {
	logger   *zap.Logger
	store    *Store
	svc      RiskService
	interval time.Duration

	mutex     sync.Mutex
	stopChan  chan struct{}
	isRunning bool
}

// NewSweeper creates a bulk refresh sweeper
func NewSweeper(logger *zap.Logger, store *Store, svc RiskService, interval time.Duration) *Sweeper {
	return &Sweeper{
		logger:   logger,
		store:    store,
		svc:      svc,
		interval: interval,
	}
}

// Start launches the recurring sweep
func (w *Sweeper) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.isRunning {
		return fmt.Errorf("sweeper is already running")
	}

	w.stopChan = make(chan struct{})
	go w.loop(w.stopChan)

	w.isRunning = true
	w.logger.Info("risk sweeper started", zap.Duration("interval", w.interval))
	return nil
}

// Stop halts the recurring sweep. An in-flight run finishes its current
// token and commits what it has staged.
func (w *Sweeper) Stop() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.isRunning {
		return fmt.Errorf("sweeper is not running")
	}

	close(w.stopChan)
	w.isRunning = false
	w.logger.Info("risk sweeper stopped")
	return nil
}

func (w *Sweeper) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(context.Background()); err != nil {
				w.logger.Error("sweep run failed", zap.Error(err))
			}
		case <-stop:
			return
		}
	}
}

// RunOnce executes a single sweep: enumerate all tracked tokens, recompute
// each in isolation, then commit the successes in one batch. Failed tokens
// keep their previous record untouched.
func (w *Sweeper) RunOnce(ctx context.Context) error {
	tokenIDs, err := w.store.ListTokenIDs(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("aborted").Inc()
		return fmt.Errorf("failed to enumerate tracked tokens: %w", err)
	}

	if len(tokenIDs) == 0 {
		w.logger.Debug("sweep: no tracked tokens")
		metrics.SweepRuns.WithLabelValues("completed").Inc()
		return nil
	}

	staged := make([]*models.TokenRisk, 0, len(tokenIDs))
	failed := 0
	for _, tokenID := range tokenIDs {
		report, err := w.svc.Compute(ctx, tokenID)
		if err != nil {
			failed++
			metrics.SweepItemFailures.Inc()
			w.logger.Warn("sweep: recompute failed",
				zap.String("token_id", tokenID), zap.Error(err))
			continue
		}
		staged = append(staged, recordFromReport(report))
	}

	if len(staged) == 0 {
		w.logger.Warn("sweep: no token recomputed successfully",
			zap.Int("failed", failed))
		metrics.SweepRuns.WithLabelValues("completed").Inc()
		return nil
	}

	if err := w.store.UpsertBatch(ctx, staged); err != nil {
		metrics.SweepRuns.WithLabelValues("aborted").Inc()
		return fmt.Errorf("%w: sweep batch commit: %v", ErrPersistence, err)
	}

	metrics.SweepRuns.WithLabelValues("completed").Inc()
	metrics.SweepLastSuccess.SetToCurrentTime()
	w.logger.Info("sweep complete",
		zap.Int("updated", len(staged)),
		zap.Int("failed", failed))
	return nil
}
