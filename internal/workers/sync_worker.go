package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alimgiray/ghmirror/internal/services"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

const (
	KindSync = "sync"

	defaultSyncInterval = time.Hour
)

// Sweeper runs one sync cycle over every tracked target
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepResult, error)
}

// SyncWorker sweeps all targets, then waits for the interval, until stopped
type SyncWorker struct {
	*BaseWorker
	sweeper  Sweeper
	interval time.Duration

	mu        sync.Mutex
	lastSweep *services.SweepResult
	lastAt    time.Time
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(workerID string, sweeper Sweeper, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &SyncWorker{
		BaseWorker: NewBaseWorker(workerID, KindSync),
		sweeper:    sweeper,
		interval:   interval,
	}
}

// Start begins the sync worker process. The first sweep runs immediately.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	log := logger.WithFields(logrus.Fields{"worker": w.WorkerID, "interval": w.interval.String()})
	log.Info("Sync worker started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Sync worker stopping due to context cancellation")
			return ctx.Err()
		case <-w.StopChan:
			log.Info("Sync worker stopping")
			return nil
		case <-timer.C:
			w.sweep(ctx, log)
			timer.Reset(w.interval)
		}
	}
}

func (w *SyncWorker) sweep(ctx context.Context, log *logrus.Entry) {
	started := time.Now()
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Sweep failed")
		}
		return
	}

	w.mu.Lock()
	w.lastSweep = result
	w.lastAt = started
	w.mu.Unlock()

	log.WithField("duration", time.Since(started).String()).Debug("Sweep finished")
}

// LastSweep returns the result and start time of the most recent completed sweep.
// The result is nil before the first sweep completes.
func (w *SyncWorker) LastSweep() (*services.SweepResult, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSweep, w.lastAt
}
