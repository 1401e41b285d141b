package workers

import (
	"context"
	"sync"

	"github.com/alimgiray/ghmirror/pkg/config"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// WorkerStatus describes one worker for status reporting
type WorkerStatus struct {
	Kind    string `json:"kind"`
	Running bool   `json:"running"`
}

// WorkerManager manages the background workers
type WorkerManager struct {
	workers []Worker
	sweeper Sweeper
	cfg     config.SyncConfig
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(sweeper Sweeper, cfg config.SyncConfig) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		workers: make([]Worker, 0),
		sweeper: sweeper,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartAll starts the scheduled sync worker unless scheduling is disabled
func (wm *WorkerManager) StartAll() error {
	if !wm.cfg.Enabled {
		logger.Infof("Scheduled sync disabled, no workers started")
		return nil
	}

	worker := NewSyncWorker("sync-1", wm.sweeper, wm.cfg.Interval)
	wm.workers = append(wm.workers, worker)
	wm.startWorker(worker)

	logger.Infof("Started %d total workers", len(wm.workers))
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	logger.Infof("Stopping all workers...")

	// Cancel the context to signal all workers to stop
	wm.cancel()

	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).WithField("worker", worker.GetWorkerID()).Error("Error stopping worker")
		}
	}

	// Wait for all workers to finish
	wm.wg.Wait()

	logger.Infof("All workers stopped")
	return nil
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && wm.ctx.Err() == nil {
			logger.WithError(err).WithField("worker", worker.GetWorkerID()).Error("Worker stopped with error")
		}
	}()
}

// GetWorkerStatus returns the status of all workers keyed by worker ID
func (wm *WorkerManager) GetWorkerStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus, len(wm.workers))
	for _, worker := range wm.workers {
		status[worker.GetWorkerID()] = WorkerStatus{Kind: worker.GetKind(), Running: worker.IsRunning()}
	}
	return status
}
