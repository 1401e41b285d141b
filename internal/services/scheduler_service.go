package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/repositories"
	"github.com/alimgiray/ghmirror/internal/syncer"
	"github.com/alimgiray/ghmirror/pkg/config"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// SweepResult counts the outcomes of one pass over all targets
type SweepResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// SchedulerService runs sync cycles over tracked targets and records each as a SyncRun
type SchedulerService struct {
	targetRepo *repositories.TargetRepository
	runRepo    *repositories.SyncRunRepository
	engine     *syncer.Engine
	cfg        config.SyncConfig
}

func NewSchedulerService(
	targetRepo *repositories.TargetRepository,
	runRepo *repositories.SyncRunRepository,
	engine *syncer.Engine,
	cfg config.SyncConfig,
) *SchedulerService {
	return &SchedulerService{
		targetRepo: targetRepo,
		runRepo:    runRepo,
		engine:     engine,
		cfg:        cfg,
	}
}

// Sweep runs one cycle for every tracked target. A failing target never
// stops the others; at most cfg.Concurrency cycles run at once.
func (s *SchedulerService) Sweep(ctx context.Context) (*SweepResult, error) {
	targets, err := s.targetRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	result := &SweepResult{Total: len(targets)}
	var mu sync.Mutex

	limit := s.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, target := range targets {
		if gctx.Err() != nil {
			break
		}
		target := target
		g.Go(func() error {
			run, _ := s.RunTarget(gctx, target)

			mu.Lock()
			defer mu.Unlock()
			switch run.Status {
			case models.SyncRunStatusSuccess:
				result.Succeeded++
			case models.SyncRunStatusSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.cfg.RunRetention > 0 {
		if deleted, err := s.runRepo.DeleteOlderThan(time.Now().Add(-s.cfg.RunRetention)); err != nil {
			logger.WithError(err).Warn("Failed to prune old sync runs")
		} else if deleted > 0 {
			logger.WithField("deleted", deleted).Debug("Pruned old sync runs")
		}
	}

	logger.WithFields(logrus.Fields{
		"targets":   result.Total,
		"succeeded": result.Succeeded,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("Sweep completed")
	return result, ctx.Err()
}

// SyncOne runs one cycle for a tracked target
func (s *SchedulerService) SyncOne(ctx context.Context, owner, name string) (*models.SyncRun, error) {
	target, err := s.targetRepo.GetByName(owner, name)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotTracked, owner, name)
	}
	return s.RunTarget(ctx, target)
}

// RunTarget runs one cycle for target under the configured cycle deadline and
// records it. An up-to-date or busy target ends as skipped with a nil error.
// The returned run is never nil.
func (s *SchedulerService) RunTarget(ctx context.Context, target *models.Target) (*models.SyncRun, error) {
	log := logger.WithField("target", target.FullName())

	run := models.NewSyncRun(target.FullName())
	run.MarkStarted()
	if err := s.runRepo.Create(run); err != nil {
		log.WithError(err).Error("Failed to record sync run")
	}

	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	result, err := s.engine.SyncCycle(ctx, target)
	if result != nil {
		run.EventsSeen = result.EventsSeen
		run.UsersMerged = len(result.UsersMerged)
		run.ScanState = result.ScanState.String()
		run.Checkpoint = result.Checkpoint
	}

	switch {
	case errors.Is(err, syncer.ErrCheckpointStale), errors.Is(err, syncer.ErrCycleInProgress):
		log.WithField("reason", err.Error()).Info("Sync cycle skipped")
		run.MarkCompleted(models.SyncRunStatusSkipped)
		err = nil
	case err != nil:
		log.WithError(err).Error("Sync cycle failed")
		run.MarkFailed(err)
	default:
		run.MarkCompleted(models.SyncRunStatusSuccess)
	}

	if updateErr := s.runRepo.Update(run); updateErr != nil {
		log.WithError(updateErr).Error("Failed to update sync run")
	}
	return run, err
}
