package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/repositories"
	"github.com/alimgiray/ghmirror/internal/syncer"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// ErrTargetNotTracked means the repository has no target record
var ErrTargetNotTracked = errors.New("target is not tracked")

// SeedResult lists what a contributor seeding pass did
type SeedResult struct {
	Target  string            `json:"target"`
	Seeded  []string          `json:"seeded"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed"`
}

// TargetService manages tracked repositories
type TargetService struct {
	registry   *gateway.Registry
	targetRepo *repositories.TargetRepository
	aggRepo    *repositories.AggregateRepository
	runRepo    *repositories.SyncRunRepository
	backfiller *syncer.Backfiller
}

func NewTargetService(
	registry *gateway.Registry,
	targetRepo *repositories.TargetRepository,
	aggRepo *repositories.AggregateRepository,
	runRepo *repositories.SyncRunRepository,
	backfiller *syncer.Backfiller,
) *TargetService {
	return &TargetService{
		registry:   registry,
		targetRepo: targetRepo,
		aggRepo:    aggRepo,
		runRepo:    runRepo,
		backfiller: backfiller,
	}
}

// Track starts tracking owner/name. It reports whether a new target record was created;
// an already tracked target is returned unchanged.
func (s *TargetService) Track(ctx context.Context, owner, name string, enterprise bool) (*models.Target, bool, error) {
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, false, &models.ValidationError{Field: "target", Message: "owner and name are required"}
	}

	existing, err := s.targetRepo.GetByName(owner, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	gw, err := s.registry.For(enterprise)
	if err != nil {
		return nil, false, err
	}
	repo, err := gw.Repository(ctx, owner, name)
	if err != nil {
		if fatal := gateway.FatalForTarget(err); fatal != nil {
			return nil, false, fatal
		}
		return nil, false, err
	}
	topics, err := gw.Topics(ctx, owner, name)
	if err != nil {
		logger.WithError(err).WithField("target", owner+"/"+name).Warn("Failed to fetch topics")
	}

	target := models.NewTarget(owner, name, enterprise)
	gateway.ShapeTarget(target, repo, topics)

	created, err := s.targetRepo.Create(target)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create target: %w", err)
	}
	if !created {
		// tracked concurrently
		target, err = s.targetRepo.GetByName(owner, name)
		return target, false, err
	}

	logger.WithFields(logrus.Fields{"target": target.FullName(), "enterprise": enterprise}).Info("Tracking target")
	return target, true, nil
}

// Get retrieves a tracked target
func (s *TargetService) Get(owner, name string) (*models.Target, error) {
	target, err := s.targetRepo.GetByName(owner, name)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotTracked, owner, name)
	}
	return target, nil
}

// List retrieves every tracked target
func (s *TargetService) List() ([]*models.Target, error) {
	targets, err := s.targetRepo.List()
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []*models.Target{}
	}
	return targets, nil
}

// Runs retrieves the most recent sync runs of a tracked target
func (s *TargetService) Runs(owner, name string, limit int) ([]*models.SyncRun, error) {
	target, err := s.Get(owner, name)
	if err != nil {
		return nil, err
	}
	runs, err := s.runRepo.ListByTarget(target.FullName(), limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []*models.SyncRun{}
	}
	return runs, nil
}

// SeedContributors backfills every user in the repository's contributor
// listing that has no aggregate yet. Bot accounts are skipped.
func (s *TargetService) SeedContributors(ctx context.Context, owner, name string) (*SeedResult, error) {
	target, err := s.Get(owner, name)
	if err != nil {
		return nil, err
	}
	gw, err := s.registry.For(target.Enterprise)
	if err != nil {
		return nil, err
	}

	contributors, err := gw.Contributors(ctx, owner, name)
	if err != nil {
		if fatal := gateway.FatalForTarget(err); fatal != nil {
			return nil, fatal
		}
		if len(contributors) == 0 {
			return nil, err
		}
		logger.WithError(err).WithField("target", target.FullName()).Warn("Contributor listing incomplete, seeding those fetched")
	}

	result := &SeedResult{Target: target.FullName(), Seeded: []string{}, Skipped: []string{}, Failed: map[string]string{}}
	for _, c := range contributors {
		login := c.GetLogin()
		if login == "" || c.GetType() == "Bot" {
			continue
		}

		existing, err := s.aggRepo.Get(login, target.FullName())
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped = append(result.Skipped, login)
			continue
		}

		if _, err := s.backfiller.Backfill(ctx, target, login); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.WithError(err).WithFields(logrus.Fields{"target": target.FullName(), "user": login}).Error("Failed to seed contributor")
			result.Failed[login] = err.Error()
			continue
		}
		result.Seeded = append(result.Seeded, login)
	}

	logger.WithFields(logrus.Fields{
		"target":  target.FullName(),
		"seeded":  len(result.Seeded),
		"skipped": len(result.Skipped),
		"failed":  len(result.Failed),
	}).Info("Seeded contributors")
	return result, nil
}
