package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/repositories"
	"github.com/alimgiray/ghmirror/internal/syncer"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// MirrorService answers requests for a contributor's activity on a target
type MirrorService struct {
	registry        *gateway.Registry
	targetService   *TargetService
	aggRepo         *repositories.AggregateRepository
	contributorRepo *repositories.ContributorRepository
	backfiller      *syncer.Backfiller
}

func NewMirrorService(
	registry *gateway.Registry,
	targetService *TargetService,
	aggRepo *repositories.AggregateRepository,
	contributorRepo *repositories.ContributorRepository,
	backfiller *syncer.Backfiller,
) *MirrorService {
	return &MirrorService{
		registry:        registry,
		targetService:   targetService,
		aggRepo:         aggRepo,
		contributorRepo: contributorRepo,
		backfiller:      backfiller,
	}
}

// ResolveContributor turns a free-form user query into a stored contributor profile
func (s *MirrorService) ResolveContributor(ctx context.Context, query string, enterprise bool) (*models.Contributor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &models.ValidationError{Field: "user", Message: "user is required"}
	}

	gw, err := s.registry.For(enterprise)
	if err != nil {
		return nil, err
	}
	login, err := gw.SearchLogin(ctx, query)
	if err != nil {
		return nil, err
	}
	user, err := gw.User(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile of %s: %w", login, err)
	}

	contributor := gateway.ShapeContributor(user, enterprise)
	if err := s.contributorRepo.Upsert(contributor); err != nil {
		return nil, fmt.Errorf("failed to store contributor: %w", err)
	}
	return contributor, nil
}

// EnsureSynced returns the user's aggregate for owner/name, tracking the
// target and running the backfill the first time the pair is seen. It never
// runs a sync cycle itself.
func (s *MirrorService) EnsureSynced(ctx context.Context, user, owner, name string, enterprise bool) (*models.Aggregate, error) {
	contributor, err := s.ResolveContributor(ctx, user, enterprise)
	if err != nil {
		return nil, err
	}

	target, _, err := s.targetService.Track(ctx, owner, name, enterprise)
	if err != nil {
		return nil, err
	}

	agg, err := s.aggRepo.Get(contributor.Login, target.FullName())
	if err != nil {
		return nil, err
	}
	if agg != nil {
		return agg, nil
	}

	logger.WithFields(logrus.Fields{"target": target.FullName(), "user": contributor.Login}).Info("No aggregate yet, backfilling")
	return s.backfiller.Backfill(ctx, target, contributor.Login)
}
