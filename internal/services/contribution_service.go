package services

import (
	"context"
	"strings"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
)

// ContributionService reads contribution calendars
type ContributionService struct {
	registry *gateway.Registry
}

func NewContributionService(registry *gateway.Registry) *ContributionService {
	return &ContributionService{registry: registry}
}

// Calendar returns the last year of daily contribution counts for login
func (s *ContributionService) Calendar(ctx context.Context, login string, enterprise bool) (*models.ContributionCalendar, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, &models.ValidationError{Field: "user", Message: "user is required"}
	}
	gw, err := s.registry.For(enterprise)
	if err != nil {
		return nil, err
	}
	return gw.ContributionCalendar(ctx, login)
}
