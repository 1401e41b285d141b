// Package app wires the repositories, gateways and services shared by the server and the CLI.
package app

import (
	"database/sql"
	"fmt"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/repositories"
	"github.com/alimgiray/ghmirror/internal/services"
	"github.com/alimgiray/ghmirror/internal/syncer"
	"github.com/alimgiray/ghmirror/pkg/config"
)

// App holds the wired services
type App struct {
	Registry      *gateway.Registry
	Targets       *services.TargetService
	Mirror        *services.MirrorService
	Scheduler     *services.SchedulerService
	Contributions *services.ContributionService
	Summary       *services.SummaryService
	Export        *services.ExportService
}

// New builds every service on top of db. The enterprise gateway is only
// created when an enterprise API URL is configured.
func New(cfg *config.Config, db *sql.DB) (*App, error) {
	standard, err := newGateway(cfg.GitHub, cfg.GitHub.Standard)
	if err != nil {
		return nil, fmt.Errorf("standard host: %w", err)
	}
	var enterprise *gateway.Gateway
	if cfg.GitHub.Enterprise.BaseURL != "" {
		enterprise, err = newGateway(cfg.GitHub, cfg.GitHub.Enterprise)
		if err != nil {
			return nil, fmt.Errorf("enterprise host: %w", err)
		}
	}
	registry := gateway.NewRegistry(standard, enterprise)

	targetRepo := repositories.NewTargetRepository(db)
	aggRepo := repositories.NewAggregateRepository(db)
	contributorRepo := repositories.NewContributorRepository(db)
	runRepo := repositories.NewSyncRunRepository(db)

	engine := syncer.NewEngine(services.EventSources(registry), targetRepo, aggRepo, syncer.EngineConfig{
		Window:   cfg.Sync.Window,
		MaxPages: cfg.Sync.MaxFeedPages,
		PageSize: cfg.Sync.FeedPageSize,
	})
	backfiller := syncer.NewBackfiller(services.HistorySources(registry), targetRepo, aggRepo, cfg.Sync.Window, cfg.Sync.FeedPageSize, cfg.Sync.CycleTimeout)

	targetService := services.NewTargetService(registry, targetRepo, aggRepo, runRepo, backfiller)
	summaryService := services.NewSummaryService()

	return &App{
		Registry:      registry,
		Targets:       targetService,
		Mirror:        services.NewMirrorService(registry, targetService, aggRepo, contributorRepo, backfiller),
		Scheduler:     services.NewSchedulerService(targetRepo, runRepo, engine, cfg.Sync),
		Contributions: services.NewContributionService(registry),
		Summary:       summaryService,
		Export:        services.NewExportService(summaryService),
	}, nil
}

func newGateway(gh config.GitHubConfig, host config.HostConfig) (*gateway.Gateway, error) {
	retry := gateway.DefaultRetryPolicy
	retry.MaxRetries = gh.MaxRetries
	return gateway.New(gateway.ClientContext{
		BaseURL:    host.BaseURL,
		GraphQLURL: host.GraphQLURL,
		Token:      host.Token,
	}, gh.RequestTimeout, retry)
}
