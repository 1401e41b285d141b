package services

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/repositories"
	"github.com/alimgiray/ghmirror/internal/syncer"
	"github.com/alimgiray/ghmirror/pkg/config"
	"github.com/alimgiray/ghmirror/pkg/database"
)

func recent() string {
	return time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
}

// fakeGitHub serves octo/hello, where alice authored issue 1 and commit c1
type fakeGitHub struct {
	mu     sync.Mutex
	routes map[string]string
	hits   map[string]int
}

func newFakeGitHub() *fakeGitHub {
	ts := recent()
	commit := `{"sha":"c1","html_url":"https://github.com/octo/hello/commit/c1","author":{"login":"alice"},` +
		`"commit":{"message":"initial work\n\nbody","author":{"name":"alice","date":"` + ts + `"}},"stats":{"additions":10,"deletions":2,"total":12}}`
	return &fakeGitHub{
		routes: map[string]string{
			"/search/users":              `{"total_count":1,"incomplete_results":false,"items":[{"login":"alice"}]}`,
			"/users/alice":               `{"login":"alice","name":"Alice","followers":4,"public_repos":2}`,
			"/repos/octo/hello":          `{"id":42,"name":"hello","full_name":"octo/hello","language":"Go","stargazers_count":7,"default_branch":"main","owner":{"login":"octo"}}`,
			"/repos/octo/hello/topics":   `{"names":["mirror"]}`,
			"/repos/octo/hello/branches": `[{"name":"main"}]`,
			"/repos/octo/hello/commits":  `[` + commit + `]`,
			"/repos/octo/hello/commits/c1": commit,
			"/repos/octo/hello/issues": `[{"number":1,"title":"one","state":"open","user":{"login":"alice"},"created_at":"` + ts + `"}]`,
			"/repos/octo/hello/pulls":    `[]`,
			"/repos/octo/hello/events":   `[{"id":"900","type":"IssuesEvent","actor":{"login":"bob"},"repo":{"name":"octo/hello"},"created_at":"` + ts + `","payload":{"action":"closed","issue":{"number":5,"state":"closed","user":{"login":"bob"}}}}]`,
			"/repos/octo/hello/contributors": `[{"login":"alice","type":"User"},{"login":"dependabot[bot]","type":"Bot"}]`,
			"/graphql": `{"data":{"user":{"contributionsCollection":{"contributionCalendar":{"totalContributions":4,"weeks":[` +
				`{"contributionDays":[{"contributionCount":0,"date":"2024-05-19"},{"contributionCount":4,"date":"2024-05-20"}]}]}}}}}`,
		},
		hits: map[string]int{},
	}
}

// set replaces the body served for path
func (f *fakeGitHub) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = body
}

func (f *fakeGitHub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	body, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

// testEnv wires every service against an in-memory database and a fake GitHub host
type testEnv struct {
	github          *fakeGitHub
	db              *sql.DB
	targetRepo      *repositories.TargetRepository
	aggRepo         *repositories.AggregateRepository
	contributorRepo *repositories.ContributorRepository
	runRepo         *repositories.SyncRunRepository
	targets         *TargetService
	mirror          *MirrorService
	scheduler       *SchedulerService
	contributions   *ContributionService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeGitHub()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	gw, err := gateway.NewWithHTTPClient(gateway.ClientContext{
		BaseURL:    server.URL + "/",
		GraphQLURL: server.URL + "/graphql",
	}, server.Client(), gateway.RetryPolicy{MaxRetries: 0, InitialInterval: time.Millisecond})
	require.NoError(t, err)
	registry := gateway.NewRegistry(gw, nil)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.SyncConfig{
		Window:       365 * 24 * time.Hour,
		MaxFeedPages: 3,
		FeedPageSize: 100,
		Concurrency:  2,
		CycleTimeout: 10 * time.Second,
		RunRetention: 24 * time.Hour,
	}

	env := &testEnv{
		github:          fake,
		db:              db,
		targetRepo:      repositories.NewTargetRepository(db),
		aggRepo:         repositories.NewAggregateRepository(db),
		contributorRepo: repositories.NewContributorRepository(db),
		runRepo:         repositories.NewSyncRunRepository(db),
	}

	engine := syncer.NewEngine(EventSources(registry), env.targetRepo, env.aggRepo, syncer.EngineConfig{
		Window:   cfg.Window,
		MaxPages: cfg.MaxFeedPages,
		PageSize: cfg.FeedPageSize,
	})
	backfiller := syncer.NewBackfiller(HistorySources(registry), env.targetRepo, env.aggRepo, cfg.Window, cfg.FeedPageSize, cfg.CycleTimeout)

	env.targets = NewTargetService(registry, env.targetRepo, env.aggRepo, env.runRepo, backfiller)
	env.mirror = NewMirrorService(registry, env.targets, env.aggRepo, env.contributorRepo, backfiller)
	env.scheduler = NewSchedulerService(env.targetRepo, env.runRepo, engine, cfg)
	env.contributions = NewContributionService(registry)
	return env
}
