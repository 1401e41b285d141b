package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
)

var testRetry = gateway.RetryPolicy{MaxRetries: 0, InitialInterval: time.Millisecond}

// mockSource is a testify mock of EventSource. The events feed is served
// from static pages; failPage makes the page with that number fail.
type mockSource struct {
	mock.Mock
	pages     [][]*github.Event
	failPage  int
	failCode  int
	pageCalls int
}

func (m *mockSource) EventsPager(_, _ string, perPage int) *gateway.Pager[*github.Event] {
	return gateway.NewPager("list events", func(_ context.Context, opts *github.ListOptions) ([]*github.Event, *github.Response, error) {
		m.pageCalls++
		if m.failPage == opts.Page {
			code := m.failCode
			if code == 0 {
				code = 502
			}
			httpResp := &http.Response{StatusCode: code, Request: &http.Request{}}
			return nil, &github.Response{Response: httpResp}, &github.ErrorResponse{Response: httpResp, Message: "failed"}
		}
		idx := opts.Page - 1
		if idx >= len(m.pages) {
			return nil, &github.Response{}, nil
		}
		resp := &github.Response{}
		if idx+1 < len(m.pages) {
			resp.NextPage = opts.Page + 1
		}
		return m.pages[idx], resp, nil
	}, perPage, testRetry)
}

func (m *mockSource) Commit(ctx context.Context, owner, name, sha string) (*github.RepositoryCommit, error) {
	args := m.Called(ctx, owner, name, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.RepositoryCommit), args.Error(1)
}

func (m *mockSource) PullRequestCommits(ctx context.Context, owner, name string, number int) ([]*github.RepositoryCommit, error) {
	args := m.Called(ctx, owner, name, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*github.RepositoryCommit), args.Error(1)
}

func (m *mockSource) PullRequestsForCommit(ctx context.Context, owner, name, sha string) ([]*github.PullRequest, error) {
	args := m.Called(ctx, owner, name, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*github.PullRequest), args.Error(1)
}

func (m *mockSource) ReviewComments(ctx context.Context, owner, name string, number int, reviewID int64) ([]*github.PullRequestComment, error) {
	args := m.Called(ctx, owner, name, number, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*github.PullRequestComment), args.Error(1)
}

// memTargets is an in-memory target store
type memTargets struct {
	mu           sync.Mutex
	checkpoints  map[string]string
	syncedAt     map[string]time.Time
	contributors map[string][]string
	metadata     map[string]*models.Target
}

func newMemTargets() *memTargets {
	return &memTargets{
		checkpoints:  make(map[string]string),
		syncedAt:     make(map[string]time.Time),
		contributors: make(map[string][]string),
		metadata:     make(map[string]*models.Target),
	}
}

func (s *memTargets) UpdateCheckpoint(owner, name, checkpoint string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[owner+"/"+name] = checkpoint
	s.syncedAt[owner+"/"+name] = syncedAt
	return nil
}

func (s *memTargets) UpdateMetadata(target *models.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *target
	s.metadata[target.FullName()] = &copied
	return nil
}

func (s *memTargets) AddContributor(owner, name, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := owner + "/" + name
	for _, c := range s.contributors[key] {
		if c == login {
			return nil
		}
	}
	s.contributors[key] = append(s.contributors[key], login)
	return nil
}

// memAggregates is an in-memory aggregate store that round-trips through JSON
type memAggregates struct {
	mu           sync.Mutex
	docs         map[string][]byte
	placeholders map[string]bool
	updates      int
}

func newMemAggregates() *memAggregates {
	return &memAggregates{docs: make(map[string][]byte), placeholders: make(map[string]bool)}
}

func (s *memAggregates) Get(login, target string) (*models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[login+"@"+target]
	if !ok || s.placeholders[login+"@"+target] {
		return nil, nil
	}
	agg := &models.Aggregate{}
	if err := json.Unmarshal(raw, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *memAggregates) Update(login, target string, agg *models.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	s.docs[login+"@"+target] = raw
	delete(s.placeholders, login+"@"+target)
	s.updates++
	return nil
}

func (s *memAggregates) PutPlaceholder(login, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholders[login+"@"+target] = true
	return nil
}

func (s *memAggregates) seed(t *testing.T, agg *models.Aggregate) {
	t.Helper()
	require.NoError(t, s.Update(agg.Login, agg.Target.FullName, agg))
}

// feedEvent builds a raw feed item with a JSON payload
func feedEvent(t *testing.T, id, eventType, actor string, createdAt time.Time, payload interface{}) *github.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	msg := json.RawMessage(raw)
	return &github.Event{
		ID:         github.String(id),
		Type:       github.String(eventType),
		Actor:      &github.User{Login: github.String(actor)},
		Repo:       &github.Repository{Name: github.String("octo/hello")},
		CreatedAt:  &github.Timestamp{Time: createdAt},
		RawPayload: &msg,
	}
}

func issuePayload(action string, number int, state, author string) *github.IssuesEvent {
	return &github.IssuesEvent{
		Action: github.String(action),
		Issue: &github.Issue{
			Number:  github.Int(number),
			Title:   github.String(fmt.Sprintf("Issue %d", number)),
			State:   github.String(state),
			HTMLURL: github.String(fmt.Sprintf("https://github.com/octo/hello/issues/%d", number)),
			User:    &github.User{Login: github.String(author)},
		},
	}
}

func pullRequestPayload(action string, number int, state string) *github.PullRequestEvent {
	return &github.PullRequestEvent{
		Action: github.String(action),
		Number: github.Int(number),
		PullRequest: &github.PullRequest{
			Number:  github.Int(number),
			Title:   github.String(fmt.Sprintf("PR %d", number)),
			State:   github.String(state),
			HTMLURL: github.String(fmt.Sprintf("https://github.com/octo/hello/pull/%d", number)),
		},
	}
}

func reviewPayload(number int, reviewID int64, state, body string) *github.PullRequestReviewEvent {
	return &github.PullRequestReviewEvent{
		Action: github.String("submitted"),
		Review: &github.PullRequestReview{
			ID:      github.Int64(reviewID),
			State:   github.String(state),
			Body:    github.String(body),
			HTMLURL: github.String(fmt.Sprintf("https://github.com/octo/hello/pull/%d#pullrequestreview-%d", number, reviewID)),
		},
		PullRequest: &github.PullRequest{Number: github.Int(number)},
	}
}

func pushPayload(shas ...string) *github.PushEvent {
	p := &github.PushEvent{Ref: github.String("refs/heads/main")}
	for _, sha := range shas {
		p.Commits = append(p.Commits, &github.HeadCommit{SHA: github.String(sha)})
	}
	if len(shas) > 0 {
		p.Head = github.String(shas[len(shas)-1])
	}
	return p
}

func detailedCommit(sha, login, message string) *github.RepositoryCommit {
	return &github.RepositoryCommit{
		SHA:     github.String(sha),
		HTMLURL: github.String("https://github.com/octo/hello/commit/" + sha),
		Author:  &github.User{Login: github.String(login)},
		Commit: &github.Commit{
			Message: github.String(message),
			Author:  &github.CommitAuthor{Name: github.String(login)},
		},
		Stats: &github.CommitStats{Additions: github.Int(1), Deletions: github.Int(0), Total: github.Int(1)},
	}
}
