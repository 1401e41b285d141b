// Package gateway wraps the GitHub REST and GraphQL clients used by the mirror.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v57/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

const defaultPageSize = 100

// ClientContext carries the endpoints and credential for one host.
// It is passed explicitly; nothing is read from request state.
type ClientContext struct {
	BaseURL    string
	GraphQLURL string
	Token      string
}

// CommitFilter narrows a commit listing
type CommitFilter struct {
	Branch string
	Author string
	Since  time.Time
}

// Gateway fetches raw GitHub objects for one host
type Gateway struct {
	rest    *github.Client
	graphql *githubv4.Client
	retry   RetryPolicy
}

// New builds a gateway whose requests go through the rate-limit waiter and a bearer token transport
func New(cc ClientContext, timeout time.Duration, retry RetryPolicy) (*Gateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = rateLimitWaiter
	if cc.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cc.Token}),
		}
	}

	return NewWithHTTPClient(cc, &http.Client{Transport: transport, Timeout: timeout}, retry)
}

// NewWithHTTPClient builds a gateway on top of an existing HTTP client
func NewWithHTTPClient(cc ClientContext, httpClient *http.Client, retry RetryPolicy) (*Gateway, error) {
	rest := github.NewClient(httpClient)
	if cc.BaseURL != "" {
		baseURL, err := url.Parse(cc.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", cc.BaseURL, err)
		}
		rest.BaseURL = baseURL
	}

	graphql := githubv4.NewClient(httpClient)
	if cc.GraphQLURL != "" {
		graphql = githubv4.NewEnterpriseClient(cc.GraphQLURL, httpClient)
	}

	return &Gateway{rest: rest, graphql: graphql, retry: retry}, nil
}

// EventsPager lists a repository's events feed, newest first
func (g *Gateway) EventsPager(owner, name string, perPage int) *Pager[*github.Event] {
	return NewPager("list events", func(ctx context.Context, opts *github.ListOptions) ([]*github.Event, *github.Response, error) {
		return g.rest.Activity.ListRepositoryEvents(ctx, owner, name, opts)
	}, perPage, g.retry)
}

// Commit fetches one commit with stats and files
func (g *Gateway) Commit(ctx context.Context, owner, name, sha string) (*github.RepositoryCommit, error) {
	var commit *github.RepositoryCommit
	err := g.retry.do(ctx, "get commit "+sha, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		commit, resp, err = g.rest.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return resp, err
	})
	return commit, err
}

// PullRequest fetches one pull request
func (g *Gateway) PullRequest(ctx context.Context, owner, name string, number int) (*github.PullRequest, error) {
	var pr *github.PullRequest
	err := g.retry.do(ctx, fmt.Sprintf("get pull request #%d", number), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		pr, resp, err = g.rest.PullRequests.Get(ctx, owner, name, number)
		return resp, err
	})
	return pr, err
}

// PullRequestCommits lists every commit of a pull request
func (g *Gateway) PullRequestCommits(ctx context.Context, owner, name string, number int) ([]*github.RepositoryCommit, error) {
	return NewPager(fmt.Sprintf("list commits of #%d", number), func(ctx context.Context, opts *github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		return g.rest.PullRequests.ListCommits(ctx, owner, name, number, opts)
	}, defaultPageSize, g.retry).Collect(ctx)
}

// PullRequestsForCommit lists the pull requests that contain sha
func (g *Gateway) PullRequestsForCommit(ctx context.Context, owner, name, sha string) ([]*github.PullRequest, error) {
	return NewPager("list pull requests for "+sha, func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		return g.rest.PullRequests.ListPullRequestsWithCommit(ctx, owner, name, sha, opts)
	}, defaultPageSize, g.retry).Collect(ctx)
}

// Reviews lists the reviews submitted on a pull request
func (g *Gateway) Reviews(ctx context.Context, owner, name string, number int) ([]*github.PullRequestReview, error) {
	return NewPager(fmt.Sprintf("list reviews of #%d", number), func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequestReview, *github.Response, error) {
		return g.rest.PullRequests.ListReviews(ctx, owner, name, number, opts)
	}, defaultPageSize, g.retry).Collect(ctx)
}

// ReviewComments lists the inline comments belonging to one review
func (g *Gateway) ReviewComments(ctx context.Context, owner, name string, number int, reviewID int64) ([]*github.PullRequestComment, error) {
	return NewPager(fmt.Sprintf("list comments of review %d", reviewID), func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
		return g.rest.PullRequests.ListReviewComments(ctx, owner, name, number, reviewID, opts)
	}, defaultPageSize, g.retry).Collect(ctx)
}

// Repository fetches repository metadata
func (g *Gateway) Repository(ctx context.Context, owner, name string) (*github.Repository, error) {
	var repo *github.Repository
	err := g.retry.do(ctx, "get repository "+owner+"/"+name, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		repo, resp, err = g.rest.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	return repo, err
}

// Topics lists repository topics
func (g *Gateway) Topics(ctx context.Context, owner, name string) ([]string, error) {
	var topics []string
	err := g.retry.do(ctx, "list topics", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		topics, resp, err = g.rest.Repositories.ListAllTopics(ctx, owner, name)
		return resp, err
	})
	return topics, err
}

// Branches lists every branch of a repository
func (g *Gateway) Branches(ctx context.Context, owner, name string) ([]*github.Branch, error) {
	return NewPager("list branches", func(ctx context.Context, opts *github.ListOptions) ([]*github.Branch, *github.Response, error) {
		return g.rest.Repositories.ListBranches(ctx, owner, name, &github.BranchListOptions{ListOptions: *opts})
	}, defaultPageSize, g.retry).Collect(ctx)
}

// CommitsPager lists commits matching filter, newest first
func (g *Gateway) CommitsPager(owner, name string, filter CommitFilter) *Pager[*github.RepositoryCommit] {
	return NewPager("list commits on "+filter.Branch, func(ctx context.Context, opts *github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		return g.rest.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
			SHA:         filter.Branch,
			Author:      filter.Author,
			Since:       filter.Since,
			ListOptions: *opts,
		})
	}, defaultPageSize, g.retry)
}

// IssuesPager lists issues and pull requests in every state updated since the given time
func (g *Gateway) IssuesPager(owner, name string, since time.Time) *Pager[*github.Issue] {
	return NewPager("list issues", func(ctx context.Context, opts *github.ListOptions) ([]*github.Issue, *github.Response, error) {
		return g.rest.Issues.ListByRepo(ctx, owner, name, &github.IssueListByRepoOptions{
			State:       "all",
			Since:       since,
			ListOptions: *opts,
		})
	}, defaultPageSize, g.retry)
}

// PullRequestsPager lists pull requests in every state, newest first
func (g *Gateway) PullRequestsPager(owner, name string) *Pager[*github.PullRequest] {
	return NewPager("list pull requests", func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		return g.rest.PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{
			State:       "all",
			Sort:        "created",
			Direction:   "desc",
			ListOptions: *opts,
		})
	}, defaultPageSize, g.retry)
}

// Contributors lists the repository's contributors
func (g *Gateway) Contributors(ctx context.Context, owner, name string) ([]*github.Contributor, error) {
	return NewPager("list contributors", func(ctx context.Context, opts *github.ListOptions) ([]*github.Contributor, *github.Response, error) {
		return g.rest.Repositories.ListContributors(ctx, owner, name, &github.ListContributorsOptions{ListOptions: *opts})
	}, defaultPageSize, g.retry).Collect(ctx)
}

// User fetches a user profile by login
func (g *Gateway) User(ctx context.Context, login string) (*github.User, error) {
	var user *github.User
	err := g.retry.do(ctx, "get user "+login, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		user, resp, err = g.rest.Users.Get(ctx, login)
		return resp, err
	})
	return user, err
}

// SearchLogin resolves a free-form user query to the best matching login
func (g *Gateway) SearchLogin(ctx context.Context, query string) (string, error) {
	var result *github.UsersSearchResult
	err := g.retry.do(ctx, "search users", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		result, resp, err = g.rest.Search.Users(ctx, query, &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}})
		return resp, err
	})
	if err != nil {
		return "", err
	}
	if len(result.Users) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, query)
	}
	return result.Users[0].GetLogin(), nil
}

// Registry holds one gateway per host mode
type Registry struct {
	standard   *Gateway
	enterprise *Gateway
}

// NewRegistry creates a registry. enterprise may be nil when no enterprise host is configured.
func NewRegistry(standard, enterprise *Gateway) *Registry {
	return &Registry{standard: standard, enterprise: enterprise}
}

// For returns the gateway for the given host mode
func (r *Registry) For(enterprise bool) (*Gateway, error) {
	gw := r.standard
	if enterprise {
		gw = r.enterprise
	}
	if gw == nil {
		return nil, ErrHostNotConfigured
	}
	return gw, nil
}
