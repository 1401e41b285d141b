package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// HistorySource is the slice of the gateway a full backfill needs
type HistorySource interface {
	EventSource
	Repository(ctx context.Context, owner, name string) (*github.Repository, error)
	Topics(ctx context.Context, owner, name string) ([]string, error)
	Branches(ctx context.Context, owner, name string) ([]*github.Branch, error)
	CommitsPager(owner, name string, filter gateway.CommitFilter) *gateway.Pager[*github.RepositoryCommit]
	IssuesPager(owner, name string, since time.Time) *gateway.Pager[*github.Issue]
	PullRequestsPager(owner, name string) *gateway.Pager[*github.PullRequest]
	PullRequest(ctx context.Context, owner, name string, number int) (*github.PullRequest, error)
	Reviews(ctx context.Context, owner, name string, number int) ([]*github.PullRequestReview, error)
}

// HistorySourceFunc resolves the history source for a host mode
type HistorySourceFunc func(enterprise bool) (HistorySource, error)

// BackfillTargetStore persists target metadata and membership
type BackfillTargetStore interface {
	TargetStore
	UpdateMetadata(target *models.Target) error
	AddContributor(owner, name, login string) error
}

// BackfillAggregateStore writes aggregates, including the in-flight placeholder
type BackfillAggregateStore interface {
	AggregateStore
	PutPlaceholder(login, target string) error
}

// Backfiller builds a contributor's first aggregate for a target from full history
type Backfiller struct {
	sources    HistorySourceFunc
	targets    BackfillTargetStore
	aggregates BackfillAggregateStore
	window     time.Duration
	pageSize   int
	timeout    time.Duration
	group      singleflight.Group
	now        func() time.Time
}

// NewBackfiller creates a backfiller. pageSize is used for the checkpoint
// lookup on the events feed; timeout bounds one extraction (zero means no limit).
func NewBackfiller(sources HistorySourceFunc, targets BackfillTargetStore, aggregates BackfillAggregateStore, window time.Duration, pageSize int, timeout time.Duration) *Backfiller {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Backfiller{
		sources:    sources,
		targets:    targets,
		aggregates: aggregates,
		window:     window,
		pageSize:   pageSize,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Backfill extracts login's history on target and stores it as a complete
// aggregate. Concurrent calls for the same pair share one extraction, which
// outlives any single caller; a canceled caller stops waiting but the
// extraction continues for the others.
func (b *Backfiller) Backfill(ctx context.Context, target *models.Target, login string) (*models.Aggregate, error) {
	key := login + "@" + target.FullName()
	ch := b.group.DoChan(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		if b.timeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, b.timeout)
			defer cancel()
		}
		return b.backfill(shared, target, login)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Aggregate), nil
	}
}

func (b *Backfiller) backfill(ctx context.Context, target *models.Target, login string) (*models.Aggregate, error) {
	fullName := target.FullName()
	log := logger.WithFields(logrus.Fields{"target": fullName, "user": login})
	log.Info("Starting backfill")

	src, err := b.sources(target.Enterprise)
	if err != nil {
		return nil, err
	}

	if err := b.aggregates.PutPlaceholder(login, fullName); err != nil {
		return nil, fmt.Errorf("write placeholder: %w", err)
	}

	repo, err := src.Repository(ctx, target.Owner, target.Name)
	if err != nil {
		if fatal := gateway.FatalForTarget(err); fatal != nil {
			return nil, fatal
		}
		return nil, err
	}
	topics, err := src.Topics(ctx, target.Owner, target.Name)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch topics")
	}
	gateway.ShapeTarget(target, repo, topics)

	windowStart := b.now().Add(-b.window)

	agg := models.NewAggregate(login, target.Info())
	agg.Commits = b.globalCommits(ctx, src, target, login, windowStart, log)
	agg.Issues = b.issues(ctx, src, target, login, windowStart, log)
	agg.PullRequests, err = b.pullRequests(ctx, src, target, login, windowStart, log)
	if err != nil {
		return nil, err
	}
	agg.Checkpoint = b.checkpoint(ctx, src, target, log)
	agg.UpdatedAt = b.now()

	if err := b.aggregates.Update(login, fullName, agg); err != nil {
		return nil, fmt.Errorf("save aggregate: %w", err)
	}
	if err := b.targets.UpdateMetadata(target); err != nil {
		return nil, fmt.Errorf("save target metadata: %w", err)
	}
	if err := b.targets.AddContributor(target.Owner, target.Name, login); err != nil {
		return nil, fmt.Errorf("add contributor: %w", err)
	}
	target.AddContributor(login)

	// a target that has never been synced starts from the backfill's view of the feed
	if target.Checkpoint == models.NoCheckpoint && agg.Checkpoint != models.NoCheckpoint {
		if err := b.targets.UpdateCheckpoint(target.Owner, target.Name, agg.Checkpoint, b.now()); err != nil {
			return nil, fmt.Errorf("seed checkpoint: %w", err)
		}
		target.Checkpoint = agg.Checkpoint
	}

	log.WithFields(logrus.Fields{
		"commits":       len(agg.Commits),
		"issues":        len(agg.Issues),
		"pull_requests": len(agg.PullRequests),
		"checkpoint":    agg.Checkpoint,
	}).Info("Backfill completed")
	return agg, nil
}

// globalCommits lists login's commits on every branch since windowStart, once per SHA
func (b *Backfiller) globalCommits(ctx context.Context, src HistorySource, target *models.Target, login string, windowStart time.Time, log *logrus.Entry) []models.Commit {
	commits := []models.Commit{}

	branches, err := src.Branches(ctx, target.Owner, target.Name)
	if err != nil {
		log.WithError(err).Warn("Failed to list branches, continuing with those fetched")
	}

	seen := make(map[string]bool)
	for _, branch := range branches {
		listed, err := src.CommitsPager(target.Owner, target.Name, gateway.CommitFilter{
			Branch: branch.GetName(),
			Author: login,
			Since:  windowStart,
		}).Collect(ctx)
		if err != nil {
			log.WithError(err).WithField("branch", branch.GetName()).Warn("Failed to list commits")
		}

		for _, rc := range listed {
			if seen[rc.GetSHA()] {
				continue
			}
			seen[rc.GetSHA()] = true

			detailed, err := src.Commit(ctx, target.Owner, target.Name, rc.GetSHA())
			if err != nil {
				log.WithError(err).WithField("sha", rc.GetSHA()).Warn("Failed to fetch commit details")
				detailed = rc
			}
			commit := gateway.ShapeCommit(detailed)
			commit.Merged = false
			commit.Branch = branch.GetName()
			commits = append(commits, commit)
		}
	}
	return commits
}

// issues lists the issues login opened or is assigned to
func (b *Backfiller) issues(ctx context.Context, src HistorySource, target *models.Target, login string, windowStart time.Time, log *logrus.Entry) []models.Issue {
	issues := []models.Issue{}
	err := src.IssuesPager(target.Owner, target.Name, windowStart).Walk(ctx, func(issue *github.Issue) bool {
		if issue.IsPullRequest() {
			return true
		}
		if involves(login, issue.GetUser(), issue.Assignees) {
			issues = append(issues, gateway.ShapeIssue(issue, login))
		}
		return true
	})
	if err != nil {
		log.WithError(err).Warn("Failed to list issues, continuing with those fetched")
	}
	return issues
}

// pullRequests builds records for pull requests login authored, reviewed or is assigned to
func (b *Backfiller) pullRequests(ctx context.Context, src HistorySource, target *models.Target, login string, windowStart time.Time, log *logrus.Entry) ([]models.PullRequestRecord, error) {
	var candidates []*github.PullRequest
	err := src.PullRequestsPager(target.Owner, target.Name).Walk(ctx, func(pr *github.PullRequest) bool {
		if pr.GetCreatedAt().Before(windowStart) {
			return false
		}
		candidates = append(candidates, pr)
		return true
	})
	if err != nil {
		log.WithError(err).Warn("Failed to list pull requests, continuing with those fetched")
	}

	records := []models.PullRequestRecord{}
	for _, pr := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		number := pr.GetNumber()

		reviews, err := src.Reviews(ctx, target.Owner, target.Name, number)
		if err != nil {
			log.WithError(err).WithField("pr", number).Warn("Failed to list reviews")
		}

		reviewed := false
		for _, r := range reviews {
			if strings.EqualFold(r.GetUser().GetLogin(), login) {
				reviewed = true
				break
			}
		}
		others := make([]*github.User, 0, len(pr.Assignees)+len(pr.RequestedReviewers))
		others = append(others, pr.Assignees...)
		others = append(others, pr.RequestedReviewers...)
		if !reviewed && !involves(login, pr.GetUser(), others) {
			continue
		}

		record := models.NewPullRequestRecord(number)
		full, err := src.PullRequest(ctx, target.Owner, target.Name, number)
		if err != nil {
			log.WithError(err).WithField("pr", number).Warn("Failed to fetch pull request details")
			full = pr
		}
		record.Details = gateway.ShapePullRequest(full)

		commits, err := authoredCommits(ctx, src, target.Owner, target.Name, number, login)
		if err != nil {
			log.WithError(err).WithField("pr", number).Warn("Failed to fetch pull request commits")
		} else {
			record.Commits = commits
		}

		for _, r := range reviews {
			if !strings.EqualFold(r.GetUser().GetLogin(), login) {
				continue
			}
			entries, err := reviewEntries(ctx, src, target.Owner, target.Name, number, r, login)
			if err != nil {
				log.WithError(err).WithField("pr", number).Warn("Failed to fetch review comments")
			}
			record.Comments = append(record.Comments, entries...)
		}

		records = append(records, *record)
	}
	return records, nil
}

// checkpoint returns the newest recognized feed item of this target, or NoCheckpoint
func (b *Backfiller) checkpoint(ctx context.Context, src HistorySource, target *models.Target, log *logrus.Entry) string {
	events, err := src.EventsPager(target.Owner, target.Name, b.pageSize).Next(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read events feed, no checkpoint recorded")
		return models.NoCheckpoint
	}
	for _, ev := range events {
		if Recognized(ev.GetType()) && strings.EqualFold(ev.GetRepo().GetName(), target.FullName()) {
			return ev.GetID()
		}
	}
	return models.NoCheckpoint
}

func involves(login string, author *github.User, others []*github.User) bool {
	if strings.EqualFold(author.GetLogin(), login) {
		return true
	}
	for _, u := range others {
		if strings.EqualFold(u.GetLogin(), login) {
			return true
		}
	}
	return false
}
