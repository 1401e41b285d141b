package syncer

import (
	"context"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

const actionOpened = "opened"

func malformed(ev Event, field string) error {
	return &gateway.MalformedResponseError{Kind: ev.Type, ID: ev.ID, Field: field}
}

func eventLog(ev Event) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"target":     ev.Owner + "/" + ev.Name,
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"user":       ev.Actor,
	})
}

// IssueHandler turns an issue event into a new issue or a keyed issue snapshot
type IssueHandler struct{}

func (h *IssueHandler) Handle(_ context.Context, ev Event) (Outcome, error) {
	p, ok := ev.Payload.(*github.IssuesEvent)
	if !ok || p.Issue == nil {
		return Outcome{}, malformed(ev, "issue")
	}

	issue := gateway.ShapeIssueFromEvent(p, ev.Actor)
	return Outcome{
		Kind:   OutcomeIssue,
		User:   ev.Actor,
		IsNew:  p.GetAction() == actionOpened,
		Number: issue.Number,
		Issue:  &issue,
	}, nil
}

// PullRequestHandler turns a pull request event into a new record (with the
// actor's commits) or a keyed details update
type PullRequestHandler struct {
	src EventSource
}

func (h *PullRequestHandler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	p, ok := ev.Payload.(*github.PullRequestEvent)
	if !ok || p.PullRequest == nil {
		return Outcome{}, malformed(ev, "pull_request")
	}

	number := p.PullRequest.GetNumber()
	if number == 0 {
		number = p.GetNumber()
	}

	out := Outcome{
		Kind:        OutcomePullRequest,
		User:        ev.Actor,
		Number:      number,
		PullRequest: &PullRequestUpdate{Details: gateway.ShapePullRequest(p.PullRequest)},
	}

	if p.GetAction() == actionOpened {
		out.IsNew = true
		commits, err := authoredCommits(ctx, h.src, ev.Owner, ev.Name, number, ev.Actor)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, err
			}
			eventLog(ev).WithError(err).Warn("Failed to fetch pull request commits, recording without commits")
			commits = nil
		}
		out.PullRequest.Commits = commits
	}
	return out, nil
}

// ReviewHandler turns a review event into review comment entries keyed by pull request number
type ReviewHandler struct {
	src EventSource
}

func (h *ReviewHandler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	p, ok := ev.Payload.(*github.PullRequestReviewEvent)
	if !ok || p.Review == nil || p.PullRequest == nil {
		return Outcome{}, malformed(ev, "review")
	}

	number := p.PullRequest.GetNumber()
	comments, err := reviewEntries(ctx, h.src, ev.Owner, ev.Name, number, p.Review, ev.Actor)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		eventLog(ev).WithError(err).Warn("Failed to fetch review comments")
	}
	if len(comments) == 0 {
		return Outcome{Kind: OutcomeSkip, User: ev.Actor}, nil
	}

	return Outcome{
		Kind:        OutcomePullRequest,
		User:        ev.Actor,
		Number:      number,
		PullRequest: &PullRequestUpdate{Comments: comments},
	}, nil
}

// PushHandler inspects the last commit of a push. A commit that belongs to a
// pull request refreshes that pull request's commit list for every commit
// author; any other commit becomes a global commit.
type PushHandler struct {
	src EventSource
}

func (h *PushHandler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	p, ok := ev.Payload.(*github.PushEvent)
	if !ok {
		return Outcome{}, malformed(ev, "push")
	}

	// only the last commit of the push is inspected
	sha := p.GetHead()
	if n := len(p.Commits); n > 0 {
		last := p.Commits[n-1]
		if s := last.GetSHA(); s != "" {
			sha = s
		} else if id := last.GetID(); id != "" {
			sha = id
		}
	}
	if sha == "" {
		return Outcome{}, malformed(ev, "head")
	}

	prs, err := h.src.PullRequestsForCommit(ctx, ev.Owner, ev.Name, sha)
	if err != nil {
		return Outcome{}, err
	}

	if len(prs) > 0 {
		return h.pullRequestOutcome(ctx, ev, prs[0].GetNumber())
	}

	rc, err := h.src.Commit(ctx, ev.Owner, ev.Name, sha)
	if err != nil {
		return Outcome{}, err
	}
	commit := gateway.ShapeCommit(rc)

	user := rc.GetAuthor().GetLogin()
	if user == "" {
		user = ev.Actor
	}
	return Outcome{
		Kind:   OutcomeCommit,
		User:   user,
		IsNew:  true,
		Commit: &commit,
	}, nil
}

// pullRequestOutcome files the pull request's full commit list under each
// commit author. The pusher's update comes first when they authored any.
func (h *PushHandler) pullRequestOutcome(ctx context.Context, ev Event, number int) (Outcome, error) {
	byAuthor, authors, err := pullRequestCommits(ctx, h.src, ev.Owner, ev.Name, number, nil)
	if err != nil {
		return Outcome{}, err
	}
	if len(authors) == 0 {
		eventLog(ev).WithField("pr", number).Debug("Pull request has no attributable commits")
		return Outcome{Kind: OutcomeSkip, User: ev.Actor}, nil
	}

	for i, login := range authors {
		if strings.EqualFold(login, ev.Actor) {
			authors[0], authors[i] = authors[i], authors[0]
			break
		}
	}

	outcomes := make([]Outcome, 0, len(authors))
	for _, login := range authors {
		outcomes = append(outcomes, Outcome{
			Kind:        OutcomePullRequest,
			User:        login,
			Number:      number,
			PullRequest: &PullRequestUpdate{Commits: byAuthor[login]},
		})
	}
	out := outcomes[0]
	out.Related = outcomes[1:]
	return out, nil
}

// authoredCommits returns the detailed commits of a pull request authored by login
func authoredCommits(ctx context.Context, src EventSource, owner, name string, number int, login string) ([]models.Commit, error) {
	byAuthor, authors, err := pullRequestCommits(ctx, src, owner, name, number, func(author string) bool {
		return strings.EqualFold(author, login)
	})
	if err != nil {
		return nil, err
	}
	commits := []models.Commit{}
	for _, author := range authors {
		commits = append(commits, byAuthor[author]...)
	}
	return commits, nil
}

// pullRequestCommits returns the detailed commits of a pull request grouped by
// author login, with the logins in listing order. Commits without an author
// login, or rejected by keep, are dropped. A commit whose details cannot be
// fetched is kept in its list form.
func pullRequestCommits(ctx context.Context, src EventSource, owner, name string, number int, keep func(login string) bool) (map[string][]models.Commit, []string, error) {
	listed, err := src.PullRequestCommits(ctx, owner, name, number)
	if err != nil {
		return nil, nil, err
	}

	byAuthor := make(map[string][]models.Commit)
	var authors []string
	for _, rc := range listed {
		login := rc.GetAuthor().GetLogin()
		if login == "" || (keep != nil && !keep(login)) {
			continue
		}
		detailed, err := src.Commit(ctx, owner, name, rc.GetSHA())
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.WithError(err).WithField("sha", rc.GetSHA()).Warn("Failed to fetch commit details")
			detailed = rc
		}
		if _, seen := byAuthor[login]; !seen {
			authors = append(authors, login)
		}
		byAuthor[login] = append(byAuthor[login], gateway.ShapeCommit(detailed))
	}
	return byAuthor, authors, nil
}

// reviewEntries builds the comment entries login contributed through one review.
// Approvals and reviews with a body become a single entry; other reviews
// contribute the reviewer's inline comments.
func reviewEntries(ctx context.Context, src EventSource, owner, name string, number int, review *github.PullRequestReview, login string) ([]models.ReviewComment, error) {
	state := gateway.ReviewState(review)
	if state == gateway.ReviewApproved || review.GetBody() != "" {
		return []models.ReviewComment{gateway.ShapeReview(review)}, nil
	}
	if state != gateway.ReviewChangesRequested && state != gateway.ReviewCommented {
		return nil, nil
	}

	inline, err := src.ReviewComments(ctx, owner, name, number, review.GetID())
	if err != nil {
		return nil, err
	}
	entries := make([]models.ReviewComment, 0, len(inline))
	for _, c := range inline {
		if strings.EqualFold(c.GetUser().GetLogin(), login) {
			entries = append(entries, gateway.ShapeReviewComment(c, state))
		}
	}
	return entries, nil
}
