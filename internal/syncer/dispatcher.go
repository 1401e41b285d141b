// Package syncer turns a repository events feed into merged per-contributor aggregates.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
)

// Recognized feed event types
const (
	EventIssues            = "IssuesEvent"
	EventPullRequest       = "PullRequestEvent"
	EventPullRequestReview = "PullRequestReviewEvent"
	EventPush              = "PushEvent"
)

// Recognized reports whether eventType has a handler
func Recognized(eventType string) bool {
	switch eventType {
	case EventIssues, EventPullRequest, EventPullRequestReview, EventPush:
		return true
	}
	return false
}

// Event is a classified feed item with its typed payload
type Event struct {
	ID        string
	Type      string
	Actor     string
	CreatedAt time.Time
	Owner     string
	Name      string
	Payload   interface{}
}

// OutcomeKind tells the merge engine where a handler result goes
type OutcomeKind int

const (
	OutcomeSkip OutcomeKind = iota
	OutcomeIssue
	OutcomePullRequest
	OutcomeCommit
)

// PullRequestUpdate is a keyed partial update to a pull request record.
// Nil Details and nil Commits leave the stored values untouched; a non-nil
// Commits slice replaces the stored list, even when it is empty.
type PullRequestUpdate struct {
	Details  *models.PullRequestDetails
	Commits  []models.Commit
	Comments []models.ReviewComment
}

// Outcome is what a handler extracted from one event
type Outcome struct {
	Kind   OutcomeKind
	User   string
	IsNew  bool
	Number int

	Issue       *models.Issue
	PullRequest *PullRequestUpdate
	Commit      *models.Commit

	// Related holds outcomes the same event produced for other contributors
	Related []Outcome
}

// EventHandler extracts an Outcome from one classified event
type EventHandler interface {
	Handle(ctx context.Context, ev Event) (Outcome, error)
}

// EventSource is the slice of the gateway the incremental path needs
type EventSource interface {
	EventsPager(owner, name string, perPage int) *gateway.Pager[*github.Event]
	Commit(ctx context.Context, owner, name, sha string) (*github.RepositoryCommit, error)
	PullRequestCommits(ctx context.Context, owner, name string, number int) ([]*github.RepositoryCommit, error)
	PullRequestsForCommit(ctx context.Context, owner, name, sha string) ([]*github.PullRequest, error)
	ReviewComments(ctx context.Context, owner, name string, number int, reviewID int64) ([]*github.PullRequestComment, error)
}

// Dispatcher routes events to the handler registered for their type
type Dispatcher struct {
	handlers map[string]EventHandler
}

// NewDispatcher creates a dispatcher with the four standard handlers
func NewDispatcher(src EventSource) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]EventHandler)}
	d.Register(EventIssues, &IssueHandler{})
	d.Register(EventPullRequest, &PullRequestHandler{src: src})
	d.Register(EventPullRequestReview, &ReviewHandler{src: src})
	d.Register(EventPush, &PushHandler{src: src})
	return d
}

// Register sets the handler for an event type
func (d *Dispatcher) Register(eventType string, h EventHandler) {
	d.handlers[eventType] = h
}

// Classify parses a raw feed item. ok is false for event types without a handler.
func (d *Dispatcher) Classify(raw *github.Event, owner, name string) (ev Event, ok bool, err error) {
	if _, known := d.handlers[raw.GetType()]; !known {
		return Event{}, false, nil
	}

	actor := raw.GetActor().GetLogin()
	if actor == "" {
		return Event{}, false, &gateway.MalformedResponseError{Kind: raw.GetType(), ID: raw.GetID(), Field: "actor.login"}
	}

	payload, err := raw.ParsePayload()
	if err != nil {
		return Event{}, false, &gateway.MalformedResponseError{Kind: raw.GetType(), ID: raw.GetID(), Field: "payload", Err: err}
	}

	return Event{
		ID:        raw.GetID(),
		Type:      raw.GetType(),
		Actor:     actor,
		CreatedAt: raw.GetCreatedAt().Time,
		Owner:     owner,
		Name:      name,
		Payload:   payload,
	}, true, nil
}

// Dispatch runs the handler for ev
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	h, ok := d.handlers[ev.Type]
	if !ok {
		return Outcome{Kind: OutcomeSkip}, nil
	}
	out, err := h.Handle(ctx, ev)
	if err != nil {
		return Outcome{Kind: OutcomeSkip}, fmt.Errorf("%s %s: %w", ev.Type, ev.ID, err)
	}
	return out, nil
}
