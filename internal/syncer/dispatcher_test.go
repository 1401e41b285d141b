package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/ghmirror/internal/gateway"
)

type recordingHandler struct {
	seen []Event
}

func (h *recordingHandler) Handle(_ context.Context, ev Event) (Outcome, error) {
	h.seen = append(h.seen, ev)
	return Outcome{Kind: OutcomeCommit, User: ev.Actor}, nil
}

func TestDispatcher_Classify(t *testing.T) {
	d := NewDispatcher(&mockSource{})

	t.Run("unrecognized type is skipped", func(t *testing.T) {
		_, ok, err := d.Classify(feedEvent(t, "1", "WatchEvent", "alice", time.Now(), map[string]string{"action": "started"}), "octo", "hello")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("recognized type carries typed payload", func(t *testing.T) {
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		ev, ok, err := d.Classify(feedEvent(t, "2", EventIssues, "alice", created, issuePayload("opened", 3, "open", "alice")), "octo", "hello")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "alice", ev.Actor)
		assert.True(t, created.Equal(ev.CreatedAt))
		_, typed := ev.Payload.(*github.IssuesEvent)
		assert.True(t, typed)
	})

	t.Run("missing actor is malformed", func(t *testing.T) {
		raw := feedEvent(t, "3", EventIssues, "alice", time.Now(), issuePayload("opened", 3, "open", "alice"))
		raw.Actor = nil
		_, ok, err := d.Classify(raw, "octo", "hello")
		assert.False(t, ok)
		var malformedErr *gateway.MalformedResponseError
		assert.True(t, errors.As(err, &malformedErr))
	})
}

func TestDispatcher_RoutesByType(t *testing.T) {
	d := NewDispatcher(&mockSource{})
	h := &recordingHandler{}
	d.Register(EventPush, h)

	out, err := d.Dispatch(context.Background(), Event{ID: "9", Type: EventPush, Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", out.User)
	require.Len(t, h.seen, 1)
	assert.Equal(t, "9", h.seen[0].ID)

	out, err = d.Dispatch(context.Background(), Event{ID: "10", Type: "ForkEvent"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkip, out.Kind)
}

func TestDispatcher_HandlerErrorIsWrapped(t *testing.T) {
	d := NewDispatcher(&mockSource{})
	_, err := d.Dispatch(context.Background(), Event{ID: "4", Type: EventIssues, Payload: "not an issue"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "IssuesEvent 4")
	var malformedErr *gateway.MalformedResponseError
	assert.True(t, errors.As(err, &malformedErr))
}

func TestRecognized(t *testing.T) {
	for _, typ := range []string{EventIssues, EventPullRequest, EventPullRequestReview, EventPush} {
		assert.True(t, Recognized(typ), typ)
	}
	assert.False(t, Recognized("WatchEvent"))
}
