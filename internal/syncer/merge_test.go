package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/ghmirror/internal/models"
)

func strPtr(s string) *string { return &s }

func baseAggregate() *models.Aggregate {
	agg := models.NewAggregate("alice", models.TargetInfo{FullName: "octo/hello"})
	agg.Commits = []models.Commit{{SHA: "old"}}
	agg.Issues = []models.Issue{{Number: 1, State: "open"}}
	agg.PullRequests = []models.PullRequestRecord{{
		Number:   5,
		Details:  &models.PullRequestDetails{Number: 5, State: "open"},
		Commits:  []models.Commit{{SHA: "p1"}},
		Comments: []models.ReviewComment{{State: "approved"}},
	}}
	return agg
}

func TestMergeAggregate_ReplayDoesNotDuplicateRecords(t *testing.T) {
	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomeIssue, IsNew: true, Issue: &models.Issue{Number: 7, State: "open"}})
	buf.Add(Outcome{Kind: OutcomeIssue, Issue: &models.Issue{Number: 1, State: "closed"}})
	buf.Add(Outcome{Kind: OutcomePullRequest, IsNew: true, Number: 9, PullRequest: &PullRequestUpdate{
		Details: &models.PullRequestDetails{Number: 9, State: "open"},
		Commits: []models.Commit{{SHA: "c9"}},
	}})
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 5, PullRequest: &PullRequestUpdate{
		Details: &models.PullRequestDetails{Number: 5, State: "closed"},
	}})

	agg := baseAggregate()
	MergeAggregate(agg, buf)
	MergeAggregate(agg, buf)

	issues := map[int]int{}
	for _, issue := range agg.Issues {
		issues[issue.Number]++
	}
	assert.Equal(t, map[int]int{1: 1, 7: 1}, issues)

	prs := map[int]int{}
	for _, pr := range agg.PullRequests {
		prs[pr.Number]++
	}
	assert.Equal(t, map[int]int{5: 1, 9: 1}, prs)
	assert.Equal(t, "closed", agg.Issues[agg.IssueIndex(1)].State)
}

func TestMergeAggregate_CommentsOnlyGrow(t *testing.T) {
	agg := baseAggregate()
	before := len(agg.PullRequests[0].Comments)

	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 5, PullRequest: &PullRequestUpdate{
		Comments: []models.ReviewComment{
			{State: "commented", Comment: strPtr("a"), File: "x.go"},
			{State: "commented", Comment: strPtr("b"), File: "y.go"},
		},
	}})

	stats := MergeAggregate(agg, buf)

	pr := agg.PullRequests[agg.PullRequestIndex(5)]
	assert.Len(t, pr.Comments, before+2)
	assert.Equal(t, 2, stats.CommentsAdded)
	assert.Equal(t, "approved", pr.Comments[0].State, "existing comments are kept in place")
	require.NotNil(t, pr.Details)
	assert.Equal(t, "open", pr.Details.State, "comment-only updates leave details alone")
	assert.Equal(t, []models.Commit{{SHA: "p1"}}, pr.Commits)
}

func TestMergeAggregate_LateArrivalCreatesRecord(t *testing.T) {
	agg := baseAggregate()

	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 77, PullRequest: &PullRequestUpdate{
		Comments: []models.ReviewComment{{State: "approved", Comment: strPtr("ship it")}},
	}})

	MergeAggregate(agg, buf)

	idx := agg.PullRequestIndex(77)
	require.GreaterOrEqual(t, idx, 0)
	record := agg.PullRequests[idx]
	assert.Nil(t, record.Details)
	assert.Empty(t, record.Commits)
	assert.NotNil(t, record.Commits)
	require.Len(t, record.Comments, 1)
	assert.Equal(t, "ship it", *record.Comments[0].Comment)
}

func TestMergeAggregate_CommitListReplacedOnlyWhenSupplied(t *testing.T) {
	agg := baseAggregate()

	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 5, PullRequest: &PullRequestUpdate{
		Details: &models.PullRequestDetails{State: "open"},
	}})
	MergeAggregate(agg, buf)
	assert.Equal(t, []models.Commit{{SHA: "p1"}}, agg.PullRequests[0].Commits, "no list supplied")

	buf = newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 5, PullRequest: &PullRequestUpdate{Commits: []models.Commit{{SHA: "p1"}, {SHA: "p2"}}}})
	MergeAggregate(agg, buf)
	assert.Equal(t, []models.Commit{{SHA: "p1"}, {SHA: "p2"}}, agg.PullRequests[0].Commits)

	// a fresh fetch with no commits left for this author
	buf = newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 5, PullRequest: &PullRequestUpdate{Commits: []models.Commit{}}})
	MergeAggregate(agg, buf)
	assert.NotNil(t, agg.PullRequests[0].Commits)
	assert.Empty(t, agg.PullRequests[0].Commits)
}

func TestMergeAggregate_OpenedWithoutCommitsKeepsStoredList(t *testing.T) {
	agg := baseAggregate()

	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomePullRequest, IsNew: true, Number: 5, PullRequest: &PullRequestUpdate{
		Details: &models.PullRequestDetails{State: "open"},
	}})
	buf.Add(Outcome{Kind: OutcomePullRequest, IsNew: true, Number: 6, PullRequest: &PullRequestUpdate{
		Details: &models.PullRequestDetails{State: "open"},
	}})
	stats := MergeAggregate(agg, buf)

	assert.Equal(t, 1, stats.PullRequestsAdded)
	assert.Equal(t, 1, stats.PullRequestsUpdated)
	assert.Equal(t, []models.Commit{{SHA: "p1"}}, agg.PullRequests[0].Commits)
	record := agg.PullRequests[agg.PullRequestIndex(6)]
	assert.NotNil(t, record.Commits)
	assert.Empty(t, record.Commits)
}

func TestMergeAggregate_GlobalCommitsAppend(t *testing.T) {
	agg := baseAggregate()

	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomeCommit, IsNew: true, Commit: &models.Commit{SHA: "c1"}})
	buf.Add(Outcome{Kind: OutcomeCommit, IsNew: true, Commit: &models.Commit{SHA: "c2"}})

	stats := MergeAggregate(agg, buf)
	assert.Equal(t, 2, stats.CommitsAdded)
	assert.Equal(t, []string{"old", "c1", "c2"}, []string{agg.Commits[0].SHA, agg.Commits[1].SHA, agg.Commits[2].SHA})
}

func TestMergeAggregate_UpdateLandsOnNewRecordOfSameCycle(t *testing.T) {
	agg := models.NewAggregate("alice", models.TargetInfo{FullName: "octo/hello"})

	// newest first: the close is seen before the open
	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomeIssue, Issue: &models.Issue{Number: 7, State: "closed"}})
	buf.Add(Outcome{Kind: OutcomeIssue, IsNew: true, Issue: &models.Issue{Number: 7, State: "open"}})

	MergeAggregate(agg, buf)

	require.Len(t, agg.Issues, 1)
	assert.Equal(t, "closed", agg.Issues[0].State)
}

func TestUserBuffer_FirstSnapshotWins(t *testing.T) {
	buf := newUserBuffer()
	buf.Add(Outcome{Kind: OutcomeIssue, Issue: &models.Issue{Number: 3, State: "closed"}})
	buf.Add(Outcome{Kind: OutcomeIssue, Issue: &models.Issue{Number: 3, State: "reopened"}})
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 4, PullRequest: &PullRequestUpdate{
		Details:  &models.PullRequestDetails{State: "closed"},
		Comments: []models.ReviewComment{{State: "approved"}},
	}})
	buf.Add(Outcome{Kind: OutcomePullRequest, Number: 4, PullRequest: &PullRequestUpdate{
		Details:  &models.PullRequestDetails{State: "open"},
		Commits:  []models.Commit{{SHA: "a"}},
		Comments: []models.ReviewComment{{State: "commented"}},
	}})

	require.Len(t, buf.IssueUpdates, 1)
	assert.Equal(t, "closed", buf.IssueUpdates[0].State)

	require.Len(t, buf.PullRequestUpdates, 1)
	upd := buf.PullRequestUpdates[0]
	assert.Equal(t, "closed", upd.Details.State)
	assert.Equal(t, []models.Commit{{SHA: "a"}}, upd.Commits)
	assert.Len(t, upd.Comments, 2)
}

func TestCycleBuffer_GroupsByUser(t *testing.T) {
	c := NewCycleBuffer()
	c.Add(Outcome{Kind: OutcomeCommit, User: "bob", Commit: &models.Commit{SHA: "b"}})
	c.Add(Outcome{Kind: OutcomeCommit, User: "alice", Commit: &models.Commit{SHA: "a"}})
	c.Add(Outcome{Kind: OutcomeSkip, User: "carol"})
	c.Add(Outcome{Kind: OutcomeCommit, Commit: &models.Commit{SHA: "anon"}})

	assert.Equal(t, []string{"alice", "bob"}, c.Users())
	assert.False(t, c.For("alice").Empty())
	assert.Nil(t, c.For("carol"))
}

func TestCycleBuffer_FilesRelatedOutcomes(t *testing.T) {
	c := NewCycleBuffer()
	c.Observe("10")
	c.Add(Outcome{
		Kind: OutcomePullRequest, User: "alice", Number: 42,
		PullRequest: &PullRequestUpdate{Commits: []models.Commit{{SHA: "c3"}}},
		Related: []Outcome{{
			Kind: OutcomePullRequest, User: "bob", Number: 42,
			PullRequest: &PullRequestUpdate{Commits: []models.Commit{{SHA: "c1"}, {SHA: "c2"}}},
		}},
	})

	assert.Equal(t, []string{"alice", "bob"}, c.Users())
	require.Len(t, c.For("alice").PullRequestUpdates, 1)
	assert.Len(t, c.For("alice").PullRequestUpdates[0].Commits, 1)
	require.Len(t, c.For("bob").PullRequestUpdates, 1)
	assert.Len(t, c.For("bob").PullRequestUpdates[0].Commits, 2)
}

func TestCycleBuffer_SinceDropsEventsUpToCheckpoint(t *testing.T) {
	c := NewCycleBuffer()
	// newest first
	c.Observe("103")
	c.Add(Outcome{Kind: OutcomeCommit, User: "alice", Commit: &models.Commit{SHA: "c2"}})
	c.Observe("102")
	c.Add(Outcome{Kind: OutcomeCommit, User: "alice", Commit: &models.Commit{SHA: "c1"}})
	c.Observe("101")
	c.Add(Outcome{Kind: OutcomeIssue, User: "alice", IsNew: true, Issue: &models.Issue{Number: 5}})

	tests := []struct {
		name       string
		checkpoint string
		commits    []string
		newIssues  int
	}{
		{"checkpoint inside the cycle", "102", []string{"c2"}, 0},
		{"checkpoint at the newest event", "103", nil, 0},
		{"checkpoint not observed", "90", []string{"c2", "c1"}, 1},
		{"no checkpoint", models.NoCheckpoint, []string{"c2", "c1"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := c.Since("alice", tt.checkpoint)
			require.NotNil(t, buf)
			var shas []string
			for _, commit := range buf.Commits {
				shas = append(shas, commit.SHA)
			}
			assert.Equal(t, tt.commits, shas)
			assert.Len(t, buf.NewIssues, tt.newIssues)
		})
	}

	assert.Nil(t, c.Since("bob", "102"))
}
