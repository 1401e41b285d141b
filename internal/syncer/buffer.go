package syncer

import (
	"sort"

	"github.com/alimgiray/ghmirror/internal/models"
)

// keyedPullRequestUpdate is a PullRequestUpdate remembered with its number
type keyedPullRequestUpdate struct {
	Number int
	PullRequestUpdate
}

// UserBuffer holds one contributor's pending changes for a cycle.
// Events arrive newest first, so the first snapshot seen for a number is kept.
type UserBuffer struct {
	Commits            []models.Commit
	NewIssues          []models.Issue
	NewPullRequests    []keyedPullRequestUpdate
	IssueUpdates       []models.Issue
	PullRequestUpdates []keyedPullRequestUpdate

	issueUpdateIdx map[int]int
	prUpdateIdx    map[int]int
	newIssueSeen   map[int]bool
	newPRSeen      map[int]bool
}

func newUserBuffer() *UserBuffer {
	return &UserBuffer{
		issueUpdateIdx: make(map[int]int),
		prUpdateIdx:    make(map[int]int),
		newIssueSeen:   make(map[int]bool),
		newPRSeen:      make(map[int]bool),
	}
}

// Add files a handler outcome
func (b *UserBuffer) Add(out Outcome) {
	switch out.Kind {
	case OutcomeCommit:
		if out.Commit != nil {
			b.Commits = append(b.Commits, *out.Commit)
		}
	case OutcomeIssue:
		if out.Issue == nil {
			return
		}
		if out.IsNew {
			b.addNewIssue(*out.Issue)
		} else {
			b.addIssueUpdate(*out.Issue)
		}
	case OutcomePullRequest:
		if out.PullRequest == nil {
			return
		}
		if out.IsNew {
			b.addNewPullRequest(out.Number, *out.PullRequest)
		} else {
			b.addPullRequestUpdate(out.Number, *out.PullRequest)
		}
	}
}

func (b *UserBuffer) addNewIssue(issue models.Issue) {
	if b.newIssueSeen[issue.Number] {
		return
	}
	b.newIssueSeen[issue.Number] = true
	b.NewIssues = append(b.NewIssues, issue)
}

func (b *UserBuffer) addIssueUpdate(issue models.Issue) {
	if _, seen := b.issueUpdateIdx[issue.Number]; seen {
		return
	}
	b.issueUpdateIdx[issue.Number] = len(b.IssueUpdates)
	b.IssueUpdates = append(b.IssueUpdates, issue)
}

func (b *UserBuffer) addNewPullRequest(number int, upd PullRequestUpdate) {
	if b.newPRSeen[number] {
		return
	}
	b.newPRSeen[number] = true
	b.NewPullRequests = append(b.NewPullRequests, keyedPullRequestUpdate{Number: number, PullRequestUpdate: upd})
}

func (b *UserBuffer) addPullRequestUpdate(number int, upd PullRequestUpdate) {
	idx, seen := b.prUpdateIdx[number]
	if !seen {
		b.prUpdateIdx[number] = len(b.PullRequestUpdates)
		b.PullRequestUpdates = append(b.PullRequestUpdates, keyedPullRequestUpdate{Number: number, PullRequestUpdate: upd})
		return
	}

	pending := &b.PullRequestUpdates[idx]
	if pending.Details == nil {
		pending.Details = upd.Details
	}
	if pending.Commits == nil {
		pending.Commits = upd.Commits
	}
	pending.Comments = append(pending.Comments, upd.Comments...)
}

// Empty reports whether the buffer holds nothing to merge
func (b *UserBuffer) Empty() bool {
	return len(b.Commits) == 0 && len(b.NewIssues) == 0 && len(b.NewPullRequests) == 0 &&
		len(b.IssueUpdates) == 0 && len(b.PullRequestUpdates) == 0
}

// positionedOutcome is an outcome with the feed position of its event
type positionedOutcome struct {
	pos int
	out Outcome
}

// CycleBuffer groups pending changes by contributor login. It remembers the
// feed position of every observed event so a contributor whose aggregate is
// already ahead of the target checkpoint only receives newer events.
type CycleBuffer struct {
	positions map[string]int
	pos       int
	users     map[string][]positionedOutcome
}

// NewCycleBuffer creates an empty buffer
func NewCycleBuffer() *CycleBuffer {
	return &CycleBuffer{
		positions: make(map[string]int),
		users:     make(map[string][]positionedOutcome),
	}
}

// Observe records the next feed item. Outcomes added afterwards belong to it.
func (c *CycleBuffer) Observe(eventID string) {
	c.pos++
	if _, seen := c.positions[eventID]; !seen {
		c.positions[eventID] = c.pos
	}
}

// Add files an outcome and its related outcomes under their users. Skips are ignored.
func (c *CycleBuffer) Add(out Outcome) {
	for _, rel := range out.Related {
		c.Add(rel)
	}
	if out.Kind == OutcomeSkip || out.User == "" {
		return
	}
	out.Related = nil
	c.users[out.User] = append(c.users[out.User], positionedOutcome{pos: c.pos, out: out})
}

// For returns every buffered change of login, or nil
func (c *CycleBuffer) For(login string) *UserBuffer {
	return c.Since(login, "")
}

// Since returns the changes of login from events newer than checkpoint, or
// nil when login has nothing buffered. A checkpoint that was not observed in
// this cycle filters nothing.
func (c *CycleBuffer) Since(login, checkpoint string) *UserBuffer {
	outcomes, ok := c.users[login]
	if !ok {
		return nil
	}
	cutoff, seen := c.positions[checkpoint]
	seen = seen && checkpoint != ""

	buf := newUserBuffer()
	for _, po := range outcomes {
		if seen && po.pos >= cutoff {
			break
		}
		buf.Add(po.out)
	}
	return buf
}

// Users returns the buffered logins in sorted order
func (c *CycleBuffer) Users() []string {
	users := make([]string, 0, len(c.users))
	for login := range c.users {
		users = append(users, login)
	}
	sort.Strings(users)
	return users
}
