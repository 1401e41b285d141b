package models

import "time"

// TargetInfo is the repository metadata copied into every aggregate
type TargetInfo struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Owner         string     `json:"owner"`
	Description   string     `json:"description"`
	HTMLURL       string     `json:"html_url"`
	Language      string     `json:"language"`
	Visibility    string     `json:"visibility"`
	DefaultBranch string     `json:"default_branch"`
	Stars         int        `json:"stars"`
	Watchers      int        `json:"watchers"`
	Forks         int        `json:"forks"`
	OpenIssues    int        `json:"open_issues"`
	Topics        []string   `json:"topics"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// Aggregate is everything one contributor did on one target.
// It holds at most one issue and one pull request record per number.
type Aggregate struct {
	Login        string              `json:"login"`
	Target       TargetInfo          `json:"target"`
	Checkpoint   string              `json:"checkpoint"`
	Commits      []Commit            `json:"commits"`
	Issues       []Issue             `json:"issues"`
	PullRequests []PullRequestRecord `json:"pull_requests"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewAggregate creates an empty aggregate for login on a target
func NewAggregate(login string, info TargetInfo) *Aggregate {
	return &Aggregate{
		Login:        login,
		Target:       info,
		Checkpoint:   NoCheckpoint,
		Commits:      []Commit{},
		Issues:       []Issue{},
		PullRequests: []PullRequestRecord{},
	}
}

// IssueIndex returns the position of the issue with number, or -1
func (a *Aggregate) IssueIndex(number int) int {
	for i := range a.Issues {
		if a.Issues[i].Number == number {
			return i
		}
	}
	return -1
}

// PullRequestIndex returns the position of the pull request record with number, or -1
func (a *Aggregate) PullRequestIndex(number int) int {
	for i := range a.PullRequests {
		if a.PullRequests[i].Number == number {
			return i
		}
	}
	return -1
}
