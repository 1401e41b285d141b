package models

import "time"

// PullRequestDetails holds the scalar facts about a pull request
type PullRequestDetails struct {
	Title              string     `json:"title"`
	Number             int        `json:"number"`
	State              string     `json:"state"`
	Merged             bool       `json:"merged"`
	URL                string     `json:"url"`
	Date               *time.Time `json:"date"`
	RequestedReviewers []string   `json:"requested_reviewers"`
	AssignedBy         string     `json:"assigned_by,omitempty"`
	AssignedTo         []string   `json:"assigned_to"`
	Labels             []string   `json:"labels"`
	Comments           int        `json:"comments"`
	ReviewComments     int        `json:"review_comments"`
	Commits            int        `json:"commits"`
	Additions          int        `json:"additions"`
	Deletions          int        `json:"deletions"`
	ChangedFiles       int        `json:"changed_files"`
}

// ReviewComment is one review verdict or inline review comment left by a contributor
type ReviewComment struct {
	State   string     `json:"state"`
	URL     string     `json:"url"`
	Comment *string    `json:"comment"`
	Date    *time.Time `json:"date"`
	File    string     `json:"file,omitempty"`
}

// PullRequestRecord groups everything a contributor did on one pull request.
// Details is nil when only review comments have been seen so far.
type PullRequestRecord struct {
	Number   int                 `json:"pr_number"`
	Details  *PullRequestDetails `json:"pr_details"`
	Commits  []Commit            `json:"commits"`
	Comments []ReviewComment     `json:"comments"`
}

// NewPullRequestRecord creates an empty record for a pull request number
func NewPullRequestRecord(number int) *PullRequestRecord {
	return &PullRequestRecord{
		Number:   number,
		Commits:  []Commit{},
		Comments: []ReviewComment{},
	}
}
