package models

import "time"

// IssueType tells whether the contributor authored the issue or was assigned to it
type IssueType string

const (
	IssueTypeCreated  IssueType = "created"
	IssueTypeAssigned IssueType = "assigned"
)

// Issue is the shaped snapshot of an issue stored in an aggregate
type Issue struct {
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Number    int        `json:"number"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Labels    []string   `json:"labels"`
	State     string     `json:"state"`
	Type      IssueType  `json:"type"`
}
