package models

import (
	"fmt"
	"strings"
	"time"
)

// NoCheckpoint is stored when a target has never seen a recognized feed item.
const NoCheckpoint = "-1"

// Target is a tracked repository whose events feed is mirrored
type Target struct {
	Owner        string     `json:"owner"`
	Name         string     `json:"name"`
	Enterprise   bool       `json:"enterprise"`
	Checkpoint   string     `json:"checkpoint"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	Contributors []string   `json:"contributors"`

	RepoID         int64      `json:"repo_id"`
	Description    string     `json:"description"`
	HTMLURL        string     `json:"html_url"`
	Language       string     `json:"language"`
	Visibility     string     `json:"visibility"`
	DefaultBranch  string     `json:"default_branch"`
	OwnerAvatarURL string     `json:"owner_avatar_url"`
	Stars          int        `json:"stars"`
	Watchers       int        `json:"watchers"`
	Forks          int        `json:"forks"`
	OpenIssues     int        `json:"open_issues"`
	Topics         []string   `json:"topics"`
	RepoCreatedAt  *time.Time `json:"repo_created_at"`
	RepoUpdatedAt  *time.Time `json:"repo_updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTarget creates a target with no checkpoint and no known contributors
func NewTarget(owner, name string, enterprise bool) *Target {
	now := time.Now()
	return &Target{
		Owner:        owner,
		Name:         name,
		Enterprise:   enterprise,
		Checkpoint:   NoCheckpoint,
		Contributors: []string{},
		Topics:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FullName returns "owner/name"
func (t *Target) FullName() string {
	return t.Owner + "/" + t.Name
}

// HasContributor reports whether login is in the known-contributor set
func (t *Target) HasContributor(login string) bool {
	for _, c := range t.Contributors {
		if c == login {
			return true
		}
	}
	return false
}

// AddContributor adds login to the known-contributor set. It reports whether the set changed.
func (t *Target) AddContributor(login string) bool {
	if login == "" || t.HasContributor(login) {
		return false
	}
	t.Contributors = append(t.Contributors, login)
	return true
}

// Info returns the denormalized view embedded in aggregates
func (t *Target) Info() TargetInfo {
	return TargetInfo{
		ID:            t.RepoID,
		Name:          t.Name,
		FullName:      t.FullName(),
		Owner:         t.Owner,
		Description:   t.Description,
		HTMLURL:       t.HTMLURL,
		Language:      t.Language,
		Visibility:    t.Visibility,
		DefaultBranch: t.DefaultBranch,
		Stars:         t.Stars,
		Watchers:      t.Watchers,
		Forks:         t.Forks,
		OpenIssues:    t.OpenIssues,
		Topics:        t.Topics,
		CreatedAt:     t.RepoCreatedAt,
		UpdatedAt:     t.RepoUpdatedAt,
	}
}

// ParseFullName splits "owner/name" into its parts
func ParseFullName(fullName string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &ValidationError{
			Field:   "target",
			Message: fmt.Sprintf("invalid repository name %q, expected owner/name", fullName),
		}
	}
	return parts[0], parts[1], nil
}

// ValidationError reports invalid user input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
