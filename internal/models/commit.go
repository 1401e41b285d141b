package models

import (
	"strings"
	"time"
)

// mergePrefix marks commits produced by merging a branch.
const mergePrefix = "Merge branch"

// Commit is the shaped view of a single commit stored in an aggregate
type Commit struct {
	SHA     string       `json:"sha"`
	Message string       `json:"message"`
	Date    *time.Time   `json:"date"`
	URL     string       `json:"url"`
	Author  string       `json:"author"`
	Merged  bool         `json:"merged"`
	Branch  string       `json:"branch,omitempty"`
	Stats   CommitStats  `json:"stats"`
	Files   []CommitFile `json:"files"`
}

// CommitStats holds line counts for a commit
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// CommitFile represents a file change in a commit
type CommitFile struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// IsMergeMessage reports whether a commit message describes a branch merge
func IsMergeMessage(message string) bool {
	return strings.HasPrefix(message, mergePrefix)
}
