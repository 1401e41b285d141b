package models

import "time"

// Contributor is a GitHub user whose activity is mirrored
type Contributor struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatar_url"`
	HTMLURL     string    `json:"html_url"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Bio         string    `json:"bio"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	Enterprise  bool      `json:"enterprise"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContributionDay is one cell of a contribution calendar
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// ContributionCalendar is a year of daily contribution counts
type ContributionCalendar struct {
	Login string            `json:"login"`
	Total int               `json:"total"`
	Days  []ContributionDay `json:"days"`
}

// ContributionLevel buckets a daily count into the 0-3 heat scale
func ContributionLevel(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 5:
		return 2
	default:
		return 3
	}
}
