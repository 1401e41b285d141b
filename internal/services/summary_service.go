package services

import (
	"github.com/montanaflynn/stats"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
)

// Distribution describes a set of sizes
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
}

// AggregateSummary is a numeric overview of one aggregate
type AggregateSummary struct {
	Login  string `json:"login"`
	Target string `json:"target"`

	Commits    int `json:"commits"`
	Additions  int `json:"additions"`
	Deletions  int `json:"deletions"`
	ActiveDays int `json:"active_days"`

	IssuesCreated  int `json:"issues_created"`
	IssuesAssigned int `json:"issues_assigned"`
	IssuesOpen     int `json:"issues_open"`

	PullRequests       int `json:"pull_requests"`
	PullRequestsMerged int `json:"pull_requests_merged"`

	Approvals        int `json:"approvals"`
	ChangesRequested int `json:"changes_requested"`
	ReviewComments   int `json:"review_comments"`

	CommitSize      Distribution `json:"commit_size"`
	PullRequestSize Distribution `json:"pull_request_size"`
}

// SummaryService computes aggregate summaries
type SummaryService struct{}

func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

// Summarize counts an aggregate's activity. Commits that appear both as
// global commits and inside pull requests are counted once.
func (s *SummaryService) Summarize(agg *models.Aggregate) *AggregateSummary {
	summary := &AggregateSummary{Login: agg.Login, Target: agg.Target.FullName}

	seen := make(map[string]bool)
	days := make(map[string]bool)
	var commitSizes stats.Float64Data
	countCommit := func(c models.Commit) {
		if c.SHA == "" || seen[c.SHA] {
			return
		}
		seen[c.SHA] = true
		summary.Commits++
		summary.Additions += c.Stats.Additions
		summary.Deletions += c.Stats.Deletions
		commitSizes = append(commitSizes, float64(c.Stats.Additions+c.Stats.Deletions))
		if c.Date != nil {
			days[c.Date.UTC().Format("2006-01-02")] = true
		}
	}

	for _, c := range agg.Commits {
		countCommit(c)
	}

	for _, issue := range agg.Issues {
		if issue.Type == models.IssueTypeCreated {
			summary.IssuesCreated++
		} else {
			summary.IssuesAssigned++
		}
		if issue.State == "open" {
			summary.IssuesOpen++
		}
	}

	var prSizes stats.Float64Data
	for _, pr := range agg.PullRequests {
		summary.PullRequests++
		if pr.Details != nil {
			if pr.Details.Merged {
				summary.PullRequestsMerged++
			}
			prSizes = append(prSizes, float64(pr.Details.Additions+pr.Details.Deletions))
		}
		for _, c := range pr.Commits {
			countCommit(c)
		}
		for _, comment := range pr.Comments {
			switch comment.State {
			case gateway.ReviewApproved:
				summary.Approvals++
			case gateway.ReviewChangesRequested:
				summary.ChangesRequested++
			}
			if comment.Comment != nil && *comment.Comment != "" {
				summary.ReviewComments++
			}
		}
	}

	summary.ActiveDays = len(days)
	summary.CommitSize = distribution(commitSizes)
	summary.PullRequestSize = distribution(prSizes)
	return summary
}

func distribution(data stats.Float64Data) Distribution {
	d := Distribution{Count: data.Len()}
	if d.Count == 0 {
		return d
	}
	// every call below only fails on empty input
	d.Mean, _ = stats.Round(value(data.Mean()), 2)
	d.Median = value(data.Median())
	d.P90 = value(data.PercentileNearestRank(90))
	d.StdDev, _ = stats.Round(value(data.StandardDeviation()), 2)
	d.Max = value(data.Max())
	return d
}

func value(v float64, _ error) float64 {
	return v
}
