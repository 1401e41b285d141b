package syncer

import "github.com/alimgiray/ghmirror/internal/models"

// MergeStats counts what a merge changed
type MergeStats struct {
	CommitsAdded        int
	IssuesAdded         int
	IssuesUpdated       int
	PullRequestsAdded   int
	PullRequestsUpdated int
	CommentsAdded       int
}

// MergeAggregate applies a user buffer to an aggregate in place.
//
// New records are placed first and keyed updates second, so a snapshot taken
// later in the cycle always lands on top of an earlier "opened" record.
// Issues and pull requests are overwritten by number and never duplicated;
// commits and review comments only grow. A keyed update whose number is not
// stored yet is appended as a record of its own.
func MergeAggregate(agg *models.Aggregate, buf *UserBuffer) MergeStats {
	var stats MergeStats
	if buf == nil {
		return stats
	}

	agg.Commits = append(agg.Commits, buf.Commits...)
	stats.CommitsAdded = len(buf.Commits)

	for _, upd := range buf.NewPullRequests {
		if putPullRequest(agg, upd, &stats) {
			stats.PullRequestsAdded++
		} else {
			stats.PullRequestsUpdated++
		}
	}

	for _, issue := range buf.NewIssues {
		if putIssue(agg, issue) {
			stats.IssuesAdded++
		} else {
			stats.IssuesUpdated++
		}
	}
	for _, issue := range buf.IssueUpdates {
		if putIssue(agg, issue) {
			stats.IssuesAdded++
		} else {
			stats.IssuesUpdated++
		}
	}

	for _, upd := range buf.PullRequestUpdates {
		if putPullRequest(agg, upd, &stats) {
			stats.PullRequestsAdded++
		} else {
			stats.PullRequestsUpdated++
		}
	}

	return stats
}

// putIssue overwrites the issue with the same number or appends it. It reports whether it appended.
func putIssue(agg *models.Aggregate, issue models.Issue) bool {
	if idx := agg.IssueIndex(issue.Number); idx >= 0 {
		agg.Issues[idx] = issue
		return false
	}
	agg.Issues = append(agg.Issues, issue)
	return true
}

// putPullRequest applies upd to the stored record with the same number, or
// appends a new record built from it. It reports whether it appended.
func putPullRequest(agg *models.Aggregate, upd keyedPullRequestUpdate, stats *MergeStats) bool {
	if idx := agg.PullRequestIndex(upd.Number); idx >= 0 {
		stats.CommentsAdded += applyPullRequestUpdate(&agg.PullRequests[idx], upd.PullRequestUpdate)
		return false
	}
	record := models.NewPullRequestRecord(upd.Number)
	stats.CommentsAdded += applyPullRequestUpdate(record, upd.PullRequestUpdate)
	agg.PullRequests = append(agg.PullRequests, *record)
	return true
}

// applyPullRequestUpdate overwrites details, replaces the commit list when one
// was supplied and appends comments. It returns the number of comments appended.
func applyPullRequestUpdate(record *models.PullRequestRecord, upd PullRequestUpdate) int {
	if upd.Details != nil {
		record.Details = upd.Details
	}
	if upd.Commits != nil {
		record.Commits = upd.Commits
	}
	record.Comments = append(record.Comments, upd.Comments...)
	return len(upd.Comments)
}
