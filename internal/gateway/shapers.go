package gateway

import (
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/alimgiray/ghmirror/internal/models"
)

// Review states as they appear in event payloads. REST returns them upper-cased.
const (
	ReviewApproved         = "approved"
	ReviewChangesRequested = "changes_requested"
	ReviewCommented        = "commented"
)

func timePtr(ts github.Timestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func logins(users []*github.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if login := u.GetLogin(); login != "" {
			out = append(out, login)
		}
	}
	return out
}

func labelNames(labels []*github.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.GetName())
	}
	return out
}

// ShapeCommit projects a commit, with stats and files when the response carries them
func ShapeCommit(rc *github.RepositoryCommit) models.Commit {
	inner := rc.GetCommit()
	date := inner.GetCommitter().GetDate()
	if date.IsZero() {
		date = inner.GetAuthor().GetDate()
	}

	commit := models.Commit{
		SHA:     rc.GetSHA(),
		Message: inner.GetMessage(),
		Date:    timePtr(date),
		URL:     rc.GetHTMLURL(),
		Author:  inner.GetAuthor().GetName(),
		Merged:  models.IsMergeMessage(inner.GetMessage()),
		Stats: models.CommitStats{
			Additions: rc.GetStats().GetAdditions(),
			Deletions: rc.GetStats().GetDeletions(),
			Total:     rc.GetStats().GetTotal(),
		},
		Files: make([]models.CommitFile, 0, len(rc.Files)),
	}
	for _, f := range rc.Files {
		commit.Files = append(commit.Files, models.CommitFile{
			Filename:  f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
		})
	}
	return commit
}

// ShapeIssue projects an issue as seen by login
func ShapeIssue(issue *github.Issue, login string) models.Issue {
	issueType := models.IssueTypeAssigned
	if strings.EqualFold(issue.GetUser().GetLogin(), login) {
		issueType = models.IssueTypeCreated
	}
	return models.Issue{
		URL:       issue.GetHTMLURL(),
		Title:     issue.GetTitle(),
		Number:    issue.GetNumber(),
		CreatedAt: timePtr(issue.GetCreatedAt()),
		UpdatedAt: timePtr(issue.GetUpdatedAt()),
		Labels:    labelNames(issue.Labels),
		State:     issue.GetState(),
		Type:      issueType,
	}
}

// ShapeIssueFromEvent projects the issue snapshot carried by an IssuesEvent
func ShapeIssueFromEvent(ev *github.IssuesEvent, actor string) models.Issue {
	return ShapeIssue(ev.GetIssue(), actor)
}

// ShapePullRequest projects the scalar details of a pull request
func ShapePullRequest(pr *github.PullRequest) *models.PullRequestDetails {
	return &models.PullRequestDetails{
		Title:              pr.GetTitle(),
		Number:             pr.GetNumber(),
		State:              pr.GetState(),
		Merged:             pr.GetMerged() || !pr.GetMergedAt().IsZero(),
		URL:                pr.GetHTMLURL(),
		Date:               timePtr(pr.GetCreatedAt()),
		RequestedReviewers: logins(pr.RequestedReviewers),
		AssignedBy:         pr.GetAssignee().GetLogin(),
		AssignedTo:         logins(pr.Assignees),
		Labels:             labelNames(pr.Labels),
		Comments:           pr.GetComments(),
		ReviewComments:     pr.GetReviewComments(),
		Commits:            pr.GetCommits(),
		Additions:          pr.GetAdditions(),
		Deletions:          pr.GetDeletions(),
		ChangedFiles:       pr.GetChangedFiles(),
	}
}

// ReviewState normalizes a review state to the lower-case event form
func ReviewState(review *github.PullRequestReview) string {
	return strings.ToLower(review.GetState())
}

// ShapeReview projects a review verdict with its optional body
func ShapeReview(review *github.PullRequestReview) models.ReviewComment {
	var body *string
	if b := review.GetBody(); b != "" {
		body = &b
	}
	return models.ReviewComment{
		State:   ReviewState(review),
		URL:     review.GetHTMLURL(),
		Comment: body,
		Date:    timePtr(review.GetSubmittedAt()),
	}
}

// ShapeReviewComment projects one inline review comment
func ShapeReviewComment(c *github.PullRequestComment, state string) models.ReviewComment {
	body := c.GetBody()
	return models.ReviewComment{
		State:   state,
		URL:     c.GetHTMLURL(),
		Comment: &body,
		Date:    timePtr(c.GetUpdatedAt()),
		File:    c.GetPath(),
	}
}

// ShapeTarget copies repository metadata and topics onto target
func ShapeTarget(target *models.Target, repo *github.Repository, topics []string) {
	target.RepoID = repo.GetID()
	target.Description = repo.GetDescription()
	target.HTMLURL = repo.GetHTMLURL()
	target.Language = repo.GetLanguage()
	target.Visibility = repo.GetVisibility()
	target.DefaultBranch = repo.GetDefaultBranch()
	target.OwnerAvatarURL = repo.GetOwner().GetAvatarURL()
	target.Stars = repo.GetStargazersCount()
	target.Watchers = repo.GetWatchersCount()
	target.Forks = repo.GetForksCount()
	target.OpenIssues = repo.GetOpenIssuesCount()
	target.RepoCreatedAt = timePtr(repo.GetCreatedAt())
	target.RepoUpdatedAt = timePtr(repo.GetUpdatedAt())
	if topics == nil {
		topics = repo.Topics
	}
	if topics == nil {
		topics = []string{}
	}
	target.Topics = topics
}

// ShapeContributor projects a user profile
func ShapeContributor(u *github.User, enterprise bool) *models.Contributor {
	now := time.Now()
	return &models.Contributor{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Email:       u.GetEmail(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		Company:     u.GetCompany(),
		Location:    u.GetLocation(),
		Bio:         u.GetBio(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		Enterprise:  enterprise,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
