package gateway

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/alimgiray/ghmirror/internal/models"
)

type contributionCalendarQuery struct {
	User struct {
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions githubv4.Int
				Weeks              []struct {
					ContributionDays []struct {
						ContributionCount githubv4.Int
						Date              githubv4.String
					}
				}
			}
		}
	} `graphql:"user(login: $login)"`
}

// ContributionCalendar fetches the last year of daily contribution counts for login
func (g *Gateway) ContributionCalendar(ctx context.Context, login string) (*models.ContributionCalendar, error) {
	var q contributionCalendarQuery
	variables := map[string]interface{}{"login": githubv4.String(login)}
	if err := g.graphql.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query contribution calendar for %s: %w", login, err)
	}

	cal := q.User.ContributionsCollection.ContributionCalendar
	result := &models.ContributionCalendar{
		Login: login,
		Total: int(cal.TotalContributions),
		Days:  []models.ContributionDay{},
	}
	for _, week := range cal.Weeks {
		for _, day := range week.ContributionDays {
			count := int(day.ContributionCount)
			result.Days = append(result.Days, models.ContributionDay{
				Date:  string(day.Date),
				Count: count,
				Level: models.ContributionLevel(count),
			})
		}
	}
	return result, nil
}
