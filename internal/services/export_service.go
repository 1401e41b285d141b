package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/alimgiray/ghmirror/internal/models"
)

const (
	sheetSummary      = "Summary"
	sheetCommits      = "Commits"
	sheetIssues       = "Issues"
	sheetPullRequests = "Pull Requests"
	sheetReviews      = "Reviews"
)

// ExportService renders aggregates as XLSX workbooks
type ExportService struct {
	summaryService *SummaryService
}

func NewExportService(summaryService *SummaryService) *ExportService {
	return &ExportService{summaryService: summaryService}
}

// FileName returns the download name of an aggregate export
func (s *ExportService) FileName(agg *models.Aggregate) string {
	return fmt.Sprintf("%s_%s.xlsx", agg.Login, strings.ReplaceAll(agg.Target.FullName, "/", "_"))
}

// Export writes one sheet per record kind plus a summary sheet
func (s *ExportService) Export(agg *models.Aggregate) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetCommits, sheetIssues, sheetPullRequests, sheetReviews} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	writers := []func(*excelize.File, int, *models.Aggregate) error{
		s.writeSummary,
		writeCommits,
		writeIssues,
		writePullRequests,
		writeReviews,
	}
	for _, write := range writers {
		if err := write(f, headerStyle, agg); err != nil {
			return nil, fmt.Errorf("failed to build workbook: %w", err)
		}
	}

	return f.WriteToBuffer()
}

// writeRows writes a header row followed by rows, starting at A1
func writeRows(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func (s *ExportService) writeSummary(f *excelize.File, headerStyle int, agg *models.Aggregate) error {
	sum := s.summaryService.Summarize(agg)
	rows := [][]interface{}{
		{"Login", sum.Login},
		{"Repository", sum.Target},
		{"Checkpoint", agg.Checkpoint},
		{"Commits", sum.Commits},
		{"Additions", sum.Additions},
		{"Deletions", sum.Deletions},
		{"Active days", sum.ActiveDays},
		{"Issues created", sum.IssuesCreated},
		{"Issues assigned", sum.IssuesAssigned},
		{"Issues open", sum.IssuesOpen},
		{"Pull requests", sum.PullRequests},
		{"Pull requests merged", sum.PullRequestsMerged},
		{"Approvals", sum.Approvals},
		{"Changes requested", sum.ChangesRequested},
		{"Review comments", sum.ReviewComments},
		{"Mean commit size", sum.CommitSize.Mean},
		{"Median commit size", sum.CommitSize.Median},
		{"P90 commit size", sum.CommitSize.P90},
		{"Mean pull request size", sum.PullRequestSize.Mean},
	}
	return writeRows(f, sheetSummary, headerStyle, []interface{}{"Metric", "Value"}, rows)
}

func writeCommits(f *excelize.File, headerStyle int, agg *models.Aggregate) error {
	header := []interface{}{"SHA", "Date", "Message", "Branch", "Pull request", "Additions", "Deletions", "Merge", "URL"}
	var rows [][]interface{}
	add := func(c models.Commit, pr interface{}) {
		rows = append(rows, []interface{}{
			c.SHA, formatTime(c.Date), firstLine(c.Message), c.Branch, pr,
			c.Stats.Additions, c.Stats.Deletions, c.Merged, c.URL,
		})
	}
	for _, c := range agg.Commits {
		add(c, "")
	}
	for _, pr := range agg.PullRequests {
		for _, c := range pr.Commits {
			add(c, pr.Number)
		}
	}
	return writeRows(f, sheetCommits, headerStyle, header, rows)
}

func writeIssues(f *excelize.File, headerStyle int, agg *models.Aggregate) error {
	header := []interface{}{"Number", "Title", "State", "Type", "Labels", "Created", "Updated", "URL"}
	rows := make([][]interface{}, 0, len(agg.Issues))
	for _, issue := range agg.Issues {
		rows = append(rows, []interface{}{
			issue.Number, issue.Title, issue.State, string(issue.Type), strings.Join(issue.Labels, ", "),
			formatTime(issue.CreatedAt), formatTime(issue.UpdatedAt), issue.URL,
		})
	}
	return writeRows(f, sheetIssues, headerStyle, header, rows)
}

func writePullRequests(f *excelize.File, headerStyle int, agg *models.Aggregate) error {
	header := []interface{}{"Number", "Title", "State", "Merged", "Created", "Commits", "Additions", "Deletions", "Changed files", "URL"}
	rows := make([][]interface{}, 0, len(agg.PullRequests))
	for _, pr := range agg.PullRequests {
		d := pr.Details
		if d == nil {
			// only reviews seen so far
			rows = append(rows, []interface{}{pr.Number, "", "", "", "", len(pr.Commits), "", "", "", ""})
			continue
		}
		rows = append(rows, []interface{}{
			pr.Number, d.Title, d.State, d.Merged, formatTime(d.Date), len(pr.Commits),
			d.Additions, d.Deletions, d.ChangedFiles, d.URL,
		})
	}
	return writeRows(f, sheetPullRequests, headerStyle, header, rows)
}

func writeReviews(f *excelize.File, headerStyle int, agg *models.Aggregate) error {
	header := []interface{}{"Pull request", "State", "Date", "File", "Comment", "URL"}
	var rows [][]interface{}
	for _, pr := range agg.PullRequests {
		for _, c := range pr.Comments {
			comment := ""
			if c.Comment != nil {
				comment = *c.Comment
			}
			rows = append(rows, []interface{}{pr.Number, c.State, formatTime(c.Date), c.File, comment, c.URL})
		}
	}
	return writeRows(f, sheetReviews, headerStyle, header, rows)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func firstLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}
