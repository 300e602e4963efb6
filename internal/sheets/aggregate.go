package sheets

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Column positions in category tabs.
const (
	colTitle = iota
	colStatus
	colUpdated
	colFinished
	colEpisodes
)

// Column positions in the Reports tab.
const (
	colReportTime = iota
	colReportCategory
	colReportItem
	colReportContent
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
}

// ParseDate reads a spreadsheet date cell in loc. Unparsable input yields the zero time.
func ParseDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseStatus maps the free-form status column onto ItemStatus.
func ParseStatus(s string) domain.ItemStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "done", "finished", "completed", "read", "watched":
		return domain.StatusDone
	case "reading", "watching", "in progress", "in_progress", "ongoing":
		return domain.StatusInProgress
	case "dropped", "abandoned":
		return domain.StatusDropped
	default:
		return domain.StatusPlanned
	}
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// ParseItems converts category tab rows (header excluded) into items.
// Rows without a title are skipped.
func ParseItems(category string, rows [][]interface{}, loc *time.Location) []domain.Item {
	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		title := cell(row, colTitle)
		if title == "" {
			continue
		}
		it := domain.Item{
			Category:  category,
			Title:     title,
			Status:    ParseStatus(cell(row, colStatus)),
			UpdatedAt: ParseDate(cell(row, colUpdated), loc),
		}
		if it.Status == domain.StatusDone {
			it.FinishedAt = ParseDate(cell(row, colFinished), loc)
		}
		if n, err := strconv.Atoi(cell(row, colEpisodes)); err == nil && n > 0 {
			it.Episodes = n
		}
		items = append(items, it)
	}
	return items
}

// ParseReports converts Reports tab rows (header excluded) into records.
func ParseReports(rows [][]interface{}, loc *time.Location) []domain.ReportRecord {
	out := make([]domain.ReportRecord, 0, len(rows))
	for _, row := range rows {
		ts := ParseDate(cell(row, colReportTime), loc)
		if ts.IsZero() {
			continue
		}
		category := strings.ToLower(cell(row, colReportCategory))
		if category == "" {
			category = "other"
		}
		out = append(out, domain.ReportRecord{
			Timestamp: ts,
			Category:  category,
			ItemRef:   cell(row, colReportItem),
			Content:   cell(row, colReportContent),
		})
	}
	return out
}

func inRange(t, start, end time.Time) bool {
	return !t.IsZero() && !t.Before(start) && t.Before(end)
}

// Aggregate counts finished items and reports in [start, end). Backlog is the
// current number of planned or in-progress items and does not depend on the range.
func Aggregate(items []domain.Item, reports []domain.ReportRecord, start, end time.Time) domain.PeriodStats {
	st := domain.NewPeriodStats(start, end)
	for _, it := range items {
		switch it.Status {
		case domain.StatusPlanned, domain.StatusInProgress:
			st.Backlog[it.Category]++
		case domain.StatusDone:
			if inRange(it.FinishedAt, start, end) {
				st.Finished[it.Category]++
				if it.Episodes > 0 {
					st.Finished[domain.CategoryEpisodes] += it.Episodes
				}
			}
		}
	}
	for _, r := range reports {
		if inRange(r.Timestamp, start, end) {
			st.Reports++
		}
	}
	if st.Reports > 0 {
		st.Finished[domain.CategoryReports] = st.Reports
	}
	return st
}

// Abandoned returns in-progress items untouched for at least olderThan, oldest first.
func Abandoned(items []domain.Item, now time.Time, olderThan time.Duration) []domain.Item {
	var out []domain.Item
	for _, it := range items {
		if it.Status != domain.StatusInProgress || it.UpdatedAt.IsZero() {
			continue
		}
		if now.Sub(it.UpdatedAt) >= olderThan {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}

// Newest returns up to n records, newest first.
func Newest(reports []domain.ReportRecord, n int) []domain.ReportRecord {
	out := make([]domain.ReportRecord, len(reports))
	copy(out, reports)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
