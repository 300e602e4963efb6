package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

func TestWeeklyReport_ComparesWithPreviousWeek(t *testing.T) {
	h := newHarness(t, Options{})
	thisWeek := time.Date(2024, 3, 4, 0, 0, 0, 0, jst)
	h.source.ranges = func(start, end time.Time) domain.PeriodStats {
		st := domain.NewPeriodStats(start, end)
		if start.Equal(thisWeek) {
			st.Finished["books"] = 3
			st.Backlog["books"] = 3
		} else {
			st.Finished["books"] = 1
			st.Finished["movies"] = 2
		}
		return st
	}

	msgs, err := h.d.weeklyReport(context.Background())
	if err != nil {
		t.Fatalf("weeklyReport: %v", err)
	}
	m := msgs[0]
	if !strings.Contains(m.Description, "Mar 4 – Mar 10") || !strings.Contains(m.Description, "➖ ±0") {
		t.Fatalf("description = %q", m.Description)
	}
	fields := map[string]string{}
	for _, f := range m.Fields {
		fields[f.Name] = f.Value
	}
	if fields["📚 Books"] != "3 (📈 +2)" || fields["🎬 Movies"] != "0 (📉 -2)" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if !strings.Contains(fields["Backlog clearance"], "50%") {
		t.Fatalf("backlog clearance = %q", fields["Backlog clearance"])
	}
}

func TestMonthlyComparison_Forecast(t *testing.T) {
	h := newHarness(t, Options{})
	counts := map[time.Month]int{time.December: 2, time.January: 4, time.February: 6}
	h.source.ranges = func(start, end time.Time) domain.PeriodStats {
		st := domain.NewPeriodStats(start, end)
		st.Finished["books"] = counts[start.Month()]
		return st
	}

	msgs, err := h.d.monthlyComparison(context.Background())
	if err != nil {
		t.Fatalf("monthlyComparison: %v", err)
	}
	m := msgs[0]
	if !strings.Contains(m.Description, "Dec → Jan → Feb") || !strings.Contains(m.Description, "+50%") {
		t.Fatalf("description = %q", m.Description)
	}
	last := m.Fields[len(m.Fields)-1]
	if !strings.Contains(last.Value, "rising") || !strings.Contains(last.Value, "**8**") {
		t.Fatalf("forecast field = %+v", last)
	}
}

func TestStreakRanking(t *testing.T) {
	h := newHarness(t, Options{})
	day := func(offset int) time.Time { return testNow.AddDate(0, 0, -offset).Add(-time.Hour) }
	h.source.reports = []domain.ReportRecord{
		{Timestamp: day(0), Category: "books"},
		{Timestamp: day(1), Category: "books"},
		{Timestamp: day(2), Category: "books"},
		{Timestamp: day(1), Category: "movies"},
		{Timestamp: day(5), Category: "manga"},
	}

	msgs, err := h.d.streakRanking(context.Background())
	if err != nil {
		t.Fatalf("streakRanking: %v", err)
	}
	desc := msgs[0].Description
	if !strings.HasPrefix(desc, "🥇 📚 Books: **3** days") || !strings.Contains(desc, "🥈 🎬 Movies: **1** days") {
		t.Fatalf("ranking = %q", desc)
	}
	if strings.Contains(desc, "Manga") {
		t.Fatalf("broken streaks should not be ranked: %q", desc)
	}
}

func TestAbandonedItems(t *testing.T) {
	h := newHarness(t, Options{AbandonedAfter: 30 * 24 * time.Hour})
	msgs, err := h.d.abandonedItems(context.Background())
	if err != nil || len(msgs) != 0 {
		t.Fatalf("no items should mean no message, got %d, %v", len(msgs), err)
	}

	h.source.abandoned = []domain.Item{
		{Category: "books", Title: "Hyperion", Status: domain.StatusInProgress, UpdatedAt: testNow.AddDate(0, 0, -45)},
	}
	msgs, err = h.d.abandonedItems(context.Background())
	if err != nil || len(msgs) != 1 {
		t.Fatalf("want one message, got %d, %v", len(msgs), err)
	}
	if !strings.Contains(msgs[0].Fields[0].Value, "Hyperion") || !strings.Contains(msgs[0].Fields[0].Value, "45 days") {
		t.Fatalf("unexpected field: %+v", msgs[0].Fields[0])
	}
}

func TestEveningReminder(t *testing.T) {
	h := newHarness(t, Options{})
	msgs, _ := h.d.eveningReminder(context.Background())
	if msgs[0].Color != domain.ColorWarning {
		t.Fatalf("no reports today should nudge: %+v", msgs[0])
	}

	h.source.reports = []domain.ReportRecord{{Timestamp: testNow.Add(-time.Hour), Category: "books"}}
	msgs, _ = h.d.eveningReminder(context.Background())
	if msgs[0].Color != domain.ColorSuccess || !strings.Contains(msgs[0].Fields[0].Value, "📚 Books: read 1") {
		t.Fatalf("unexpected wrap-up: %+v", msgs[0])
	}
}
