package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/progress"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/stats"
)

const recentReports = 200

func (d *Dispatcher) registerBuiltins() {
	d.add(&report{ReportInfo: ReportInfo{Name: "morning-greeting", Category: CategoryDaily, Spec: "0 8 * * *",
		Description: "greeting with yesterday's results and the current streak"}, build: d.morningGreeting})
	d.add(&report{ReportInfo: ReportInfo{Name: "evening-reminder", Category: CategoryDaily, Spec: "0 21 * * *",
		Description: "nudge when nothing was logged today, otherwise a wrap-up"}, build: d.eveningReminder})
	d.add(&report{ReportInfo: ReportInfo{Name: "weekly-report", Category: CategoryWeekly, Spec: "0 20 * * 0",
		Description: "this week against last week per category"}, build: d.weeklyReport})
	d.add(&report{ReportInfo: ReportInfo{Name: "streak-ranking", Category: CategoryWeekly, Spec: "0 19 * * 6",
		Description: "categories ranked by consecutive active days"}, build: d.streakRanking})
	d.add(&report{ReportInfo: ReportInfo{Name: "abandoned-items", Category: CategoryWeekly, Spec: "0 12 * * 3",
		Description: "in-progress items nobody touched for a while"}, build: d.abandonedItems})
	d.add(&report{ReportInfo: ReportInfo{Name: "goal-progress", Category: CategoryWeekly, Spec: "0 18 * * 5",
		Description: "per-user goal progress and achievements"}, build: d.goalProgress, paced: true})
	d.add(&report{ReportInfo: ReportInfo{Name: "monthly-comparison", Category: CategoryMonthly, Spec: "0 10 1 * *",
		Description: "last three months side by side with a forecast"}, build: d.monthlyComparison})
}

func (d *Dispatcher) morningGreeting(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	now := d.now().In(loc)
	today := domain.StartOfDay(now, loc)

	var (
		yesterday, week  domain.PeriodStats
		records          []domain.ReportRecord
		yErr, wErr, rErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		yesterday, yErr = d.source.StatsForDateRange(gctx, today.AddDate(0, 0, -1), today)
		return nil
	})
	g.Go(func() error {
		week, wErr = d.source.WeeklyStats(gctx)
		return nil
	})
	g.Go(func() error {
		records, rErr = d.source.RecentReports(gctx, recentReports)
		return nil
	})
	_ = g.Wait()

	msg := domain.NotificationMessage{
		Title:       "☀️ " + domain.GreetingByHour(now) + "!",
		Description: fmt.Sprintf("%s\n\n> %s", now.Format("Monday, January 2"), quoteOfDay(now)),
		Color:       domain.ColorMorning,
		Footer:      "Have a good day",
	}

	switch {
	case yErr != nil:
		d.log.Warn("yesterday stats unavailable", zap.Error(yErr))
		msg.AddField("Yesterday", "Stats are unavailable right now.", false)
	case yesterday.Total() == 0:
		msg.AddField("Yesterday", "Nothing finished yesterday. Fresh start today!", false)
	default:
		msg.AddField("Yesterday", verbLines(withoutDerived(yesterday.Finished)), false)
	}

	if wErr != nil {
		d.log.Warn("weekly stats unavailable", zap.Error(wErr))
	} else {
		msg.AddField("This week so far", fmt.Sprintf("%d finished, %d reports", week.Total(), week.Reports), true)
	}

	if rErr != nil {
		d.log.Warn("recent reports unavailable", zap.Error(rErr))
	} else {
		msg.AddField("Streak", fmt.Sprintf("🔥 %d days", liveStreak(records, now, loc)), true)
	}
	return []domain.NotificationMessage{msg}, nil
}

func (d *Dispatcher) eveningReminder(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	now := d.now().In(loc)

	records, err := d.source.RecentReports(ctx, recentReports)
	if err != nil {
		d.log.Warn("recent reports unavailable, sending a generic reminder", zap.Error(err))
		return []domain.NotificationMessage{{
			Title:       "🌙 Evening check-in",
			Description: "How did today go? Take a minute to log what you read or watched.",
			Color:       domain.ColorInfo,
		}}, nil
	}

	today := progress.Today(records, now, loc)
	if len(today) == 0 {
		return []domain.NotificationMessage{{
			Title:       "🌙 Evening check-in",
			Description: "No reports yet today. Even one line keeps your streak alive.",
			Color:       domain.ColorWarning,
			Footer:      fmt.Sprintf("Current streak: %d days", liveStreak(records, now, loc)),
		}}, nil
	}

	total := 0
	for _, n := range today {
		total += n
	}
	msg := domain.NotificationMessage{
		Title:       "🌙 Today's wrap-up",
		Description: fmt.Sprintf("You logged %d report(s) today. Nice work!", total),
		Color:       domain.ColorSuccess,
		Footer:      fmt.Sprintf("Streak: %d days", progress.Streak(records, now, loc)),
	}
	msg.AddField("By category", verbLines(today), false)
	return []domain.NotificationMessage{msg}, nil
}

func (d *Dispatcher) weeklyReport(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	now := d.now().In(loc)
	end := domain.StartOfDay(now, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -7)
	prevStart := start.AddDate(0, 0, -7)

	var cur, prev domain.PeriodStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = d.source.StatsForDateRange(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		prev, err = d.source.StatsForDateRange(gctx, prevStart, start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total, prevTotal := cur.Total(), prev.Total()
	msg := domain.NotificationMessage{
		Title: "📊 Weekly report",
		Description: fmt.Sprintf("%s\n**%d** finished (%s, %s vs last week)",
			dateRange(start, end.AddDate(0, 0, -1), loc), total,
			changeText(stats.ChangeIndicator(total, prevTotal)), growthText(stats.GrowthRate(total, prevTotal))),
		Color:  domain.ColorInfo,
		Footer: "Keep it up next week",
	}
	if total == 0 && cur.Reports == 0 {
		msg.Description += "\nA quiet week. Next one is a fresh page."
	}

	for _, k := range categoryKeys(cur.Finished, prev.Finished) {
		c, p := cur.Finished[k], prev.Finished[k]
		msg.AddField(domain.LookupCategory(k).Label(), fmt.Sprintf("%d (%s)", c, changeText(stats.ChangeIndicator(c, p))), true)
	}

	rate := stats.BacklogClearanceRate(total, cur.BacklogTotal())
	msg.AddField("Backlog clearance",
		fmt.Sprintf("%s %d%%\n%d left in the queue", stats.ProgressBar(rate, 10, stats.DefaultGlyphs), rate, cur.BacklogTotal()), false)
	return []domain.NotificationMessage{msg}, nil
}

type categoryStreak struct {
	category string
	days     int
}

func (d *Dispatcher) streakRanking(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	now := d.now().In(loc)

	records, err := d.source.RecentReports(ctx, recentReports)
	if err != nil {
		return nil, err
	}

	byCategory := map[string][]domain.ReportRecord{}
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	var ranking []categoryStreak
	for c, recs := range byCategory {
		if n := liveStreak(recs, now, loc); n > 0 {
			ranking = append(ranking, categoryStreak{category: c, days: n})
		}
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].days != ranking[j].days {
			return ranking[i].days > ranking[j].days
		}
		return ranking[i].category < ranking[j].category
	})

	msg := domain.NotificationMessage{
		Title:  "🏅 Streak ranking",
		Color:  domain.ColorGoal,
		Footer: "Momentum: " + momentumText(progress.Momentum(records)),
	}
	if len(ranking) == 0 {
		msg.Description = "No active streaks. Today is a good day to start one."
		return []domain.NotificationMessage{msg}, nil
	}

	var b strings.Builder
	for i, s := range ranking {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "%s %s: **%d** days\n", medal(i), domain.LookupCategory(s.category).Label(), s.days)
	}
	msg.Description = strings.TrimSuffix(b.String(), "\n")
	msg.AddField("Overall streak", fmt.Sprintf("🔥 %d days", liveStreak(records, now, loc)), true)
	msg.AddField("This week", fmt.Sprintf("%d reports", progress.WeeklyProgress(records, now, loc)), true)
	return []domain.NotificationMessage{msg}, nil
}

// liveStreak counts a streak that is still alive: one ending today, or
// yesterday when today has nothing yet.
func liveStreak(records []domain.ReportRecord, now time.Time, loc *time.Location) int {
	if n := progress.Streak(records, now, loc); n > 0 {
		return n
	}
	return progress.Streak(records, now.AddDate(0, 0, -1), loc)
}

const abandonedPerCategory = 10

func (d *Dispatcher) abandonedItems(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	now := d.now()

	items, err := d.source.AbandonedItems(ctx, d.opts.AbandonedAfter)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	byCategory := map[string][]domain.Item{}
	var cats []string
	for _, it := range items {
		if _, ok := byCategory[it.Category]; !ok {
			cats = append(cats, it.Category)
		}
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}
	sort.Strings(cats)

	msg := domain.NotificationMessage{
		Title: "🕸️ Waiting for you",
		Description: fmt.Sprintf("%d in-progress item(s) untouched for over %d days.",
			len(items), int(d.opts.AbandonedAfter.Hours()/24)),
		Color:  domain.ColorWarning,
		Footer: "Finish, drop, or pick them back up",
	}
	for _, c := range cats {
		var b strings.Builder
		list := byCategory[c]
		for i, it := range list {
			if i == abandonedPerCategory {
				fmt.Fprintf(&b, "…and %d more", len(list)-i)
				break
			}
			days := int(now.Sub(it.UpdatedAt).Hours() / 24)
			fmt.Fprintf(&b, "• %s (since %s, %d days)\n", it.Title, domain.LocalizeTime(it.UpdatedAt, loc), days)
		}
		msg.AddField(domain.LookupCategory(c).Label(), strings.TrimSuffix(b.String(), "\n"), false)
	}
	return []domain.NotificationMessage{msg}, nil
}

func (d *Dispatcher) monthlyComparison(ctx context.Context) ([]domain.NotificationMessage, error) {
	loc := d.opts.Location
	thisMonth := domain.MonthStart(d.now(), loc)
	starts := []time.Time{thisMonth.AddDate(0, -3, 0), thisMonth.AddDate(0, -2, 0), thisMonth.AddDate(0, -1, 0), thisMonth}

	months := make([]domain.PeriodStats, 3)
	g, gctx := errgroup.WithContext(ctx)
	for i := range months {
		g.Go(func() (err error) {
			months[i], err = d.source.StatsForDateRange(gctx, starts[i], starts[i+1])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, 3)
	for i := range names {
		names[i] = starts[i].Format("Jan")
	}
	t0, t1, t2 := months[0].Total(), months[1].Total(), months[2].Total()
	trend := stats.ThreeMonthTrend(t0, t1, t2)

	msg := domain.NotificationMessage{
		Title: "📅 Monthly comparison",
		Description: fmt.Sprintf("%s → %s → %s\nTotal: %d → %d → **%d** (%s vs %s)",
			names[0], names[1], names[2], t0, t1, t2, growthText(stats.GrowthRate(t2, t1)), names[1]),
		Color:  domain.ColorInfo,
		Footer: "Forecast is a straight-line guess from the last three months",
	}
	for _, k := range categoryKeys(months[0].Finished, months[1].Finished, months[2].Finished) {
		n0, n1, n2 := months[0].Finished[k], months[1].Finished[k], months[2].Finished[k]
		tr := stats.ThreeMonthTrend(n0, n1, n2)
		msg.AddField(domain.LookupCategory(k).Label(),
			fmt.Sprintf("%d → %d → %d (%s)\n%s, next ≈ %d", n0, n1, n2, growthText(stats.GrowthRate(n2, n1)), trendText(tr), tr.Forecast), true)
	}
	msg.AddField("Next month", fmt.Sprintf("%s, about **%d** items", trendText(trend), trend.Forecast), false)
	return []domain.NotificationMessage{msg}, nil
}

// withoutDerived drops the episode and report counters from a finished map.
func withoutDerived(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if k != domain.CategoryEpisodes && k != domain.CategoryReports {
			out[k] = v
		}
	}
	return out
}
