// Package progress combines stored goals with spreadsheet counts.
package progress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Source is the part of the spreadsheet collaborator the analyzer reads.
type Source interface {
	WeeklyStats(ctx context.Context) (domain.PeriodStats, error)
	MonthlyStats(ctx context.Context) (domain.PeriodStats, error)
	RecentReports(ctx context.Context, n int) ([]domain.ReportRecord, error)
}

// GoalReader returns a user's goals.
type GoalReader interface {
	Goals(userID string) domain.Goal
}

const (
	recentWindow = 200
	maxStreak    = 30
	momentumSize = 7
)

// Analyzer computes goal progress and activity trends for a user.
type Analyzer struct {
	source Source
	goals  GoalReader
	loc    *time.Location
	now    func() time.Time
}

// New builds an Analyzer. A nil loc means UTC.
func New(source Source, goals GoalReader, loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{source: source, goals: goals, loc: loc, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// CurrentProgress returns this week's and this month's counts. On failure it
// returns a zeroed progress covering the user's goal categories together with
// an error wrapping domain.ErrCollaboratorUnavailable.
func (a *Analyzer) CurrentProgress(ctx context.Context, userID string) (domain.Progress, error) {
	goal := a.goals.Goals(userID)

	var weekly, monthly domain.PeriodStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weekly, err = a.source.WeeklyStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = a.source.MonthlyStats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ZeroProgress(goal), unavailable("load progress", err)
	}

	p := domain.ZeroProgress(goal)
	for c, n := range weekly.Finished {
		p.Weekly[c] = n
	}
	for c, n := range monthly.Finished {
		p.Monthly[c] = n
	}
	return p, nil
}

// Analysis summarises the recent report log.
func (a *Analyzer) Analysis(ctx context.Context, userID string) (domain.ProgressAnalysis, error) {
	records, err := a.source.RecentReports(ctx, recentWindow)
	if err != nil {
		return zeroAnalysis(), unavailable("load reports", err)
	}
	now := a.now()
	return domain.ProgressAnalysis{
		Today:          Today(records, now, a.loc),
		Streak:         Streak(records, now, a.loc),
		WeeklyProgress: WeeklyProgress(records, now, a.loc),
		Momentum:       Momentum(records),
	}, nil
}

// CheckGoalAchievements lists the goals the user has met.
func (a *Analyzer) CheckGoalAchievements(ctx context.Context, userID string) ([]domain.Achievement, error) {
	p, err := a.CurrentProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Achievements(userID, a.goals.Goals(userID), p), nil
}

func zeroAnalysis() domain.ProgressAnalysis {
	return domain.ProgressAnalysis{Today: map[string]int{}, Momentum: domain.MomentumBuilding}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrCollaboratorUnavailable, err)
}

// Today counts records per category dated on now's local day.
func Today(records []domain.ReportRecord, now time.Time, loc *time.Location) map[string]int {
	out := map[string]int{}
	today := domain.DayKey(now, loc)
	for _, r := range records {
		if r.Timestamp.IsZero() || domain.DayKey(r.Timestamp, loc) != today {
			continue
		}
		out[r.Category]++
	}
	return out
}

// Streak counts consecutive local days with at least one record, walking back
// from today. A day without records ends the streak; no record today means 0.
func Streak(records []domain.ReportRecord, now time.Time, loc *time.Location) int {
	days := map[string]bool{}
	for _, r := range records {
		if !r.Timestamp.IsZero() {
			days[domain.DayKey(r.Timestamp, loc)] = true
		}
	}
	day := domain.StartOfDay(now, loc)
	streak := 0
	for streak < maxStreak && days[domain.DayKey(day, loc)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// WeeklyProgress counts records at or after the most recent Sunday 00:00.
func WeeklyProgress(records []domain.ReportRecord, now time.Time, loc *time.Location) int {
	start := domain.WeekStart(now, loc)
	n := 0
	for _, r := range records {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(now) {
			n++
		}
	}
	return n
}

// Momentum compares the rate of the newest seven records with the seven
// before them. Records must be newest first.
func Momentum(records []domain.ReportRecord) domain.Momentum {
	if len(records) < 2*momentumSize {
		return domain.MomentumBuilding
	}
	recent := rate(records[:momentumSize])
	earlier := rate(records[momentumSize : 2*momentumSize])
	switch {
	case recent >= earlier*1.2:
		return domain.MomentumAccelerating
	case recent <= earlier*0.8:
		return domain.MomentumSlowing
	default:
		return domain.MomentumStable
	}
}

// rate is records per day over the inclusive day span of the window.
func rate(window []domain.ReportRecord) float64 {
	first, last := window[0].Timestamp, window[0].Timestamp
	for _, r := range window[1:] {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	days := int(last.Sub(first).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return float64(len(window)) / float64(days)
}

// Achievements returns one entry per positive target that progress has met,
// sorted by period then category.
func Achievements(userID string, goal domain.Goal, p domain.Progress) []domain.Achievement {
	var out []domain.Achievement
	for _, period := range domain.Periods() {
		targets := goal.For(period)
		counts := p.For(period)
		for _, c := range targets.Categories() {
			target := targets[c]
			if target <= 0 {
				continue
			}
			if cur := counts[c]; cur >= target {
				out = append(out, domain.Achievement{
					UserID: userID, Period: period, Category: c, Target: target, Current: cur,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period == domain.PeriodWeekly
		}
		return out[i].Category < out[j].Category
	})
	return out
}
