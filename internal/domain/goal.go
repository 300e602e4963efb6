package domain

import (
	"sort"
	"strings"
)

// Period is a goal-tracking timeframe.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Periods lists all periods in display order.
func Periods() []Period { return []Period{PeriodWeekly, PeriodMonthly} }

// ParsePeriod accepts "weekly" or "monthly" (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	}
	return "", &ValidationError{Field: "period", Reason: "must be weekly or monthly, got " + quote(s)}
}

// Targets maps category to a non-negative target count.
type Targets map[string]int

// Clone returns an independent copy; a nil receiver yields an empty map.
func (t Targets) Clone() Targets {
	out := make(Targets, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Categories returns the keys in sorted order.
func (t Targets) Categories() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Goal holds one user's targets for both periods.
type Goal struct {
	Weekly  Targets `json:"weekly"`
	Monthly Targets `json:"monthly"`
}

// NewGoal returns an empty, well-formed goal.
func NewGoal() Goal {
	return Goal{Weekly: Targets{}, Monthly: Targets{}}
}

// Normalize replaces nil maps with empty ones so JSON renders {} rather than null.
func (g Goal) Normalize() Goal {
	if g.Weekly == nil {
		g.Weekly = Targets{}
	}
	if g.Monthly == nil {
		g.Monthly = Targets{}
	}
	return g
}

// Clone deep-copies the goal.
func (g Goal) Clone() Goal {
	return Goal{Weekly: g.Weekly.Clone(), Monthly: g.Monthly.Clone()}
}

// For returns the targets of the given period.
func (g Goal) For(p Period) Targets {
	if p == PeriodMonthly {
		return g.Monthly
	}
	return g.Weekly
}

// IsEmpty reports whether no targets are set.
func (g Goal) IsEmpty() bool { return len(g.Weekly) == 0 && len(g.Monthly) == 0 }

// Progress holds achieved counts per period; computed on demand, never persisted.
type Progress struct {
	Weekly  map[string]int `json:"weekly"`
	Monthly map[string]int `json:"monthly"`
}

// For returns the counts of the given period.
func (p Progress) For(period Period) map[string]int {
	if period == PeriodMonthly {
		return p.Monthly
	}
	return p.Weekly
}

// ZeroProgress returns a progress with every category of g present at 0.
func ZeroProgress(g Goal) Progress {
	p := Progress{Weekly: map[string]int{}, Monthly: map[string]int{}}
	for c := range g.Weekly {
		p.Weekly[c] = 0
	}
	for c := range g.Monthly {
		p.Monthly[c] = 0
	}
	return p
}

// Achievement is a (period, category) pair whose progress met its target.
type Achievement struct {
	UserID   string `json:"user_id"`
	Period   Period `json:"period"`
	Category string `json:"category"`
	Target   int    `json:"target"`
	Current  int    `json:"current"`
}

// Momentum is a qualitative trend of recent activity.
type Momentum string

const (
	MomentumAccelerating Momentum = "accelerating"
	MomentumStable       Momentum = "stable"
	MomentumSlowing      Momentum = "slowing"
	MomentumBuilding     Momentum = "building"
)

// ProgressAnalysis summarises recent report activity.
type ProgressAnalysis struct {
	Today          map[string]int `json:"today"`
	Streak         int            `json:"streak"`
	WeeklyProgress int            `json:"weekly_progress"`
	Momentum       Momentum       `json:"momentum"`
}
