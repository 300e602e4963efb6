// Package stats turns raw period counts into display metrics. Everything here is
// pure; callers fetch the numbers and decide how to render them.
package stats

import (
	"math"
	"strings"
)

// Percentage returns value/total as a rounded integer in [0,100]; 0 when total <= 0.
func Percentage(value, total int) int {
	if total <= 0 {
		return 0
	}
	return clamp(int(math.Round(float64(value)*100/float64(total))), 0, 100)
}

// Glyphs is the filled/empty pair used by ProgressBar.
type Glyphs struct {
	Filled string
	Empty  string
}

var (
	DefaultGlyphs = Glyphs{Filled: "█", Empty: "░"}
	SquareGlyphs  = Glyphs{Filled: "🟩", Empty: "⬜"}
)

// DefaultBarLength is used when ProgressBar gets a non-positive length.
const DefaultBarLength = 10

// ProgressBar renders exactly length glyphs, the filled share floored so that it
// never decreases as pct grows.
func ProgressBar(pct, length int, g Glyphs) string {
	if length <= 0 {
		length = DefaultBarLength
	}
	if g.Filled == "" || g.Empty == "" {
		g = DefaultGlyphs
	}
	filled := clamp(pct, 0, 100) * length / 100
	return strings.Repeat(g.Filled, filled) + strings.Repeat(g.Empty, length-filled)
}

// GrowthRate is the signed percent change from previous to current. With no
// baseline it reports 100 for any growth and 0 otherwise.
func GrowthRate(current, previous int) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(current-previous) * 100 / float64(previous)))
}

// BacklogClearanceRate is finished/(finished+backlog) as a percentage.
func BacklogClearanceRate(finished, backlog int) int {
	return Percentage(finished, finished+backlog)
}

// ChangeKind tags a Change.
type ChangeKind int

const (
	NoChange ChangeKind = iota
	Increase
	Decrease
)

// Change is the direction and size of a difference between two counts.
type Change struct {
	Kind  ChangeKind
	Delta int // always >= 0
}

// ChangeIndicator compares current against previous.
func ChangeIndicator(current, previous int) Change {
	switch d := current - previous; {
	case d > 0:
		return Change{Kind: Increase, Delta: d}
	case d < 0:
		return Change{Kind: Decrease, Delta: -d}
	default:
		return Change{Kind: NoChange}
	}
}

// TrendLabel names the direction of a trend.
type TrendLabel string

const (
	TrendRising  TrendLabel = "rising"
	TrendFalling TrendLabel = "falling"
	TrendSteady  TrendLabel = "steady"
)

// Trend is a naive linear extrapolation over three consecutive periods.
type Trend struct {
	AvgDelta float64
	Forecast int
	Label    TrendLabel
}

// ThreeMonthTrend averages the two deltas of n0→n1→n2 (oldest first) and projects
// one more step: forecast = n2 + avgDelta, rounded and floored at 0. This is a
// straight-line guess for a motivational message, not a statistical model.
func ThreeMonthTrend(n0, n1, n2 int) Trend {
	avg := float64((n1-n0)+(n2-n1)) / 2
	forecast := int(math.Round(float64(n2) + avg))
	if forecast < 0 {
		forecast = 0
	}
	label := TrendSteady
	switch {
	case avg > 0:
		label = TrendRising
	case avg < 0:
		label = TrendFalling
	}
	return Trend{AvgDelta: avg, Forecast: forecast, Label: label}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
