package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/stats"
)

func changeText(c stats.Change) string {
	switch c.Kind {
	case stats.Increase:
		return fmt.Sprintf("📈 +%d", c.Delta)
	case stats.Decrease:
		return fmt.Sprintf("📉 -%d", c.Delta)
	default:
		return "➖ ±0"
	}
}

func growthText(pct int) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("+%d%%", pct)
	case pct < 0:
		return fmt.Sprintf("%d%%", pct)
	default:
		return "±0%"
	}
}

func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank+1)
	}
}

func momentumText(m domain.Momentum) string {
	switch m {
	case domain.MomentumAccelerating:
		return "🚀 accelerating"
	case domain.MomentumSlowing:
		return "🐢 slowing down"
	case domain.MomentumStable:
		return "⚖️ steady"
	default:
		return "🌱 building up"
	}
}

func trendText(t stats.Trend) string {
	switch t.Label {
	case stats.TrendRising:
		return "↗️ rising"
	case stats.TrendFalling:
		return "↘️ falling"
	default:
		return "➡️ steady"
	}
}

// categoryKeys returns the union of keys with a non-zero count, sorted.
func categoryKeys(maps ...map[string]int) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range maps {
		for k, v := range m {
			if v != 0 && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// verbLines renders "📚 Books: read 3" lines for day summaries.
func verbLines(counts map[string]int) string {
	var b strings.Builder
	for _, k := range categoryKeys(counts) {
		c := domain.LookupCategory(k)
		fmt.Fprintf(&b, "%s: %s %d\n", c.Label(), c.Verb, counts[k])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// countLines renders "📚 Books: 3" lines for non-zero counts.
func countLines(counts map[string]int) string {
	var b strings.Builder
	for _, k := range categoryKeys(counts) {
		fmt.Fprintf(&b, "%s: %d\n", domain.LookupCategory(k).Label(), counts[k])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func dateRange(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("Jan 2") + " – " + end.In(loc).Format("Jan 2")
}

func mention(userID string) string { return "<@" + userID + ">" }

func fallbackMessage(report string, cause error, now time.Time) domain.NotificationMessage {
	m := domain.NotificationMessage{
		Title:       "⚠️ Error occurred",
		Description: fmt.Sprintf("The %s report could not be generated. Please try again later.", report),
		Color:       domain.ColorError,
		Footer:      report,
		Timestamp:   now,
	}
	if cause != nil {
		m.AddField("Reason", cause.Error(), false)
	}
	return m
}

var quotes = []string{
	"A reader lives a thousand lives before he dies.",
	"Small steps every day add up to big results.",
	"The best time to start was yesterday. The next best time is now.",
	"Progress, not perfection.",
	"One page, one episode, one step. It all counts.",
	"Curiosity is the engine of achievement.",
	"Consistency beats intensity.",
}

// quoteOfDay picks a quote that stays fixed for the local day.
func quoteOfDay(now time.Time) string {
	return quotes[now.YearDay()%len(quotes)]
}
