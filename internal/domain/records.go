package domain

import "time"

// ReportRecord is one row of the spreadsheet's report log.
type ReportRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	ItemRef   string    `json:"item_ref,omitempty"`
	Content   string    `json:"content"`
}

// ItemStatus is the normalised state of a tracked item.
type ItemStatus string

const (
	StatusPlanned    ItemStatus = "planned"
	StatusInProgress ItemStatus = "in_progress"
	StatusDone       ItemStatus = "done"
	StatusDropped    ItemStatus = "dropped"
)

// Item is one row of a category tab.
type Item struct {
	Category   string     `json:"category"`
	Title      string     `json:"title"`
	Status     ItemStatus `json:"status"`
	UpdatedAt  time.Time  `json:"updated_at"`  // zero when unknown
	FinishedAt time.Time  `json:"finished_at"` // zero unless done
	Episodes   int        `json:"episodes,omitempty"`
}

// PeriodStats aggregates the spreadsheet over [Start, End).
type PeriodStats struct {
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Finished map[string]int `json:"finished"`
	Backlog  map[string]int `json:"backlog"`
	Reports  int            `json:"reports"`
}

// NewPeriodStats returns stats with empty, non-nil maps.
func NewPeriodStats(start, end time.Time) PeriodStats {
	return PeriodStats{Start: start, End: end, Finished: map[string]int{}, Backlog: map[string]int{}}
}

// Total sums finished items, excluding the derived episode and report counters.
func (s PeriodStats) Total() int {
	n := 0
	for k, v := range s.Finished {
		if k == CategoryEpisodes || k == CategoryReports {
			continue
		}
		n += v
	}
	return n
}

// BacklogTotal sums pending items over all categories.
func (s PeriodStats) BacklogTotal() int {
	n := 0
	for _, v := range s.Backlog {
		n += v
	}
	return n
}

// Trigger tells whether a report run came from the scheduler or an operator.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Outcome is the terminal state of one report run.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFallback Outcome = "fallback"
	OutcomeFailed   Outcome = "failed"
)

// Run records one dispatcher execution.
type Run struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Trigger    Trigger   `json:"trigger"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
