package notify

import (
	"context"
	"time"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// StatsSource is the spreadsheet collaborator.
type StatsSource interface {
	WeeklyStats(ctx context.Context) (domain.PeriodStats, error)
	MonthlyStats(ctx context.Context) (domain.PeriodStats, error)
	RecentReports(ctx context.Context, n int) ([]domain.ReportRecord, error)
	StatsForDateRange(ctx context.Context, start, end time.Time) (domain.PeriodStats, error)
	AbandonedItems(ctx context.Context, olderThan time.Duration) ([]domain.Item, error)
}

// Channel is an output destination for messages.
type Channel interface {
	ID() string
	Send(ctx context.Context, msg domain.NotificationMessage) error
}

// ChannelResolver finds the output channel. An empty id means "pick a
// default". A nil Channel with a nil error means none is available.
type ChannelResolver interface {
	Resolve(ctx context.Context, channelID string) (Channel, error)
}

// GoalStore is the subset of the goal store the dispatcher reads.
type GoalStore interface {
	Goals(userID string) domain.Goal
}

// Analyzer is the progress collaborator used by goal and streak reports.
type Analyzer interface {
	CurrentProgress(ctx context.Context, userID string) (domain.Progress, error)
	Analysis(ctx context.Context, userID string) (domain.ProgressAnalysis, error)
	CheckGoalAchievements(ctx context.Context, userID string) ([]domain.Achievement, error)
}

// RunRecorder stores the outcome of each run.
type RunRecorder interface {
	RecordRun(ctx context.Context, r domain.Run) error
}

// JobScheduler registers recurring jobs.
type JobScheduler interface {
	ScheduleTask(name, spec string, fn func(ctx context.Context)) error
}
