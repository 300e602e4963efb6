package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/progress"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/stats"
)

// userStage tracks how far a per-user goal report got.
type userStage int

const (
	stageStarted userStage = iota
	stageGoalsLoaded
	stageProgressLoaded
	stageAnalysisLoaded
	stageMessageBuilt
)

func (s userStage) String() string {
	switch s {
	case stageStarted:
		return "started"
	case stageGoalsLoaded:
		return "goals-loaded"
	case stageProgressLoaded:
		return "progress-loaded"
	case stageAnalysisLoaded:
		return "analysis-loaded"
	case stageMessageBuilt:
		return "message-built"
	}
	return "unknown"
}

// goalProgress builds one message per configured user. A user whose data
// cannot be loaded still gets a fallback message.
func (d *Dispatcher) goalProgress(ctx context.Context) ([]domain.NotificationMessage, error) {
	if len(d.opts.GoalUserIDs) == 0 {
		d.log.Info("no goal users configured")
		return nil, nil
	}
	msgs := make([]domain.NotificationMessage, 0, len(d.opts.GoalUserIDs))
	for _, user := range d.opts.GoalUserIDs {
		if err := ctx.Err(); err != nil {
			return msgs, err
		}
		msgs = append(msgs, d.userGoalMessage(ctx, user))
	}
	return msgs, nil
}

func (d *Dispatcher) userGoalMessage(ctx context.Context, user string) domain.NotificationMessage {
	log := d.log.With(zap.String("user", user))
	stage := stageStarted

	fail := func(err error) domain.NotificationMessage {
		log.Warn("goal report degraded", zap.Stringer("stage", stage), zap.Error(err))
		return domain.NotificationMessage{
			Title:       "🎯 Goal progress",
			Description: fmt.Sprintf("%s your progress could not be loaded right now. It will be back next time.", mention(user)),
			Color:       domain.ColorWarning,
			Footer:      "stopped at " + stage.String(),
		}
	}

	goal := d.goals.Goals(user)
	stage = stageGoalsLoaded
	if goal.IsEmpty() {
		log.Debug("user has no goals")
		return domain.NotificationMessage{
			Title:       "🎯 Goal progress",
			Description: fmt.Sprintf("%s you have no goals yet. Pick a preset or set one to start tracking.", mention(user)),
			Color:       domain.ColorInfo,
		}
	}

	prog, err := d.analyzer.CurrentProgress(ctx, user)
	if err != nil {
		return fail(err)
	}
	stage = stageProgressLoaded

	analysis, err := d.analyzer.Analysis(ctx, user)
	if err != nil {
		return fail(err)
	}
	stage = stageAnalysisLoaded

	msg := goalMessage(user, goal, prog, analysis, progress.Achievements(user, goal, prog))
	stage = stageMessageBuilt
	log.Debug("goal report built", zap.Stringer("stage", stage))
	return msg
}

func goalMessage(user string, goal domain.Goal, prog domain.Progress, an domain.ProgressAnalysis, achieved []domain.Achievement) domain.NotificationMessage {
	msg := domain.NotificationMessage{
		Title: "🎯 Goal progress",
		Description: fmt.Sprintf("%s\n🔥 Streak: %d days · This week: %d reports · %s",
			mention(user), an.Streak, an.WeeklyProgress, momentumText(an.Momentum)),
		Color: domain.ColorGoal,
	}

	for _, period := range domain.Periods() {
		targets := goal.For(period)
		if len(targets) == 0 {
			continue
		}
		counts := prog.For(period)
		var b strings.Builder
		for _, c := range targets.Categories() {
			target := targets[c]
			if target <= 0 {
				continue
			}
			cur := counts[c]
			pct := stats.Percentage(cur, target)
			fmt.Fprintf(&b, "%s %d/%d\n%s %d%%\n", domain.LookupCategory(c).Label(), cur, target,
				stats.ProgressBar(pct, 10, stats.DefaultGlyphs), pct)
		}
		if b.Len() > 0 {
			msg.AddField(periodTitle(period), strings.TrimSuffix(b.String(), "\n"), false)
		}
	}

	if len(achieved) > 0 {
		var b strings.Builder
		for _, a := range achieved {
			fmt.Fprintf(&b, "🏆 %s %s (%d/%d)\n", periodTitle(a.Period), domain.LookupCategory(a.Category).Label(), a.Current, a.Target)
		}
		msg.AddField("Achieved", strings.TrimSuffix(b.String(), "\n"), false)
		msg.Color = domain.ColorSuccess
	}
	return msg
}

func periodTitle(p domain.Period) string {
	if p == domain.PeriodMonthly {
		return "Monthly"
	}
	return "Weekly"
}
