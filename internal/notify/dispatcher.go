// Package notify builds and delivers the scheduled report messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// ErrUnknownReport is returned for report names that are not registered.
var ErrUnknownReport = errors.New("unknown report")

// ErrReportRunning is returned when a report is triggered while a previous
// run of the same report has not finished.
var ErrReportRunning = errors.New("report is already running")

// Report categories.
const (
	CategoryDaily   = "daily"
	CategoryWeekly  = "weekly"
	CategoryMonthly = "monthly"
)

// Options carries the deployment settings the dispatcher needs.
type Options struct {
	ChannelID         string
	GoalUserIDs       []string
	UserDelay         time.Duration
	AbandonedAfter    time.Duration
	Location          *time.Location
	ScheduleOverrides map[string]string
}

// ReportInfo describes a registered report.
type ReportInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Spec        string `json:"spec"`
	Description string `json:"description"`
}

type builder func(ctx context.Context) ([]domain.NotificationMessage, error)

type report struct {
	ReportInfo
	build builder
	paced bool // wait Options.UserDelay between messages

	running sync.Mutex // held for the whole run, whatever the trigger
}

// RunResult pairs a report with the outcome of running it.
type RunResult struct {
	Name string     `json:"name"`
	Run  domain.Run `json:"run"`
	Err  error      `json:"-"`
}

// Dispatcher owns the report registry and runs reports end to end.
type Dispatcher struct {
	source   StatsSource
	goals    GoalStore
	analyzer Analyzer
	channels ChannelResolver
	runs     RunRecorder
	log      *zap.Logger
	opts     Options
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	reports map[string]*report
	order   []string
}

// New builds a dispatcher with the built-in reports. runs may be nil.
func New(source StatsSource, goals GoalStore, analyzer Analyzer, channels ChannelResolver, runs RunRecorder, log *zap.Logger, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.UserDelay < 0 {
		opts.UserDelay = 0
	}
	if opts.AbandonedAfter <= 0 {
		opts.AbandonedAfter = 30 * 24 * time.Hour
	}
	d := &Dispatcher{
		source:   source,
		goals:    goals,
		analyzer: analyzer,
		channels: channels,
		runs:     runs,
		log:      log,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepCtx,
		reports:  map[string]*report{},
	}
	d.registerBuiltins()
	return d
}

func (d *Dispatcher) add(r *report) {
	if spec, ok := d.opts.ScheduleOverrides[r.Name]; ok {
		r.Spec = spec
	}
	if _, exists := d.reports[r.Name]; !exists {
		d.order = append(d.order, r.Name)
	}
	d.reports[r.Name] = r
}

// Reports lists the registered reports in registration order.
func (d *Dispatcher) Reports() []ReportInfo {
	out := make([]ReportInfo, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.reports[name].ReportInfo)
	}
	return out
}

// Register schedules every report. A report whose schedule is rejected is
// skipped; the others are still registered and the errors are joined.
func (d *Dispatcher) Register(s JobScheduler) error {
	var errs []error
	for _, name := range d.order {
		r := d.reports[name]
		err := s.ScheduleTask(name, r.Spec, func(ctx context.Context) {
			_, _ = d.Run(ctx, name, domain.TriggerScheduled)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run executes one report: build, resolve the channel, send.
//
// Scheduled runs never return an error; failures are logged and recorded.
// Manual runs send a fallback message when the report cannot be built and
// return the failure so the invoker gets an explicit answer.
func (d *Dispatcher) Run(ctx context.Context, name string, trigger domain.Trigger) (domain.Run, error) {
	r, ok := d.reports[name]
	if !ok {
		return domain.Run{Job: name, Trigger: trigger, Outcome: domain.OutcomeFailed}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	run := domain.Run{ID: uuid.NewString(), Job: name, Trigger: trigger, StartedAt: d.now()}
	log := d.log.With(zap.String("report", name), zap.String("trigger", string(trigger)), zap.String("run_id", run.ID))

	if !r.running.TryLock() {
		log.Info("report still running, skipping")
		run.Outcome = domain.OutcomeSkipped
		run.FinishedAt = d.now()
		run.Error = ErrReportRunning.Error()
		d.record(ctx, run, log)
		if trigger == domain.TriggerScheduled {
			return run, nil
		}
		return run, fmt.Errorf("%w: %s", ErrReportRunning, name)
	}
	defer r.running.Unlock()

	err := d.execute(ctx, r, &run, log)
	run.FinishedAt = d.now()
	if err != nil {
		run.Error = err.Error()
	}
	d.record(ctx, run, log)

	if trigger == domain.TriggerScheduled {
		return run, nil
	}
	return run, err
}

func (d *Dispatcher) execute(ctx context.Context, r *report, run *domain.Run, log *zap.Logger) error {
	msgs, err := r.build(ctx)
	if err != nil {
		log.Error("report build failed", zap.Error(err))
		run.Outcome = domain.OutcomeFailed
		if run.Trigger == domain.TriggerManual {
			if ferr := d.sendFallback(ctx, r, err); ferr != nil {
				log.Warn("fallback message not delivered", zap.Error(ferr))
			} else {
				run.Outcome = domain.OutcomeFallback
			}
		}
		return fmt.Errorf("build %s: %w", r.Name, err)
	}
	if len(msgs) == 0 {
		log.Info("nothing to report")
		run.Outcome = domain.OutcomeSkipped
		return nil
	}

	ch, err := d.channels.Resolve(ctx, d.opts.ChannelID)
	if err != nil {
		log.Error("resolve channel failed", zap.Error(err))
		run.Outcome = domain.OutcomeFailed
		return &domain.DeliveryError{Report: r.Name, Channel: d.opts.ChannelID, Err: err}
	}
	if ch == nil {
		log.Warn("no output channel available, skipping send")
		run.Outcome = domain.OutcomeSkipped
		return nil
	}

	var errs []error
	sent := 0
	for i, m := range msgs {
		if i > 0 && r.paced && d.opts.UserDelay > 0 {
			if err := d.sleep(ctx, d.opts.UserDelay); err != nil {
				errs = append(errs, err)
				break
			}
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = d.now()
		}
		if err := ch.Send(ctx, m.Fit()); err != nil {
			log.Error("send failed", zap.String("channel", ch.ID()), zap.Int("message", i), zap.Error(err))
			errs = append(errs, &domain.DeliveryError{Report: r.Name, Channel: ch.ID(), Err: err})
			continue
		}
		sent++
	}
	log.Info("report delivered", zap.String("channel", ch.ID()), zap.Int("sent", sent), zap.Int("messages", len(msgs)))

	if len(errs) > 0 {
		run.Outcome = domain.OutcomeFailed
		if sent > 0 {
			run.Outcome = domain.OutcomeSent
		}
		return errors.Join(errs...)
	}
	run.Outcome = domain.OutcomeSent
	return nil
}

// sendFallback delivers a minimal error notice for a report that could not be built.
func (d *Dispatcher) sendFallback(ctx context.Context, r *report, cause error) error {
	ch, err := d.channels.Resolve(ctx, d.opts.ChannelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return errors.New("no output channel")
	}
	return ch.Send(ctx, fallbackMessage(r.Name, cause, d.now()).Fit())
}

func (d *Dispatcher) record(ctx context.Context, run domain.Run, log *zap.Logger) {
	if d.runs == nil {
		return
	}
	// The run is recorded even when ctx was cancelled mid-report.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.runs.RecordRun(rctx, run); err != nil {
		log.Warn("record run failed", zap.Error(err))
	}
}

// RunCategory runs every report of a category in registration order.
func (d *Dispatcher) RunCategory(ctx context.Context, category string, trigger domain.Trigger) ([]RunResult, error) {
	var names []string
	for _, name := range d.order {
		if d.reports[name].Category == category {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, &domain.ValidationError{Field: "category", Reason: fmt.Sprintf("no reports in %q (known: %s)", category, strings.Join(d.Categories(), ", "))}
	}
	return d.runEach(ctx, names, trigger), nil
}

// RunAll runs every report sequentially.
func (d *Dispatcher) RunAll(ctx context.Context, trigger domain.Trigger) []RunResult {
	return d.runEach(ctx, d.order, trigger)
}

func (d *Dispatcher) runEach(ctx context.Context, names []string, trigger domain.Trigger) []RunResult {
	out := make([]RunResult, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			out = append(out, RunResult{Name: name, Err: ctx.Err()})
			continue
		}
		run, err := d.Run(ctx, name, trigger)
		out = append(out, RunResult{Name: name, Run: run, Err: err})
	}
	return out
}

// Categories returns the report categories in sorted order.
func (d *Dispatcher) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range d.reports {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
