// Package scheduler runs named cron jobs in a single timezone.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// ErrUnknownJob is returned by RunNow for names that were never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobStatus describes one registered job.
type JobStatus struct {
	Name   string    `json:"name"`
	Spec   string    `json:"spec"`
	Next   time.Time `json:"next"`
	Prev   time.Time `json:"prev"`
	Active bool      `json:"active"`
}

type job struct {
	name  string
	spec  string
	fn    func(ctx context.Context)
	entry cron.EntryID
}

// Scheduler owns a cron instance and remembers job definitions so that the
// whole set can be rebuilt by RestartAll.
type Scheduler struct {
	log *zap.Logger
	loc *time.Location

	mu      sync.Mutex
	ctx     context.Context
	cron    *cron.Cron
	jobs    map[string]*job
	running bool
}

// New creates a stopped scheduler firing in loc.
func New(log *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{log: log, loc: loc, ctx: context.Background(), jobs: map[string]*job{}}
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	return cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{s.log.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{s.log.Sugar()})),
	)
}

// ScheduleTask registers fn under name. Registering an existing name replaces
// the previous entry. A malformed spec yields a *domain.SchedulingError and
// leaves other jobs untouched.
func (s *Scheduler) ScheduleTask(name, spec string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := cron.ParseStandard(spec); err != nil {
		serr := &domain.SchedulingError{Job: name, Spec: spec, Err: err}
		s.log.Error("invalid schedule", zap.String("job", name), zap.String("spec", spec), zap.Error(err))
		return serr
	}

	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old.entry)
	}
	j := &job{name: name, spec: spec, fn: fn}
	if err := s.addLocked(j); err != nil {
		delete(s.jobs, name)
		return err
	}
	s.jobs[name] = j
	s.log.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) addLocked(j *job) error {
	id, err := s.cron.AddJob(j.spec, s.wrap(j))
	if err != nil {
		return &domain.SchedulingError{Job: j.name, Spec: j.spec, Err: err}
	}
	j.entry = id
	return nil
}

// wrap gives each job its own overlap guard.
func (s *Scheduler) wrap(j *job) cron.Job {
	l := cronLogger{s.log.Sugar().With("job", j.name)}
	return cron.NewChain(cron.SkipIfStillRunning(l)).Then(cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		started := time.Now()
		s.log.Debug("job fired", zap.String("job", j.name))
		j.fn(ctx)
		s.log.Debug("job finished", zap.String("job", j.name), zap.Duration("took", time.Since(started)))
	}))
}

// Start begins firing jobs. ctx is handed to every job body and should be the
// application's shutdown context.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx != nil {
		s.ctx = ctx
	}
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)), zap.String("tz", s.loc.String()))
}

// StopAll cancels all timers. Jobs already running finish on their own.
// Calling it twice is a no-op.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.log.Info("scheduler stopped")
}

// RestartAll stops the scheduler, rebuilds every remembered job on a fresh
// cron instance and starts it again.
func (s *Scheduler) RestartAll() error {
	s.StopAll()

	s.mu.Lock()
	s.cron = s.newCron()
	var errs []error
	for name, j := range s.jobs {
		if err := s.addLocked(j); err != nil {
			s.log.Error("re-register failed", zap.String("job", name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.Start(ctx)
	return errors.Join(errs...)
}

// RunNow executes a job body synchronously, bypassing its trigger.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	j.fn(ctx)
	return nil
}

// Running reports whether timers are armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status lists the registered jobs sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{Name: j.name, Spec: j.spec, Active: s.running}
		if e := s.cron.Entry(j.entry); e.Valid() {
			st.Next, st.Prev = e.Next, e.Prev
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger routes the cron library's logs to zap. Routine chatter goes to
// debug; skipped runs are reported at info.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.Infow("job still running, skipping fire", keysAndValues...)
		return
	}
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
