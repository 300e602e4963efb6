package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/goals"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/notify"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/scheduler"
)

const token = "s3cret"

type fakeDispatcher struct {
	runErr error
	ran    []string
}

func (f *fakeDispatcher) Run(_ context.Context, name string, trigger domain.Trigger) (domain.Run, error) {
	f.ran = append(f.ran, name)
	if name == "missing" {
		return domain.Run{}, notify.ErrUnknownReport
	}
	if f.runErr != nil {
		return domain.Run{Job: name, Trigger: trigger, Outcome: domain.OutcomeFallback}, f.runErr
	}
	return domain.Run{Job: name, Trigger: trigger, Outcome: domain.OutcomeSent}, nil
}

func (f *fakeDispatcher) RunCategory(_ context.Context, category string, _ domain.Trigger) ([]notify.RunResult, error) {
	if category != "daily" {
		return nil, &domain.ValidationError{Field: "category", Reason: "unknown"}
	}
	return []notify.RunResult{{Name: "morning-greeting", Run: domain.Run{Outcome: domain.OutcomeSent}}}, nil
}

func (f *fakeDispatcher) RunAll(context.Context, domain.Trigger) []notify.RunResult {
	return []notify.RunResult{
		{Name: "a", Run: domain.Run{Outcome: domain.OutcomeSent}},
		{Name: "b", Run: domain.Run{Outcome: domain.OutcomeFailed}, Err: errors.New("boom")},
	}
}

func (f *fakeDispatcher) Reports() []notify.ReportInfo {
	return []notify.ReportInfo{{Name: "morning-greeting", Category: "daily", Spec: "0 8 * * *"}}
}

func (f *fakeDispatcher) Categories() []string { return []string{"daily"} }

type fakeRuns struct{ err error }

func (f *fakeRuns) LastRuns(context.Context) (map[string]domain.Run, error) {
	return map[string]domain.Run{"morning-greeting": {Job: "morning-greeting", Outcome: domain.OutcomeSent}}, f.err
}

func (f *fakeRuns) RecentRuns(_ context.Context, limit int) ([]domain.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	runs := []domain.Run{
		{Job: "evening-reminder", Outcome: domain.OutcomeSkipped},
		{Job: "morning-greeting", Outcome: domain.OutcomeSent},
	}
	if limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

type fakeScheduler struct{ running bool }

func (f *fakeScheduler) Status() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "morning-greeting", Spec: "0 8 * * *", Active: f.running}}
}
func (f *fakeScheduler) Running() bool     { return f.running }
func (f *fakeScheduler) RestartAll() error { f.running = true; return nil }
func (f *fakeScheduler) StopAll()          { f.running = false }

type fakeProgress struct{ err error }

func (f *fakeProgress) CurrentProgress(context.Context, string) (domain.Progress, error) {
	return domain.Progress{Weekly: map[string]int{"books": 2}, Monthly: map[string]int{}}, f.err
}

func (f *fakeProgress) Analysis(context.Context, string) (domain.ProgressAnalysis, error) {
	return domain.ProgressAnalysis{Today: map[string]int{}, Momentum: domain.MomentumBuilding}, nil
}

func (f *fakeProgress) CheckGoalAchievements(context.Context, string) ([]domain.Achievement, error) {
	return nil, f.err
}

type fixture struct {
	handler    http.Handler
	dispatcher *fakeDispatcher
	scheduler  *fakeScheduler
	progress   *fakeProgress
	runs       *fakeRuns
	goals      *goals.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dispatcher: &fakeDispatcher{},
		scheduler:  &fakeScheduler{running: true},
		progress:   &fakeProgress{},
		runs:       &fakeRuns{},
		goals:      goals.Open(filepath.Join(t.TempDir(), "goals.json"), zap.NewNop()),
	}
	f.handler = NewRouter(Deps{
		Dispatcher: f.dispatcher,
		Scheduler:  f.scheduler,
		Goals:      f.goals,
		Progress:   f.progress,
		Runs:       f.runs,
		Token:      token,
	}, zap.NewNop())
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: response is not JSON: %q", method, path, rec.Body.String())
	}
	return rec, out
}

func TestRequireToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		name     string
		expected string
		header   string
		value    string
		want     int
	}{
		{"not configured", "", "Authorization", "Bearer x", http.StatusServiceUnavailable},
		{"missing", token, "", "", http.StatusUnauthorized},
		{"wrong", token, "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", token, "Authorization", "bearer " + token, http.StatusNoContent},
		{"header", token, "X-Admin-Token", token, http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
		if c.header != "" {
			req.Header.Set(c.header, c.value)
		}
		rec := httptest.NewRecorder()
		RequireToken(c.expected, zap.NewNop())(ok).ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}
}

func TestHealthzIsOpen(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/admin/status", "")
	if rec.Code != http.StatusOK || body["ok"] != true || body["running"] != true {
		t.Fatalf("status = %d %v", rec.Code, body)
	}
	store := body["goal_store"].(map[string]any)
	if store["durable"] != true {
		t.Fatalf("goal store should be durable: %v", store)
	}
	if cats, ok := body["categories"].([]any); !ok || len(cats) != 1 || cats[0] != "daily" {
		t.Fatalf("categories = %v", body["categories"])
	}
	recent, ok := body["recent_runs"].([]any)
	if !ok || len(recent) != 2 {
		t.Fatalf("recent_runs = %v", body["recent_runs"])
	}
	if _, ok := body["last_runs"].(map[string]any); !ok {
		t.Fatalf("last_runs = %v", body["last_runs"])
	}

	f.runs.err = errors.New("database is locked")
	rec, body = f.do(t, http.MethodGet, "/admin/status", "")
	if rec.Code != http.StatusOK || body["recent_runs_error"] != "database is locked" {
		t.Fatalf("history failure should not fail status: %d %v", rec.Code, body)
	}
}

func TestRunReport(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/admin/reports/weekly-report", "")
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("run = %d %v", rec.Code, body)
	}
	if len(f.dispatcher.ran) != 1 || f.dispatcher.ran[0] != "weekly-report" {
		t.Fatalf("dispatcher calls = %v", f.dispatcher.ran)
	}

	rec, body = f.do(t, http.MethodPost, "/admin/reports/missing", "")
	if rec.Code != http.StatusNotFound || body["ok"] != false {
		t.Fatalf("unknown report = %d %v", rec.Code, body)
	}

	f.dispatcher.runErr = &domain.DeliveryError{Report: "weekly-report", Err: errors.New("403")}
	rec, body = f.do(t, http.MethodPost, "/admin/reports/weekly-report", "")
	if rec.Code != http.StatusBadGateway || body["error"] == nil {
		t.Fatalf("delivery failure = %d %v", rec.Code, body)
	}

	f.dispatcher.runErr = fmt.Errorf("%w: weekly-report", notify.ErrReportRunning)
	rec, body = f.do(t, http.MethodPost, "/admin/reports/weekly-report", "")
	if rec.Code != http.StatusConflict || body["ok"] != false {
		t.Fatalf("busy report = %d %v", rec.Code, body)
	}
}

func TestRunAllAndCategory(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/admin/reports", "")
	if body["ok"] != false || body["failed"] != float64(1) {
		t.Fatalf("run all = %v", body)
	}
	rec, _ := f.do(t, http.MethodPost, "/admin/categories/yearly", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category = %d", rec.Code)
	}
	rec, body = f.do(t, http.MethodPost, "/admin/categories/daily", "")
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("daily = %d %v", rec.Code, body)
	}
}

func TestSchedulerControls(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/admin/scheduler/stop", "")
	if body["running"] != false || f.scheduler.running {
		t.Fatalf("stop = %v", body)
	}
	_, body = f.do(t, http.MethodPost, "/admin/scheduler/restart", "")
	if body["running"] != true {
		t.Fatalf("restart = %v", body)
	}
}

func TestGoalRoutes(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPut, "/admin/goals/u1/weekly/books", `{"target":"5"}`)
	if rec.Code != http.StatusOK || body["durable"] != true {
		t.Fatalf("set goal = %d %v", rec.Code, body)
	}
	if f.goals.Goals("u1").Weekly["books"] != 5 {
		t.Fatalf("goal not stored: %+v", f.goals.Goals("u1"))
	}

	for _, bad := range []string{`{"target":"abc"}`, `{"target":-1}`, `{"target":2.5}`, `{}`} {
		rec, _ = f.do(t, http.MethodPut, "/admin/goals/u1/weekly/books", bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", bad, rec.Code)
		}
	}
	rec, _ = f.do(t, http.MethodPut, "/admin/goals/u1/daily/books", `{"target":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad period: status = %d", rec.Code)
	}

	rec, _ = f.do(t, http.MethodPost, "/admin/goals/u1/presets/balanced", "")
	if rec.Code != http.StatusOK || f.goals.Goals("u1").Monthly["books"] == 0 {
		t.Fatalf("preset = %d %+v", rec.Code, f.goals.Goals("u1"))
	}
	rec, body = f.do(t, http.MethodPost, "/admin/goals/u1/presets/extreme", "")
	if rec.Code != http.StatusNotFound || body["presets"] == nil {
		t.Fatalf("unknown preset = %d %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodDelete, "/admin/goals/u1?period=weekly", "")
	g := f.goals.Goals("u1")
	if rec.Code != http.StatusOK || len(g.Weekly) != 0 || len(g.Monthly) == 0 {
		t.Fatalf("reset weekly = %d %+v", rec.Code, g)
	}
	rec, _ = f.do(t, http.MethodDelete, "/admin/goals/u1", "")
	if _, ok := f.goals.AllUserGoals()["u1"]; rec.Code != http.StatusOK || ok {
		t.Fatalf("reset all should remove the user")
	}

	_, body = f.do(t, http.MethodGet, "/admin/goals", "")
	if body["goals"] == nil {
		t.Fatalf("all goals = %v", body)
	}
}

func TestProgressRoute(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/admin/goals/u1/progress", "")
	if rec.Code != http.StatusOK || body["progress"] == nil || body["analysis"] == nil {
		t.Fatalf("progress = %d %v", rec.Code, body)
	}

	f.progress.err = domain.ErrCollaboratorUnavailable
	rec, body = f.do(t, http.MethodGet, "/admin/goals/u1/progress", "")
	if rec.Code != http.StatusBadGateway || body["ok"] != false || body["progress"] == nil {
		t.Fatalf("degraded progress = %d %v", rec.Code, body)
	}
}
