// Package admin exposes health and operator endpoints over HTTP.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/goals"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/notify"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/scheduler"
)

type Dispatcher interface {
	Run(ctx context.Context, name string, trigger domain.Trigger) (domain.Run, error)
	RunCategory(ctx context.Context, category string, trigger domain.Trigger) ([]notify.RunResult, error)
	RunAll(ctx context.Context, trigger domain.Trigger) []notify.RunResult
	Reports() []notify.ReportInfo
	Categories() []string
}

type Scheduler interface {
	Status() []scheduler.JobStatus
	Running() bool
	RestartAll() error
	StopAll()
}

type GoalStore interface {
	Goals(userID string) domain.Goal
	AllUserGoals() map[string]domain.Goal
	SetGoal(userID, period, category string, target int) error
	SetGoalsFromPreset(userID string, p goals.Preset) error
	ResetGoals(userID, scope string) error
	Durable() bool
	Path() string
}

type Progress interface {
	CurrentProgress(ctx context.Context, userID string) (domain.Progress, error)
	Analysis(ctx context.Context, userID string) (domain.ProgressAnalysis, error)
	CheckGoalAchievements(ctx context.Context, userID string) ([]domain.Achievement, error)
}

type RunHistory interface {
	LastRuns(ctx context.Context) (map[string]domain.Run, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

const recentRunsLimit = 20

// Deps are the operations the admin surface maps onto.
type Deps struct {
	Dispatcher Dispatcher
	Scheduler  Scheduler
	Goals      GoalStore
	Progress   Progress
	Runs       RunHistory // optional
	Token      string
}

type Handler struct {
	d   Deps
	log *zap.Logger
}

// NewRouter builds the HTTP handler: /healthz is open, /admin requires the token.
func NewRouter(d Deps, log *zap.Logger) http.Handler {
	h := &Handler{d: d, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.healthz)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireToken(d.Token, log))
		r.Get("/status", h.status)

		r.Post("/reports", h.runAll)
		r.Post("/reports/{name}", h.runReport)
		r.Post("/categories/{category}", h.runCategory)

		r.Post("/scheduler/restart", h.restart)
		r.Post("/scheduler/stop", h.stop)

		r.Get("/goals", h.allGoals)
		r.Get("/goals/{user}", h.userGoals)
		r.Put("/goals/{user}/{period}/{category}", h.setGoal)
		r.Post("/goals/{user}/presets/{preset}", h.applyPreset)
		r.Delete("/goals/{user}", h.resetGoals)
		r.Get("/goals/{user}/progress", h.progress)
	})
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{"status": "ok", "scheduler_running": h.d.Scheduler.Running()})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	resp := response{
		"running":    h.d.Scheduler.Running(),
		"jobs":       h.d.Scheduler.Status(),
		"reports":    h.d.Dispatcher.Reports(),
		"categories": h.d.Dispatcher.Categories(),
		"goal_store": response{
			"path":    h.d.Goals.Path(),
			"durable": h.d.Goals.Durable(),
			"users":   len(h.d.Goals.AllUserGoals()),
		},
	}
	if h.d.Runs != nil {
		last, err := h.d.Runs.LastRuns(r.Context())
		if err != nil {
			h.log.Warn("load last runs failed", zap.Error(err))
			resp["last_runs_error"] = err.Error()
		} else {
			resp["last_runs"] = last
		}
		recent, err := h.d.Runs.RecentRuns(r.Context(), recentRunsLimit)
		if err != nil {
			h.log.Warn("load recent runs failed", zap.Error(err))
			resp["recent_runs_error"] = err.Error()
		} else {
			resp["recent_runs"] = recent
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	run, err := h.d.Dispatcher.Run(r.Context(), name, domain.TriggerManual)
	if err != nil {
		h.log.Warn("manual report failed", zap.String("report", name), zap.Error(err))
		writeJSON(w, statusFor(err), response{"ok": false, "run": run, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{"run": run})
}

func (h *Handler) runCategory(w http.ResponseWriter, r *http.Request) {
	results, err := h.d.Dispatcher.RunCategory(r.Context(), chi.URLParam(r, "category"), domain.TriggerManual)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeResults(w, results)
}

func (h *Handler) runAll(w http.ResponseWriter, r *http.Request) {
	writeResults(w, h.d.Dispatcher.RunAll(r.Context(), domain.TriggerManual))
}

type resultView struct {
	Name    string         `json:"name"`
	Outcome domain.Outcome `json:"outcome"`
	Error   string         `json:"error,omitempty"`
}

func writeResults(w http.ResponseWriter, results []notify.RunResult) {
	views := make([]resultView, 0, len(results))
	failed := 0
	for _, res := range results {
		v := resultView{Name: res.Name, Outcome: res.Run.Outcome}
		if res.Err != nil {
			v.Error = res.Err.Error()
			failed++
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, response{"ok": failed == 0, "failed": failed, "results": views})
}

func (h *Handler) restart(w http.ResponseWriter, _ *http.Request) {
	if err := h.d.Scheduler.RestartAll(); err != nil {
		h.log.Error("scheduler restart reported errors", zap.Error(err))
		writeJSON(w, http.StatusOK, response{"ok": false, "running": h.d.Scheduler.Running(), "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{"running": h.d.Scheduler.Running()})
}

func (h *Handler) stop(w http.ResponseWriter, _ *http.Request) {
	h.d.Scheduler.StopAll()
	h.log.Warn("scheduler stopped by operator")
	writeJSON(w, http.StatusOK, response{"running": h.d.Scheduler.Running()})
}

func (h *Handler) allGoals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{"goals": h.d.Goals.AllUserGoals()})
}

func (h *Handler) userGoals(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	writeJSON(w, http.StatusOK, response{"user": user, "goals": h.d.Goals.Goals(user)})
}

type setGoalRequest struct {
	Target json.RawMessage `json:"target"`
}

// parseTargetJSON accepts {"target": 5} and {"target": "5"}.
func parseTargetJSON(raw json.RawMessage) (int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return domain.ParseTarget(s)
}

func (h *Handler) setGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	target, err := parseTargetJSON(req.Target)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	user := chi.URLParam(r, "user")
	err = h.d.Goals.SetGoal(user, chi.URLParam(r, "period"), chi.URLParam(r, "category"), target)
	h.writeGoalMutation(w, user, err)
}

func (h *Handler) applyPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "preset")
	p, ok := goals.PresetByName(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, response{"error": "unknown preset " + name, "presets": goals.PresetNames()})
		return
	}
	user := chi.URLParam(r, "user")
	h.writeGoalMutation(w, user, h.d.Goals.SetGoalsFromPreset(user, p))
}

func (h *Handler) resetGoals(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	h.writeGoalMutation(w, user, h.d.Goals.ResetGoals(user, r.URL.Query().Get("period")))
}

// writeGoalMutation answers a goal change. A persistence failure still
// reports the applied change, flagged as not durable.
func (h *Handler) writeGoalMutation(w http.ResponseWriter, user string, err error) {
	var pe *domain.PersistenceError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, response{"user": user, "goals": h.d.Goals.Goals(user), "durable": true})
	case errors.As(err, &pe):
		h.log.Error("goal change kept in memory only", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusOK, response{"user": user, "goals": h.d.Goals.Goals(user), "durable": false, "warning": err.Error()})
	default:
		writeError(w, statusFor(err), err.Error())
	}
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	ctx := r.Context()

	resp := response{"user": user, "goals": h.d.Goals.Goals(user)}
	var errs []error

	p, err := h.d.Progress.CurrentProgress(ctx, user)
	resp["progress"] = p
	errs = append(errs, err)

	an, err := h.d.Progress.Analysis(ctx, user)
	resp["analysis"] = an
	errs = append(errs, err)

	achieved, err := h.d.Progress.CheckGoalAchievements(ctx, user)
	if achieved == nil {
		achieved = []domain.Achievement{}
	}
	resp["achievements"] = achieved
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		resp["ok"] = false
		resp["error"] = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
