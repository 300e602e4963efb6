// Package goals persists per-user weekly and monthly targets in a JSON file.
package goals

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Store keeps goals in memory and mirrors every mutation to disk.
// A single mutex covers read-modify-write-save, so the file has one writer.
type Store struct {
	path string
	log  *zap.Logger

	mu         sync.Mutex
	goals      map[string]domain.Goal
	memoryOnly bool
}

// Open loads the goal file at path. It never fails: a missing file is created
// empty, a corrupt one is moved aside, and an unusable path leaves the store
// running in memory only.
func Open(path string, log *zap.Logger) *Store {
	s := &Store{path: path, log: log, goals: map[string]domain.Goal{}}

	err := s.load()
	switch {
	case err == nil:
		s.log.Info("goal store loaded", zap.String("path", path), zap.Int("users", len(s.goals)))
	case errors.Is(err, os.ErrNotExist):
		if err := s.save(); err != nil {
			s.fallBack(err)
		} else {
			s.log.Info("goal store created", zap.String("path", path))
		}
	case isCorrupt(err):
		s.log.Error("goal file is corrupt, starting empty", zap.String("path", path), zap.Error(err))
		s.quarantine()
		if err := s.save(); err != nil {
			s.fallBack(err)
		}
	default:
		s.fallBack(&domain.PersistenceError{Path: path, Op: "load", Err: err})
	}
	return s
}

// Goals returns a copy of the user's goals; unknown users get an empty goal.
func (s *Store) Goals(userID string) domain.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[userID]
	if !ok {
		return domain.NewGoal()
	}
	return g.Clone()
}

// SetGoal sets one period/category target, creating the user when needed.
func (s *Store) SetGoal(userID, period, category string, target int) error {
	if err := validUser(userID); err != nil {
		return err
	}
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return err
	}
	c, err := domain.NormalizeCategory(category)
	if err != nil {
		return err
	}
	if target < 0 {
		return &domain.ValidationError{Field: "target", Reason: domain.ErrNegative.Error()}
	}

	return s.mutate(func() {
		g := s.userGoal(userID)
		g.For(p)[c] = target
		s.goals[userID] = g
	})
}

// Preset is a set of targets applied wholesale; a nil period is left untouched.
type Preset struct {
	Weekly  domain.Targets `json:"weekly,omitempty"`
	Monthly domain.Targets `json:"monthly,omitempty"`
}

// SetGoalsFromPreset replaces each period present in p.
func (s *Store) SetGoalsFromPreset(userID string, p Preset) error {
	if err := validUser(userID); err != nil {
		return err
	}
	weekly, err := cleanTargets(p.Weekly)
	if err != nil {
		return err
	}
	monthly, err := cleanTargets(p.Monthly)
	if err != nil {
		return err
	}

	return s.mutate(func() {
		g := s.userGoal(userID)
		if weekly != nil {
			g.Weekly = weekly
		}
		if monthly != nil {
			g.Monthly = monthly
		}
		s.goals[userID] = g
	})
}

// ResetGoals clears one period ("weekly"/"monthly") or, for "" and "all",
// removes the user entirely.
func (s *Store) ResetGoals(userID, scope string) error {
	if err := validUser(userID); err != nil {
		return err
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" || scope == "all" {
		return s.mutate(func() { delete(s.goals, userID) })
	}
	p, err := domain.ParsePeriod(scope)
	if err != nil {
		return err
	}
	return s.mutate(func() {
		g, ok := s.goals[userID]
		if !ok {
			return
		}
		g = g.Normalize()
		if p == domain.PeriodWeekly {
			g.Weekly = domain.Targets{}
		} else {
			g.Monthly = domain.Targets{}
		}
		s.goals[userID] = g
	})
}

// AllUserGoals returns a snapshot of every user's goals.
func (s *Store) AllUserGoals() map[string]domain.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Goal, len(s.goals))
	for id, g := range s.goals {
		out[id] = g.Clone()
	}
	return out
}

// Durable reports whether mutations still reach the file.
func (s *Store) Durable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.memoryOnly
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// mutate applies fn and saves while holding the lock. The in-memory change is
// kept even when the save fails.
func (s *Store) mutate(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	if s.memoryOnly {
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: errMemoryOnly}
	}
	if err := s.save(); err != nil {
		s.fallBackLocked(err)
		return err
	}
	return nil
}

var errMemoryOnly = errors.New("store is running in memory only")

// userGoal returns the stored goal with non-nil maps; caller holds mu.
func (s *Store) userGoal(userID string) domain.Goal {
	return s.goals[userID].Normalize()
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	var raw map[string]domain.Goal
	if err := json.Unmarshal(b, &raw); err != nil {
		return &corruptError{err: err}
	}
	loaded := make(map[string]domain.Goal, len(raw))
	for id, g := range raw {
		weekly, err := cleanTargets(g.Weekly)
		if err != nil {
			return &corruptError{err: fmt.Errorf("user %s weekly: %w", id, err)}
		}
		monthly, err := cleanTargets(g.Monthly)
		if err != nil {
			return &corruptError{err: fmt.Errorf("user %s monthly: %w", id, err)}
		}
		loaded[id] = domain.Goal{Weekly: weekly, Monthly: monthly}.Normalize()
	}
	for id, g := range loaded {
		s.goals[id] = g
	}
	return nil
}

// save writes the whole map through a temp file and rename; caller holds mu
// (or is still constructing the store).
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.goals, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &domain.PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

func (s *Store) quarantine() {
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, dst); err != nil {
		s.log.Warn("could not move corrupt goal file aside", zap.Error(err))
		return
	}
	s.log.Warn("corrupt goal file moved aside", zap.String("backup", dst))
}

func (s *Store) fallBack(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallBackLocked(err)
}

func (s *Store) fallBackLocked(err error) {
	if !s.memoryOnly {
		s.log.Error("goal store persistence failed, continuing in memory only",
			zap.String("path", s.path), zap.Error(err))
	}
	s.memoryOnly = true
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &domain.ValidationError{Field: "user", Reason: "must not be empty"}
	}
	return nil
}

func cleanTargets(t domain.Targets) (domain.Targets, error) {
	if t == nil {
		return nil, nil
	}
	out := make(domain.Targets, len(t))
	for k, v := range t {
		c, err := domain.NormalizeCategory(k)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, &domain.ValidationError{Field: "target", Reason: fmt.Sprintf("%s: %v", c, domain.ErrNegative)}
		}
		out[c] = v
	}
	return out, nil
}

// corruptError marks a goal file that exists but does not decode.
type corruptError struct{ err error }

func (e *corruptError) Error() string { return "decode goal file: " + e.err.Error() }
func (e *corruptError) Unwrap() error { return e.err }

func isCorrupt(err error) bool {
	var ce *corruptError
	return errors.As(err, &ce)
}
