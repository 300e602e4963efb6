package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrCollaboratorUnavailable marks failures of the spreadsheet or Discord side.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// ValidationError reports malformed input to a goal mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a goal file that could not be read or written.
type PersistenceError struct {
	Path string
	Op   string // load|save
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("goal store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SchedulingError reports a job that could not be registered.
type SchedulingError struct {
	Job  string
	Spec string
	Err  error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule %s (%q): %v", e.Job, e.Spec, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// DeliveryError reports a message that could not be sent.
type DeliveryError struct {
	Report  string
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("deliver %s: %v", e.Report, e.Err)
	}
	return fmt.Sprintf("deliver %s to %s: %v", e.Report, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func quote(s string) string { return strconv.Quote(s) }
