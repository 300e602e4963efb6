package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyTarget   = errors.New("empty target")
	ErrInvalidTarget = errors.New("target is not a whole number")
	ErrNegative      = errors.New("target must not be negative")
)

// ParseTarget parses a goal target typed by a user: base-10, non-negative, no fractions.
func ParseTarget(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "target", Reason: ErrEmptyTarget.Error()}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: "target", Reason: fmt.Sprintf("%v: %s", ErrInvalidTarget, quote(s))}
	}
	if n < 0 {
		return 0, &ValidationError{Field: "target", Reason: ErrNegative.Error()}
	}
	return n, nil
}

// ParseScheduleOverrides parses "name=cron;name=cron" into a map.
// Cron expressions contain spaces, so pairs are separated by ';'.
func ParseScheduleOverrides(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, spec, ok := strings.Cut(pair, "=")
		name, spec = strings.TrimSpace(name), strings.TrimSpace(spec)
		if !ok || name == "" || spec == "" {
			return nil, fmt.Errorf("schedule override %s: expected name=cron", quote(pair))
		}
		out[name] = spec
	}
	return out, nil
}

// SplitIDs splits a comma-separated id list, dropping blanks and duplicates.
func SplitIDs(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, chunk := range raw {
		for _, id := range strings.Split(chunk, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// LocalizeTime formats t in the given location as "Jan 2 15:04".
func LocalizeTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "—"
	}
	return t.In(loc).Format("Jan 2 15:04")
}
