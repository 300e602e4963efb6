package domain

import (
	"testing"
	"time"
)

// helper: load a tz or fail
func mustLoc(t *testing.T, tz string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

func TestWeekStart_MidWeek(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	// Wednesday 2025-05-07 15:30 JST → Sunday 2025-05-04 00:00 JST
	now := time.Date(2025, time.May, 7, 15, 30, 0, 0, loc)
	got := WeekStart(now, loc)
	want := time.Date(2025, time.May, 4, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestWeekStart_OnSunday(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	now := time.Date(2025, time.May, 4, 0, 10, 0, 0, loc)
	got := WeekStart(now, loc)
	want := time.Date(2025, time.May, 4, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestWeekStart_UsesLocalDay(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	// 2025-05-03 (Sat) 20:00 UTC is already Sunday 05:00 in Tokyo.
	now := time.Date(2025, time.May, 3, 20, 0, 0, 0, time.UTC)
	got := WeekStart(now, loc)
	want := time.Date(2025, time.May, 4, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestMonthStart(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2025, time.February, 28, 23, 59, 0, 0, loc)
	got := MonthStart(now, loc)
	want := time.Date(2025, time.February, 1, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestGreetingByHour(t *testing.T) {
	cases := map[int]string{7: "Good morning", 13: "Good afternoon", 20: "Good evening", 2: "Still up? Good night owl"}
	for h, want := range cases {
		got := GreetingByHour(time.Date(2025, 1, 1, h, 0, 0, 0, time.UTC))
		if got != want {
			t.Fatalf("hour %d: want %q, got %q", h, want, got)
		}
	}
}
