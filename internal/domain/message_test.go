package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFit_TruncatesOversizedParts(t *testing.T) {
	m := NotificationMessage{
		Title:       strings.Repeat("t", 300),
		Description: strings.Repeat("d", 5000),
		Fields:      []Field{{Name: "f", Value: strings.Repeat("v", 2000)}},
	}
	got := m.Fit()
	if n := utf8.RuneCountInString(got.Title); n != MaxTitleLen {
		t.Fatalf("title length: want %d, got %d", MaxTitleLen, n)
	}
	if !strings.HasSuffix(got.Title, "…") {
		t.Fatalf("truncated title should end with ellipsis: %q", got.Title[len(got.Title)-5:])
	}
	if n := utf8.RuneCountInString(got.Fields[0].Value); n != MaxFieldValueLen {
		t.Fatalf("field value length: want %d, got %d", MaxFieldValueLen, n)
	}
	if got.size() > MaxEmbedTotal {
		t.Fatalf("embed total %d exceeds %d", got.size(), MaxEmbedTotal)
	}
}

func TestFit_DoesNotMutateOriginal(t *testing.T) {
	m := NotificationMessage{Title: "x", Fields: []Field{{Name: "", Value: ""}}}
	_ = m.Fit()
	if m.Fields[0].Name != "" {
		t.Fatalf("original field mutated: %+v", m.Fields[0])
	}
}

func TestFit_FillsBlanks(t *testing.T) {
	got := NotificationMessage{Fields: []Field{{Name: " ", Value: ""}}}.Fit()
	if got.Title != defaultTitle {
		t.Fatalf("want default title, got %q", got.Title)
	}
	if got.Fields[0].Name == "" || got.Fields[0].Value == "" {
		t.Fatalf("blank field parts must be replaced: %+v", got.Fields[0])
	}
}

func TestFit_CapsFieldCount(t *testing.T) {
	var m NotificationMessage
	for i := 0; i < 40; i++ {
		m.AddField("n", "v", true)
	}
	if got := m.Fit(); len(got.Fields) != MaxFields {
		t.Fatalf("want %d fields, got %d", MaxFields, len(got.Fields))
	}
}

func TestTruncate_MultiByte(t *testing.T) {
	got := Truncate("📚📚📚📚", 3)
	if got != "📚📚…" {
		t.Fatalf("want 📚📚…, got %q", got)
	}
	if Truncate("abc", 5) != "abc" {
		t.Fatal("short strings must be unchanged")
	}
}

func TestParseTarget(t *testing.T) {
	good := map[string]int{"5": 5, " 0 ": 0, "12": 12}
	for in, want := range good {
		got, err := ParseTarget(in)
		if err != nil || got != want {
			t.Fatalf("ParseTarget(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "abc", "-1", "2.5", "1e3"} {
		_, err := ParseTarget(in)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("ParseTarget(%q): want ValidationError, got %v", in, err)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(" Weekly "); err != nil || p != PeriodWeekly {
		t.Fatalf("want weekly, got %q %v", p, err)
	}
	if _, err := ParsePeriod("daily"); !IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestParseScheduleOverrides(t *testing.T) {
	got, err := ParseScheduleOverrides("weekly-report=0 9 * * 1; morning-greeting = 30 7 * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["weekly-report"] != "0 9 * * 1" || got["morning-greeting"] != "30 7 * * *" {
		t.Fatalf("unexpected overrides: %v", got)
	}
	if _, err := ParseScheduleOverrides("broken"); err == nil {
		t.Fatal("expected error for pair without '='")
	}
}

func TestSplitIDs(t *testing.T) {
	got := SplitIDs([]string{"1, 2", "", "2,3 "})
	if strings.Join(got, "|") != "1|2|3" {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestLookupCategory_UnknownFallsBack(t *testing.T) {
	c := LookupCategory("Podcasts")
	if c.Key != "podcasts" || c.Name != "Podcasts" || c.Icon == "" {
		t.Fatalf("unexpected fallback descriptor: %+v", c)
	}
	if LookupCategory("books").Sheet != "Books" {
		t.Fatal("books should map to the Books tab")
	}
}
