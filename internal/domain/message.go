package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Discord embed limits.
const (
	MaxTitleLen       = 256
	MaxDescriptionLen = 4096
	MaxFieldNameLen   = 256
	MaxFieldValueLen  = 1024
	MaxFooterLen      = 2048
	MaxFields         = 25
	MaxEmbedTotal     = 6000
)

// Embed colours.
const (
	ColorInfo    = 0x3498DB
	ColorSuccess = 0x2ECC71
	ColorWarning = 0xF1C40F
	ColorError   = 0xE74C3C
	ColorGoal    = 0x9B59B6
	ColorMorning = 0xF39C12
)

const (
	blankValue   = "\u200b"
	defaultTitle = "Notification"
	ellipsis     = "…"
)

// Field is one named block of a message.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NotificationMessage is the structured payload sent to the output channel.
type NotificationMessage struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Fields      []Field   `json:"fields,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AddField appends a field and returns the message for chaining.
func (m *NotificationMessage) AddField(name, value string, inline bool) *NotificationMessage {
	m.Fields = append(m.Fields, Field{Name: name, Value: value, Inline: inline})
	return m
}

// Fit returns a copy that satisfies the platform limits. Oversized parts are
// truncated, never rejected.
func (m NotificationMessage) Fit() NotificationMessage {
	out := m
	out.Title = Truncate(strings.TrimSpace(m.Title), MaxTitleLen)
	if out.Title == "" {
		out.Title = defaultTitle
	}
	out.Description = Truncate(m.Description, MaxDescriptionLen)
	out.Footer = Truncate(m.Footer, MaxFooterLen)

	fields := m.Fields
	if len(fields) > MaxFields {
		fields = fields[:MaxFields]
	}
	out.Fields = make([]Field, 0, len(fields))
	for _, f := range fields {
		f.Name = Truncate(strings.TrimSpace(f.Name), MaxFieldNameLen)
		if f.Name == "" {
			f.Name = blankValue
		}
		f.Value = Truncate(strings.TrimSpace(f.Value), MaxFieldValueLen)
		if f.Value == "" {
			f.Value = blankValue
		}
		out.Fields = append(out.Fields, f)
	}

	// Whole-embed budget: drop trailing fields first, then shorten the description.
	for out.size() > MaxEmbedTotal && len(out.Fields) > 0 {
		out.Fields = out.Fields[:len(out.Fields)-1]
	}
	if over := out.size() - MaxEmbedTotal; over > 0 {
		keep := utf8.RuneCountInString(out.Description) - over
		if keep < 0 {
			keep = 0
		}
		out.Description = Truncate(out.Description, keep)
	}
	return out
}

func (m NotificationMessage) size() int {
	n := utf8.RuneCountInString(m.Title) + utf8.RuneCountInString(m.Description) + utf8.RuneCountInString(m.Footer)
	for _, f := range m.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return n
}

// Truncate shortens s to at most max runes, ending with "…" when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + ellipsis
}
