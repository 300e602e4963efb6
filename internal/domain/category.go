package domain

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CategoryInfo describes how a category is displayed and where it is read from.
type CategoryInfo struct {
	Key   string
	Name  string
	Icon  string
	Sheet string // spreadsheet tab holding the items; empty for derived categories
	Verb  string // past tense used in summaries
}

// Derived categories have no tab of their own.
const (
	CategoryReports  = "reports"
	CategoryEpisodes = "episodes"
)

var categories = map[string]CategoryInfo{
	"books":          {Key: "books", Name: "Books", Icon: "📚", Sheet: "Books", Verb: "read"},
	"movies":         {Key: "movies", Name: "Movies", Icon: "🎬", Sheet: "Movies", Verb: "watched"},
	"animes":         {Key: "animes", Name: "Anime", Icon: "📺", Sheet: "Animes", Verb: "finished"},
	"manga":          {Key: "manga", Name: "Manga", Icon: "📖", Sheet: "Manga", Verb: "read"},
	"articles":       {Key: "articles", Name: "Articles", Icon: "📰", Sheet: "Articles", Verb: "read"},
	"wishlist":       {Key: "wishlist", Name: "Wishlist", Icon: "🎁", Sheet: "Wishlist", Verb: "got"},
	"activities":     {Key: "activities", Name: "Activities", Icon: "🏃", Sheet: "Activities", Verb: "completed"},
	CategoryReports:  {Key: CategoryReports, Name: "Reports", Icon: "📝", Verb: "filed"},
	CategoryEpisodes: {Key: CategoryEpisodes, Name: "Episodes", Icon: "🎞️", Verb: "watched"},
}

// LookupCategory returns the descriptor for key. Unknown keys get a generic
// descriptor built from the key itself.
func LookupCategory(key string) CategoryInfo {
	key = strings.ToLower(strings.TrimSpace(key))
	if c, ok := categories[key]; ok {
		return c
	}
	return CategoryInfo{Key: key, Name: titleCase(key), Icon: "📌", Verb: "logged"}
}

// ItemCategories returns the categories backed by a spreadsheet tab, sorted by key.
func ItemCategories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categories))
	for _, c := range categories {
		if c.Sheet != "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NormalizeCategory trims and lowercases a category key. Any non-empty string is valid.
func NormalizeCategory(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	return key, nil
}

// Label renders "📚 Books".
func (c CategoryInfo) Label() string {
	return c.Icon + " " + c.Name
}

func titleCase(s string) string {
	if s == "" {
		return "Other"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
