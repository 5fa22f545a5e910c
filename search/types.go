package search

import (
	"fmt"
	"strings"
)

// Category is the kind of search requested.
type Category string

const (
	CategoryText   Category = "text"
	CategoryImages Category = "images"
	CategoryVideos Category = "videos"
	CategoryNews   Category = "news"
	CategoryBooks  Category = "books"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryText, CategoryImages, CategoryVideos, CategoryNews, CategoryBooks}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid search type %q (choose from %s)", s, joinCategories(Categories))
}

// SafeSearch is the adult-content filter level.
type SafeSearch string

const (
	SafeSearchOn       SafeSearch = "on"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchOff      SafeSearch = "off"
)

func ParseSafeSearch(s string) (SafeSearch, error) {
	switch v := SafeSearch(strings.ToLower(strings.TrimSpace(s))); v {
	case SafeSearchOn, SafeSearchModerate, SafeSearchOff:
		return v, nil
	case "":
		return SafeSearchModerate, nil
	}
	return "", fmt.Errorf("invalid safesearch %q (choose from on, moderate, off)", s)
}

// TimeFilter is a coarse recency window. The zero value means no filter.
type TimeFilter string

const (
	TimeAny   TimeFilter = ""
	TimeDay   TimeFilter = "d"
	TimeWeek  TimeFilter = "w"
	TimeMonth TimeFilter = "m"
	TimeYear  TimeFilter = "y"
)

// ParseTimeFilter accepts the short form (d, w, m, y) or the long form
// (day, week, month, year). An empty string is TimeAny.
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TimeAny, nil
	case "d", "day":
		return TimeDay, nil
	case "w", "week":
		return TimeWeek, nil
	case "m", "month":
		return TimeMonth, nil
	case "y", "year":
		return TimeYear, nil
	}
	return "", fmt.Errorf("invalid timelimit %q (choose from d, w, m, y)", s)
}

// Word returns the capitalised word form used by some engines ("Day", "Week", ...).
func (t TimeFilter) Word() string {
	switch t {
	case TimeDay:
		return "Day"
	case TimeWeek:
		return "Week"
	case TimeMonth:
		return "Month"
	case TimeYear:
		return "Year"
	}
	return ""
}

// ImageFilters are only sent with image searches.
type ImageFilters struct {
	Size    string `json:"size,omitempty"`
	Color   string `json:"color,omitempty"`
	Type    string `json:"type,omitempty"`
	Layout  string `json:"layout,omitempty"`
	License string `json:"license,omitempty"`
}

// VideoFilters are only sent with video searches.
type VideoFilters struct {
	Resolution string `json:"resolution,omitempty"`
	Duration   string `json:"duration,omitempty"`
	License    string `json:"license,omitempty"`
}

// Request is one fully parsed search invocation. It is passed by value and
// never modified after construction.
type Request struct {
	Query      string
	Category   Category
	Region     string
	SafeSearch SafeSearch
	TimeFilter TimeFilter
	Page       int
	MaxResults int
	Backend    string
	Images     ImageFilters
	Videos     VideoFilters
}

// Backends splits the comma separated backend selector, dropping blanks.
func (r Request) Backends() []string {
	return splitBackends(r.Backend)
}

func splitBackends(selector string) []string {
	var out []string
	for _, tok := range strings.Split(selector, ",") {
		if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func joinCategories(cs []Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
