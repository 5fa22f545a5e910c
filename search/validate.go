package search

import (
	"fmt"
	"slices"
	"strings"
)

// Backend selectors that expand to every engine of a category.
const (
	BackendAuto = "auto"
	BackendAll  = "all"
)

// AllowedBackends lists the legal backend tokens per category.
var AllowedBackends = map[Category][]string{
	CategoryText:   {BackendAuto, BackendAll, "duckduckgo", "bing", "brave", "mojeek", "wikipedia"},
	CategoryImages: {BackendAuto, BackendAll, "duckduckgo"},
	CategoryVideos: {BackendAuto, BackendAll, "duckduckgo"},
	CategoryNews:   {BackendAuto, BackendAll, "duckduckgo", "bing"},
	CategoryBooks:  {BackendAuto, BackendAll, "annasarchive"},
}

// AllowedTimeFilters lists the legal time filters per category. Categories
// missing from the table accept any filter.
var AllowedTimeFilters = map[Category][]TimeFilter{
	CategoryText:   {TimeDay, TimeWeek, TimeMonth, TimeYear},
	CategoryImages: {TimeDay, TimeWeek, TimeMonth, TimeYear},
	CategoryVideos: {TimeDay, TimeWeek, TimeMonth},
	CategoryNews:   {TimeDay, TimeWeek, TimeMonth},
}

var defaultBackends = []string{BackendAuto}

// ValidationError reports an option value that is not legal for a category.
type ValidationError struct {
	Field    string
	Value    string
	Category Category
	Allowed  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q for search type %q (allowed: %s)",
		e.Field, e.Value, e.Category, strings.Join(e.Allowed, ", "))
}

// BackendsFor returns the allowed backend tokens for c.
func BackendsFor(c Category) []string {
	if allowed, ok := AllowedBackends[c]; ok {
		return allowed
	}
	return defaultBackends
}

// Validate checks the time filter and backend selector against the
// per-category allow-lists.
func Validate(c Category, tf TimeFilter, backend string) error {
	if tf != TimeAny {
		if allowed, ok := AllowedTimeFilters[c]; ok && !slices.Contains(allowed, tf) {
			names := make([]string, len(allowed))
			for i, a := range allowed {
				names[i] = string(a)
			}
			return &ValidationError{Field: "timelimit", Value: string(tf), Category: c, Allowed: names}
		}
	}

	allowed := BackendsFor(c)
	for _, tok := range strings.Split(backend, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !slices.Contains(allowed, strings.ToLower(tok)) {
			return &ValidationError{Field: "backend", Value: tok, Category: c, Allowed: allowed}
		}
	}
	return nil
}

func (r Request) Validate() error {
	return Validate(r.Category, r.TimeFilter, r.Backend)
}
