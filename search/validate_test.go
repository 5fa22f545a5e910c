package search

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRejectsIllegalValues(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		tf       TimeFilter
		backend  string
		field    string
		value    string
		allowed  string
	}{
		{"year on videos", CategoryVideos, TimeYear, "auto", "timelimit", "y", "d, w, m"},
		{"year on news", CategoryNews, TimeYear, "", "timelimit", "y", "d, w, m"},
		{"bing for images", CategoryImages, TimeAny, "bing", "backend", "bing", "auto, all, duckduckgo"},
		{"second token bad", CategoryText, TimeDay, "duckduckgo, yandex", "backend", "yandex", "auto, all, duckduckgo, bing, brave, mojeek, wikipedia"},
		{"google for books", CategoryBooks, TimeAny, "google", "backend", "google", "auto, all, annasarchive"},
		{"undeclared category", Category("maps"), TimeAny, "duckduckgo", "backend", "duckduckgo", "auto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.category, tt.tf, tt.backend)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field || verr.Value != tt.value {
				t.Fatalf("unexpected error fields: %+v", verr)
			}
			msg := err.Error()
			if !strings.Contains(msg, `"`+tt.value+`"`) || !strings.Contains(msg, tt.allowed) {
				t.Fatalf("message %q should name %q and %q", msg, tt.value, tt.allowed)
			}
		})
	}
}

func TestValidateAcceptsLegalValues(t *testing.T) {
	tests := []struct {
		category Category
		tf       TimeFilter
		backend  string
	}{
		{CategoryText, TimeYear, "auto"},
		{CategoryText, TimeAny, "duckduckgo,bing, ,wikipedia"},
		{CategoryImages, TimeYear, "DuckDuckGo"},
		{CategoryVideos, TimeMonth, ""},
		{CategoryNews, TimeDay, "bing"},
		// books declare no time filters, so the check is skipped
		{CategoryBooks, TimeYear, "annasarchive"},
		{Category("maps"), TimeWeek, "auto"},
	}
	for _, tt := range tests {
		if err := Validate(tt.category, tt.tf, tt.backend); err != nil {
			t.Errorf("Validate(%s, %q, %q) = %v", tt.category, tt.tf, tt.backend, err)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseCategory("maps"); err == nil {
		t.Errorf("expected error for unknown category")
	}
	if c, err := ParseCategory(" News "); err != nil || c != CategoryNews {
		t.Errorf("ParseCategory: %v %v", c, err)
	}
	if s, err := ParseSafeSearch(""); err != nil || s != SafeSearchModerate {
		t.Errorf("empty safesearch should default to moderate, got %v %v", s, err)
	}
	if _, err := ParseSafeSearch("strict"); err == nil {
		t.Errorf("expected error for strict")
	}
	if tf, err := ParseTimeFilter("day"); err != nil || tf != TimeDay {
		t.Errorf("ParseTimeFilter(day) = %v %v", tf, err)
	}
	if _, err := ParseTimeFilter("h"); err == nil {
		t.Errorf("expected error for h")
	}
}
