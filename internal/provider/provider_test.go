package provider

import (
	"slices"
	"testing"

	"duckse/internal/transport"
	"duckse/search"
)

func TestOpenRegistersEveryAllowedBackend(t *testing.T) {
	m, err := Open(transport.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	for _, c := range search.Categories {
		names := m.Names(c)
		for _, b := range search.BackendsFor(c) {
			if b == search.BackendAuto || b == search.BackendAll {
				continue
			}
			if !slices.Contains(names, b) {
				t.Errorf("%s: backend %q allowed but not registered (have %v)", c, b, names)
			}
		}
		if len(names) == 0 {
			t.Errorf("%s: no engines registered", c)
		}
	}
	if got := m.Names(search.CategoryText)[0]; got != "duckduckgo" {
		t.Errorf("duckduckgo should be preferred for text, got %q", got)
	}
}

func TestOpenRejectsBadProxy(t *testing.T) {
	if _, err := Open(transport.Options{Proxy: "ftp://example.com"}); err == nil {
		t.Fatalf("expected error for unsupported proxy scheme")
	}
}
