package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.WarnLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestBuildTeesToFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "duckse.log")
	log, closer, err := build(&stderr, false, path, zerolog.InfoLevel)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug().Msg("hidden")
	log.Info().Str("backend", "bing").Msg("querying")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(stderr.String(), "hidden") {
		t.Fatalf("debug entry should be filtered: %s", stderr.String())
	}
	if !strings.Contains(stderr.String(), `"backend":"bing"`) {
		t.Fatalf("expected a JSON line on stderr, got %s", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"querying"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}
