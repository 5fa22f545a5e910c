package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("DUCKSE_HOME", t.TempDir())
	cfg, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Region != "us-en" || cfg.MaxResults != 10 || cfg.ExpandTimeout != 6*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Firecrawl.APIKeyEnv != "FIRECRAWL_API_KEY" || cfg.RewriteRules != nil {
		t.Fatalf("unexpected firecrawl defaults %+v", cfg.Firecrawl)
	}
}

const sample = `
region: id-id
timeout: 3s
firecrawl:
  poll_interval: 500ms
rewrite_rules:
  - name: weather
    category: text
    markers:
      - [cuaca]
      - [jakarta]
    rewrite:
      query: cuaca jakarta
      category: news
      region: id-id
      timelimit: d
`

func TestLoadFileEnvAndFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DUCKSE_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DUCKSE_MAX_RESULTS", "25")
	t.Setenv("DUCKSE_FIRECRAWL_API_URL", "http://localhost:3002/v1")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("region", "", "")
	if err := fs.Parse([]string{"--region", "de-de"}); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	if err := l.BindFlag("region", fs.Lookup("region")); err != nil {
		t.Fatal(err)
	}
	cfg, err := l.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Region != "de-de" {
		t.Errorf("flag should win, got region %q", cfg.Region)
	}
	if cfg.MaxResults != 25 {
		t.Errorf("env should override default, got %d", cfg.MaxResults)
	}
	if cfg.Timeout != 3*time.Second || cfg.Firecrawl.PollInterval != 500*time.Millisecond {
		t.Errorf("durations from file not decoded: %+v", cfg)
	}
	if cfg.Firecrawl.APIURL != "http://localhost:3002/v1" {
		t.Errorf("nested env key not applied: %q", cfg.Firecrawl.APIURL)
	}
	if len(cfg.RewriteRules) != 1 {
		t.Fatalf("expected one rewrite rule, got %d", len(cfg.RewriteRules))
	}
	r := cfg.RewriteRules[0]
	if r.Name != "weather" || len(r.Markers) != 2 || r.Markers[1][0] != "jakarta" || r.Rewrite.TimeFilter != "d" {
		t.Errorf("unexpected rule %+v", r)
	}
	if l.Used() != filepath.Join(home, "config.yaml") {
		t.Errorf("unexpected config file %q", l.Used())
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("an explicit config path must exist")
	}
}

func TestBindUnknownFlag(t *testing.T) {
	if err := NewLoader().BindFlag("region", nil); err == nil {
		t.Fatalf("expected error for a nil flag")
	}
}
