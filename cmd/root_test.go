package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"duckse/internal/transport"
	"duckse/search"
)

type stubEngine struct {
	text []search.Result
	news []search.Result

	lastText *search.TextQuery
	lastNews *search.NewsQuery
}

func (s *stubEngine) Name() string { return "duckduckgo" }

func (s *stubEngine) Text(_ context.Context, q search.TextQuery) ([]search.Result, error) {
	s.lastText = &q
	return s.text, nil
}

func (s *stubEngine) News(_ context.Context, q search.NewsQuery) ([]search.Result, error) {
	s.lastNews = &q
	return s.news, nil
}

// withStub routes searches to e and gives every test a clean home dir and
// default flag values.
func withStub(t *testing.T, e *stubEngine) *int {
	t.Helper()
	t.Setenv("DUCKSE_HOME", t.TempDir())
	opened := 0
	orig := openProvider
	openProvider = func(transport.Options) search.Opener {
		return func() (search.Provider, error) {
			opened++
			return search.NewMulti(e), nil
		}
	}
	t.Cleanup(func() {
		openProvider = orig
		resetFlags(RootCmd.Flags())
		resetFlags(RootCmd.PersistentFlags())
	})
	return &opened
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Value.Type() == "stringSlice" {
			return
		}
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	if args == nil {
		// nil would make cobra fall back to os.Args
		args = []string{}
	}
	RootCmd.SetArgs(args)
	err := run(ctx)
	return out.String(), err
}

func TestSearchRewritesIndonesianNews(t *testing.T) {
	e := &stubEngine{news: []search.Result{
		search.NewResult("date", "2024-05-01T10:00:00Z", "title", "Judul Berita", "url", "https://news.example/a", "source", "Kompas"),
	}}
	withStub(t, e)

	out, err := execute(t, "--json", "beritakan", "di", "indonesia", "hari", "ini")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if e.lastNews == nil {
		t.Fatalf("the rewritten query should run as a news search")
	}
	q := e.lastNews
	if q.Query != "berita indonesia" || q.Region != "id-id" || q.TimeFilter != search.TimeDay {
		t.Fatalf("unexpected news query %+v", q)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "[\n  {\n    \"date\"") {
		t.Fatalf("field order should follow the engine:\n%s", out)
	}
}

func TestSearchRejectsInvalidOptions(t *testing.T) {
	opened := withStub(t, &stubEngine{})

	_, err := execute(t, "--type", "videos", "--timelimit", "y", "cats")
	var verr *search.ValidationError
	if !errors.As(err, &verr) || verr.Field != "timelimit" {
		t.Fatalf("expected a timelimit validation error, got %v", err)
	}
	if *opened != 0 {
		t.Fatalf("provider must not be opened for invalid input")
	}

	resetFlags(RootCmd.Flags())
	if _, err := execute(t, "--backend", "yandex", "cats"); !errors.As(err, &verr) || verr.Value != "yandex" {
		t.Fatalf("expected a backend validation error, got %v", err)
	}

	resetFlags(RootCmd.Flags())
	if _, err := execute(t, "--type", "maps", "cats"); err == nil || !strings.Contains(err.Error(), "invalid search type") {
		t.Fatalf("expected a search type error, got %v", err)
	}
}

func TestRunClosesLogAfterFailedCommand(t *testing.T) {
	withStub(t, &stubEngine{})

	if _, err := execute(t, "--type", "maps", "cats"); err == nil {
		t.Fatalf("expected the command to fail")
	}
	if logCloser != nil {
		t.Fatalf("log closer left open after a failed run")
	}
}

func TestSearchPrettyOutput(t *testing.T) {
	e := &stubEngine{text: []search.Result{
		search.NewResult("title", "Go", "href", "https://go.dev", "body", "The Go language"),
	}}
	withStub(t, e)

	out, err := execute(t, "--max-results", "3", "golang")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "1. Go\n   URL: https://go.dev\n   The Go language\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if e.lastText.MaxResults != 3 || e.lastText.Query != "golang" {
		t.Fatalf("unexpected text query %+v", e.lastText)
	}

	e.text = nil
	out, err = execute(t, "nothing here")
	if err != nil {
		t.Fatal(err)
	}
	if out != "No results found.\n" {
		t.Fatalf("got %q", out)
	}
}

func TestSearchPromptsForQuery(t *testing.T) {
	e := &stubEngine{}
	withStub(t, e)
	origTTY, origAsk := stdinIsTerminal, askQuery
	t.Cleanup(func() { stdinIsTerminal, askQuery = origTTY, origAsk })

	stdinIsTerminal = func() bool { return false }
	if _, err := execute(t); !errors.Is(err, errNoQuery) {
		t.Fatalf("expected errNoQuery without a terminal, got %v", err)
	}

	stdinIsTerminal = func() bool { return true }
	askQuery = func() (string, error) { return "  golang generics ", nil }
	if _, err := execute(t); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if e.lastText == nil || e.lastText.Query != "golang generics" {
		t.Fatalf("prompted query not used: %+v", e.lastText)
	}
}
