package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"duckse/search"
)

func TestExpandFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/article?id=7", http.StatusFound)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	results := []search.Result{
		search.NewResult("title", "a", "url", srv.URL+"/short"),
		search.NewResult("title", "b", "href", srv.URL+"/article?id=7"),
		search.NewResult("title", "no link"),
	}
	got := New(srv.Client(), 0).Expand(context.Background(), results)

	if v, _ := got[0].String("resolved_url"); v != srv.URL+"/article?id=7" {
		t.Fatalf("redirect not resolved, got %q", v)
	}
	if _, ok := got[1].Get("resolved_url"); ok {
		t.Fatalf("unchanged URL must not set resolved_url")
	}
	if got[2].Len() != 1 {
		t.Fatalf("result without a link should be untouched")
	}
}

func TestExpandPrefersURLOverHref(t *testing.T) {
	var asked []string
	r := &Resolver{Final: func(_ context.Context, raw string) (string, error) {
		asked = append(asked, raw)
		return "https://final.example/x", nil
	}}
	r.Expand(context.Background(), []search.Result{
		search.NewResult("href", "https://href.example", "url", "https://url.example"),
	})
	if len(asked) != 1 || asked[0] != "https://url.example" {
		t.Fatalf("expected url to be resolved, asked %v", asked)
	}
}

func TestExpandIgnoresHostlessAndFailures(t *testing.T) {
	r := &Resolver{Final: func(_ context.Context, raw string) (string, error) {
		switch raw {
		case "https://a.example":
			return "/relative/only", nil
		case "https://b.example":
			return "", errors.New("connection refused")
		}
		return raw, nil
	}}
	got := r.Expand(context.Background(), []search.Result{
		search.NewResult("url", "https://a.example"),
		search.NewResult("url", "https://b.example"),
	})
	for i, res := range got {
		if _, ok := res.Get("resolved_url"); ok {
			t.Fatalf("result %d should not carry resolved_url", i)
		}
	}
}

func TestExpandAppliesTimeout(t *testing.T) {
	r := &Resolver{Final: func(ctx context.Context, _ string) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("resolution should run under a deadline")
		}
		return "https://elsewhere.example", nil
	}}
	r.Expand(context.Background(), []search.Result{search.NewResult("url", "https://a.example")})
}
