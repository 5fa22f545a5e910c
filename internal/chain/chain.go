// Package chain runs a duckse search and scrapes the resulting pages with
// Firecrawl.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"duckse/internal/firecrawl"
)

var (
	ErrBinaryNotFound = errors.New("command 'duckse' not found")
	ErrNoURLs         = errors.New("no URLs in duckse results")
)

// SearchError is a duckse run that exited unsuccessfully.
type SearchError struct {
	Stderr string
	Err    error
}

func (e *SearchError) Error() string { return "duckse search failed: " + e.Err.Error() }
func (e *SearchError) Unwrap() error { return e.Err }

// Options mirrors the search-then-scrape flags.
type Options struct {
	Query       string
	Type        string
	MaxResults  int
	ScrapeLimit int
	Region      string
	TimeLimit   string
	Backend     string
	Binary      string

	Markdown   bool
	HTML       bool
	Screenshot bool
}

// BuildDuckseCommand returns the argv of the search step.
func BuildDuckseCommand(o Options) []string {
	bin := o.Binary
	if bin == "" {
		bin = "duckse"
	}
	argv := []string{
		bin, o.Query, "--json",
		"--type", o.Type,
		"--max-results", strconv.Itoa(o.MaxResults),
		"--region", o.Region,
		"--backend", o.Backend,
	}
	if o.TimeLimit != "" {
		argv = append(argv, "--timelimit", o.TimeLimit)
	}
	return argv
}

// ParseFormats lists the requested Firecrawl formats, markdown when none.
func ParseFormats(o Options) []string {
	var formats []string
	if o.Markdown {
		formats = append(formats, "markdown")
	}
	if o.HTML {
		formats = append(formats, "html")
	}
	if o.Screenshot {
		formats = append(formats, "screenshot")
	}
	if len(formats) == 0 {
		return []string{"markdown"}
	}
	return formats
}

// RunSearch executes argv and decodes its stdout.
func RunSearch(ctx context.Context, argv []string) ([]any, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrBinaryNotFound
		}
		return nil, &SearchError{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return ParseSearchOutput(stdout.Bytes())
}

func ParseSearchOutput(data []byte) ([]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("duckse output is not valid JSON: %w", err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unsupported duckse output: expected a list, got %T", v)
	}
	return list, nil
}

// ExtractURLs collects each item's url (or href) once, in order.
func ExtractURLs(items []any) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		var u string
		for _, k := range []string{"url", "href"} {
			if s, _ := m[k].(string); s != "" {
				u = s
				break
			}
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// Scraper is the part of the Firecrawl client the chain needs.
type Scraper interface {
	Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error)
}

// Entry is one scrape outcome. Failed scrapes carry URL, Error and Details.
type Entry struct {
	Success bool                `json:"success"`
	Data    *firecrawl.Document `json:"data,omitempty"`
	URL     string              `json:"url,omitempty"`
	Error   string              `json:"error,omitempty"`
	Details string              `json:"details,omitempty"`
}

// ScrapeAll scrapes urls one after another, waiting on limiter between
// calls when it is set. Per-URL failures become entries.
func ScrapeAll(ctx context.Context, s Scraper, limiter *rate.Limiter, urls, formats []string) ([]Entry, error) {
	log := zerolog.Ctx(ctx)
	entries := make([]Entry, 0, len(urls))
	for _, u := range urls {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return entries, err
			}
		}
		log.Info().Str("url", u).Msg("scraping")
		res, err := s.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:           u,
			ScrapeOptions: firecrawl.ScrapeOptions{Formats: formats, OnlyMainContent: true},
		})
		if err != nil {
			if ctx.Err() != nil {
				return entries, ctx.Err()
			}
			log.Warn().Err(err).Str("url", u).Msg("scrape failed")
			entries = append(entries, failure(u, err))
			continue
		}
		entries = append(entries, Entry{Success: res.Success, Data: res.Data, Error: res.Error})
	}
	return entries, nil
}

func failure(u string, err error) Entry {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return Entry{URL: u, Error: fmt.Sprintf("HTTP %d", apiErr.StatusCode), Details: apiErr.Body}
	}
	return Entry{URL: u, Error: "URL error", Details: err.Error()}
}

// Report is the combined output of a run.
type Report struct {
	Query         string   `json:"query"`
	DuckseCommand []string `json:"duckse_command"`
	URLs          []string `json:"urls"`
	Scraped       []Entry  `json:"scraped"`
}

// Search is the search step; RunSearch in production.
type Search func(ctx context.Context, argv []string) ([]any, error)

// Run performs the whole chain.
func Run(ctx context.Context, o Options, search Search, s Scraper, limiter *rate.Limiter) (*Report, error) {
	argv := BuildDuckseCommand(o)
	items, err := search(ctx, argv)
	if err != nil {
		return nil, err
	}
	urls := ExtractURLs(items)
	if o.ScrapeLimit >= 0 && len(urls) > o.ScrapeLimit {
		urls = urls[:o.ScrapeLimit]
	}
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	scraped, err := ScrapeAll(ctx, s, limiter, urls, ParseFormats(o))
	if err != nil {
		return nil, err
	}
	return &Report{Query: o.Query, DuckseCommand: argv, URLs: urls, Scraped: scraped}, nil
}

// WriteJSON writes the report indented, text kept verbatim.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

const previewLen = 300

// WriteText writes a short human summary of the report.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", r.Query)
	fmt.Fprintf(&b, "URLs selected: %d\n", len(r.URLs))
	for i, e := range r.Scraped {
		fallback := ""
		if i < len(r.URLs) {
			fallback = r.URLs[i]
		}
		if e.Success && e.Data != nil {
			title, src := "N/A", fallback
			if md := e.Data.Metadata; md != nil {
				if md.Title != "" {
					title = md.Title
				}
				if md.SourceURL != "" {
					src = md.SourceURL
				}
			}
			fmt.Fprintf(&b, "\n%d. %s\n", i+1, title)
			fmt.Fprintf(&b, "   URL: %s\n", src)
			if e.Data.Markdown != "" {
				fmt.Fprintf(&b, "   Preview: %s...\n", preview(e.Data.Markdown))
			}
			continue
		}
		u := e.URL
		if u == "" {
			u = fallback
		}
		msg := e.Error
		if msg == "" {
			msg = "unknown"
		}
		fmt.Fprintf(&b, "\n%d. Scrape failed\n", i+1)
		fmt.Fprintf(&b, "   URL: %s\n", u)
		fmt.Fprintf(&b, "   Error: %s\n", msg)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func preview(md string) string {
	r := []rune(md)
	if len(r) > previewLen {
		r = r[:previewLen]
	}
	return strings.ReplaceAll(string(r), "\n", " ")
}
