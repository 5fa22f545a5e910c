// Package firecrawl is a small client for the Firecrawl v1 HTTP API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL      = "https://api.firecrawl.dev/v1"
	DefaultAPIKeyEnv    = "FIRECRAWL_API_KEY"
	DefaultPollInterval = 2 * time.Second
)

// ErrMissingAPIKey is returned before any request when no token is available.
var ErrMissingAPIKey = errors.New("firecrawl API key not set")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, payload.Error)
	}
	return fmt.Sprintf("firecrawl: HTTP %d", e.StatusCode)
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a client for baseURL (DefaultBaseURL when empty). A nil
// httpClient uses a plain client with a one minute timeout.
func New(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}, nil
}

// FromEnv reads the token from the environment variable envName
// (DefaultAPIKeyEnv when empty).
func FromEnv(envName, baseURL string, httpClient *http.Client) (*Client, error) {
	if envName == "" {
		envName = DefaultAPIKeyEnv
	}
	c, err := New(os.Getenv(envName), baseURL, httpClient)
	if errors.Is(err, ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: export %s", err, envName)
	}
	return c, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	zerolog.Ctx(ctx).Debug().Str("method", method).Str("path", path).Msg("firecrawl request")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// Metadata is the page information Firecrawl attaches to a document.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Document is one scraped page.
type Document struct {
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Markdown    string    `json:"markdown,omitempty"`
	HTML        string    `json:"html,omitempty"`
	RawHTML     string    `json:"rawHtml,omitempty"`
	Screenshot  string    `json:"screenshot,omitempty"`
	Links       []string  `json:"links,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

type ScrapeOptions struct {
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Timeout         int      `json:"timeout,omitempty"`
}

type ScrapeRequest struct {
	URL string `json:"url"`
	ScrapeOptions
}

type ScrapeResponse struct {
	Success bool      `json:"success"`
	Data    *Document `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Scrape fetches one page. Formats default to markdown.
func (c *Client) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	if len(req.Formats) == 0 {
		req.Formats = []string{"markdown"}
	}
	var out ScrapeResponse
	if err := c.do(ctx, http.MethodPost, "/scrape", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type SearchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit,omitempty"`
	Lang          string         `json:"lang,omitempty"`
	Country       string         `json:"country,omitempty"`
	TBS           string         `json:"tbs,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

type SearchResponse struct {
	Success bool       `json:"success"`
	Data    []Document `json:"data"`
	Warning string     `json:"warning,omitempty"`
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type CrawlRequest struct {
	URL           string         `json:"url"`
	Limit         int            `json:"limit,omitempty"`
	MaxDepth      int            `json:"maxDepth,omitempty"`
	IncludePaths  []string       `json:"includePaths,omitempty"`
	ExcludePaths  []string       `json:"excludePaths,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

type CrawlJob struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url,omitempty"`
}

// Crawl states reported by CrawlStatus.
const (
	StatusScraping  = "scraping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type CrawlStatus struct {
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	CreditsUsed int        `json:"creditsUsed"`
	ExpiresAt   string     `json:"expiresAt,omitempty"`
	Next        string     `json:"next,omitempty"`
	Data        []Document `json:"data"`
}

// Done reports whether the crawl reached a terminal state.
func (s *CrawlStatus) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (c *Client) StartCrawl(ctx context.Context, req CrawlRequest) (*CrawlJob, error) {
	var out CrawlJob
	if err := c.do(ctx, http.MethodPost, "/crawl", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("firecrawl: crawl started without an id")
	}
	return &out, nil
}

func (c *Client) CrawlStatus(ctx context.Context, id string) (*CrawlStatus, error) {
	var out CrawlStatus
	if err := c.do(ctx, http.MethodGet, "/crawl/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelCrawl(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/crawl/"+url.PathEscape(id), nil, nil)
}

// WaitCrawl polls CrawlStatus every interval until the crawl is done or ctx
// ends.
func (c *Client) WaitCrawl(ctx context.Context, id string, interval time.Duration) (*CrawlStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := zerolog.Ctx(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.CrawlStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("id", id).Str("status", st.Status).Int("completed", st.Completed).Int("total", st.Total).Msg("crawl status")
		if st.Done() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}
