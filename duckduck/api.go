package duckduck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"duckse/search"
)

// Client talks to DuckDuckGo's html frontend for text results and to the
// JSON endpoints behind duckduckgo.com for images, videos and news.
type Client struct {
	htmlURL      string
	siteURL      string
	MaxRetries   int
	InitialDelay time.Duration
	Backoff      time.Duration
	client       *http.Client

	mu   sync.Mutex
	vqds map[string]string
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		htmlURL:    "https://html.duckduckgo.com/html/",
		siteURL:    "https://duckduckgo.com",
		MaxRetries: 3,
		Backoff:    2 * time.Second,
		client:     httpClient,
		vqds:       make(map[string]string),
	}
}

func (c *Client) Name() string { return "duckduckgo" }

// Text runs a web search against the html frontend. DuckDuckGo answers 202
// when it wants the caller to slow down; those responses are retried with
// exponential back-off.
func (c *Client) Text(ctx context.Context, q search.TextQuery) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if q.Region != "" {
		params.Set("kl", q.Region)
	}
	params.Set("kp", textSafeSearch(q.SafeSearch))
	if q.TimeFilter != search.TimeAny {
		params.Set("df", string(q.TimeFilter))
	}
	if q.Page > 1 {
		params.Set("s", strconv.Itoa(10+(q.Page-2)*15))
	}
	queryURL := c.htmlURL + "?" + params.Encode()

	if c.InitialDelay > 0 {
		if err := sleep(ctx, c.InitialDelay); err != nil {
			return nil, err
		}
	}

	var resp *http.Response
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Referer", "https://html.duckduckgo.com/")
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			break
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < 300 {
			if attempt == c.MaxRetries {
				return []search.Result{}, nil
			}
			zerolog.Ctx(ctx).Debug().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("duckduckgo asked to retry")
			if err := sleep(ctx, c.Backoff*(1<<attempt)); err != nil {
				return nil, err
			}
			continue
		}
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	results := make([]search.Result, 0)
	doc.Find(".results .result").Each(func(i int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		if r, ok := collectResult(s); ok {
			results = append(results, r)
		}
	})
	return results, nil
}

func collectResult(s *goquery.Selection) (search.Result, bool) {
	link := s.Find(".result__a").First()
	title := clean(link.Text())
	href := unwrapRedirect(link.AttrOr("href", ""))
	if title == "" || href == "" {
		return search.Result{}, false
	}
	if u, err := url.Parse(href); err != nil || u.Host == "" || strings.HasSuffix(u.Host, "duckduckgo.com") {
		return search.Result{}, false
	}
	body := clean(s.Find(".result__snippet").Text())
	return search.NewResult("title", title, "href", href, "body", body), true
}

// unwrapRedirect turns //duckduckgo.com/l/?uddg=<target>&rut=... into <target>.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.Contains(href, "uddg=") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("uddg")
}

func textSafeSearch(s search.SafeSearch) string {
	switch s {
	case search.SafeSearchOn:
		return "1"
	case search.SafeSearchOff:
		return "-2"
	}
	return "-1"
}

func clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
