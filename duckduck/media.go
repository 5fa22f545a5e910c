package duckduck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"duckse/search"
)

// ErrNoVQD means duckduckgo.com did not hand out a search token for the query.
var ErrNoVQD = errors.New("duckduckgo: vqd token not found")

var vqdPattern = regexp.MustCompile(`vqd=["']?([0-9-]+)`)

// vqd fetches (and caches) the per-query token the JSON endpoints require.
func (c *Client) vqd(ctx context.Context, query string) (string, error) {
	c.mu.Lock()
	token, ok := c.vqds[query]
	c.mu.Unlock()
	if ok {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+"/?"+url.Values{"q": {query}}.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vqd: unexpected status code %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	m := vqdPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoVQD
	}
	token = string(m[1])

	c.mu.Lock()
	c.vqds[query] = token
	c.mu.Unlock()
	return token, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Referer", c.siteURL+"/")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", endpoint, err)
	}
	return nil
}

func (c *Client) mediaParams(ctx context.Context, q search.Common) (url.Values, error) {
	token, err := c.vqd(ctx, q.Query)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("l", regionOrWorld(q.Region))
	params.Set("o", "json")
	params.Set("q", q.Query)
	params.Set("vqd", token)
	return params, nil
}

func (c *Client) Images(ctx context.Context, q search.ImagesQuery) ([]search.Result, error) {
	params, err := c.mediaParams(ctx, q.Common)
	if err != nil {
		return nil, err
	}
	f := q.Filters
	params.Set("f", fmt.Sprintf("time:%s,size:%s,color:%s,type:%s,layout:%s,license:%s",
		q.TimeFilter.Word(), f.Size, f.Color, f.Type, f.Layout, f.License))
	params.Set("p", mediaSafeSearch(q.SafeSearch))
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*100))
	}

	var payload struct {
		Results []struct {
			Title     string `json:"title"`
			Image     string `json:"image"`
			Thumbnail string `json:"thumbnail"`
			URL       string `json:"url"`
			Height    int    `json:"height"`
			Width     int    `json:"width"`
			Source    string `json:"source"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/i.js", params, &payload); err != nil {
		return nil, err
	}
	results := make([]search.Result, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, search.NewResult(
			"title", r.Title,
			"image", r.Image,
			"thumbnail", r.Thumbnail,
			"url", r.URL,
			"height", r.Height,
			"width", r.Width,
			"source", r.Source,
		))
	}
	return results, nil
}

// Videos returns the endpoint's records as they come, field order included.
func (c *Client) Videos(ctx context.Context, q search.VideosQuery) ([]search.Result, error) {
	params, err := c.mediaParams(ctx, q.Common)
	if err != nil {
		return nil, err
	}
	f := q.Filters
	params.Set("f", fmt.Sprintf("publishedAfter:%s,videoDefinition:%s,videoDuration:%s,videoLicense:%s",
		q.TimeFilter, f.Resolution, f.Duration, f.License))
	params.Set("p", mediaSafeSearch(q.SafeSearch))
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*60))
	}

	var payload struct {
		Results []search.Result `json:"results"`
	}
	if err := c.getJSON(ctx, "/v.js", params, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return []search.Result{}, nil
	}
	return payload.Results, nil
}

func (c *Client) News(ctx context.Context, q search.NewsQuery) ([]search.Result, error) {
	params, err := c.mediaParams(ctx, q.Common)
	if err != nil {
		return nil, err
	}
	params.Set("noamp", "1")
	params.Set("p", textSafeSearch(q.SafeSearch))
	if q.TimeFilter != search.TimeAny {
		params.Set("df", string(q.TimeFilter))
	}
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*30))
	}

	var payload struct {
		Results []struct {
			Date    int64  `json:"date"`
			Title   string `json:"title"`
			Excerpt string `json:"excerpt"`
			URL     string `json:"url"`
			Image   string `json:"image"`
			Source  string `json:"source"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/news.js", params, &payload); err != nil {
		return nil, err
	}
	results := make([]search.Result, 0, len(payload.Results))
	for _, r := range payload.Results {
		var date string
		if r.Date > 0 {
			date = time.Unix(r.Date, 0).UTC().Format(time.RFC3339)
		}
		results = append(results, search.NewResult(
			"date", date,
			"title", r.Title,
			"body", r.Excerpt,
			"url", r.URL,
			"image", r.Image,
			"source", r.Source,
		))
	}
	return results, nil
}

func mediaSafeSearch(s search.SafeSearch) string {
	if s == search.SafeSearchOff {
		return "-1"
	}
	return "1"
}

func regionOrWorld(region string) string {
	if region == "" {
		return "wt-wt"
	}
	return region
}
