package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"duckse/search"
)

// Wikipedia uses the MediaWiki search API of the wiki matching the region's
// language. Articles carry no date, so time-filtered searches return nothing
// and the next engine answers instead.
type Wikipedia struct {
	client *http.Client
	// apiURL and articleURL take the language code as their only verb.
	apiURL     string
	articleURL string
}

func NewWikipedia(client *http.Client) *Wikipedia {
	return &Wikipedia{
		client:     client,
		apiURL:     "https://%s.wikipedia.org/w/api.php",
		articleURL: "https://%s.wikipedia.org/wiki/",
	}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) Text(ctx context.Context, q search.TextQuery) ([]search.Result, error) {
	if q.TimeFilter != search.TimeAny {
		return []search.Result{}, nil
	}
	_, lang := splitRegion(q.Region)
	if lang == "" {
		lang = "en"
	}
	limit := q.MaxResults
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("format", "json")
	params.Set("utf8", "1")
	params.Set("srsearch", q.Query)
	params.Set("srlimit", strconv.Itoa(limit))
	if q.Page > 1 {
		params.Set("sroffset", strconv.Itoa((q.Page-1)*limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(w.apiURL, lang)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: unexpected status code %d", resp.StatusCode)
	}

	var payload struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("wikipedia: decode: %w", err)
	}

	base := fmt.Sprintf(w.articleURL, lang)
	results := make([]search.Result, 0, len(payload.Query.Search))
	for _, hit := range payload.Query.Search {
		if hit.Title == "" {
			continue
		}
		href := base + url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_"))
		results = append(results, search.NewResult("title", hit.Title, "href", href, "body", stripTags(hit.Snippet)))
	}
	return results, nil
}

func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return clean(fragment)
	}
	return clean(doc.Text())
}
