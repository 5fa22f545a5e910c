// Package engines holds the non-DuckDuckGo search backends. Each one issues
// a single request per page and maps the response into search.Result
// records without reordering anything.
package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func fetchDocument(ctx context.Context, client *http.Client, rawURL string, header http.Header) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitRegion turns "us-en" into ("us", "en"). "wt-wt" and malformed values
// give empty parts.
func splitRegion(region string) (country, lang string) {
	parts := strings.SplitN(strings.ToLower(region), "-", 2)
	if len(parts) != 2 || parts[0] == "wt" {
		return "", ""
	}
	return parts[0], parts[1]
}

// absolute resolves href against base, dropping anything that is not http(s).
func absolute(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
