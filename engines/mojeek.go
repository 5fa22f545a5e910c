package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"duckse/search"
)

// Mojeek has no recency filter; a time filter is accepted and ignored.
type Mojeek struct {
	client  *http.Client
	baseURL string
}

func NewMojeek(client *http.Client) *Mojeek {
	return &Mojeek{client: client, baseURL: "https://www.mojeek.com"}
}

func (m *Mojeek) Name() string { return "mojeek" }

func (m *Mojeek) Text(ctx context.Context, q search.TextQuery) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*10+1))
	}
	if q.SafeSearch == search.SafeSearchOn {
		params.Set("safe", "1")
	}
	if country, lang := splitRegion(q.Region); country != "" {
		params.Set("arc", country)
		params.Set("lb", lang)
	}

	doc, err := fetchDocument(ctx, m.client, m.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("mojeek: %w", err)
	}
	results := make([]search.Result, 0)
	doc.Find("ul.results-standard > li").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.title").First()
		href := absolute(nil, link.AttrOr("href", ""))
		title := clean(link.Text())
		if href == "" || title == "" {
			return
		}
		results = append(results, search.NewResult("title", title, "href", href, "body", clean(s.Find("p.s").First().Text())))
	})
	return results, nil
}
