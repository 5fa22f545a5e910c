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

// AnnasArchive searches the book records of annas-archive.org.
type AnnasArchive struct {
	client  *http.Client
	baseURL string
}

func NewAnnasArchive(client *http.Client) *AnnasArchive {
	return &AnnasArchive{client: client, baseURL: "https://annas-archive.org"}
}

func (a *AnnasArchive) Name() string { return "annasarchive" }

func (a *AnnasArchive) Books(ctx context.Context, q search.BooksQuery) ([]search.Result, error) {
	base, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", q.Query)
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}

	doc, err := fetchDocument(ctx, a.client, a.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("annasarchive: %w", err)
	}
	results := make([]search.Result, 0)
	doc.Find("div.record-list-outer > div").Each(func(_ int, s *goquery.Selection) {
		title := clean(s.Find("a.text-lg").First().Text())
		href := absolute(base, s.Find("a").First().AttrOr("href", ""))
		if title == "" || href == "" {
			return
		}
		results = append(results, search.NewResult(
			"title", title,
			"author", clean(s.Find("a:has(span.icon-user-edit)").First().Text()),
			"publisher", clean(s.Find("a:has(span.icon-company)").First().Text()),
			"info", clean(s.Find("div.text-gray-800").First().Text()),
			"url", href,
			"thumbnail", absolute(base, s.Find("img").First().AttrOr("src", "")),
		))
	})
	return results, nil
}
