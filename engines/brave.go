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

type Brave struct {
	client  *http.Client
	baseURL string
}

func NewBrave(client *http.Client) *Brave {
	return &Brave{client: client, baseURL: "https://search.brave.com"}
}

func (b *Brave) Name() string { return "brave" }

var braveTime = map[search.TimeFilter]string{
	search.TimeDay:   "pd",
	search.TimeWeek:  "pw",
	search.TimeMonth: "pm",
	search.TimeYear:  "py",
}

func (b *Brave) Text(ctx context.Context, q search.TextQuery) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("source", "web")
	if q.Page > 1 {
		params.Set("offset", strconv.Itoa(q.Page-1))
	}
	if tf, ok := braveTime[q.TimeFilter]; ok {
		params.Set("tf", tf)
	}
	switch q.SafeSearch {
	case search.SafeSearchOn:
		params.Set("safesearch", "strict")
	case search.SafeSearchOff:
		params.Set("safesearch", "off")
	default:
		params.Set("safesearch", "moderate")
	}
	if country, _ := splitRegion(q.Region); country != "" {
		params.Set("country", country)
	}

	doc, err := fetchDocument(ctx, b.client, b.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	results := make([]search.Result, 0)
	doc.Find(`div.snippet[data-type="web"]`).Each(func(_ int, s *goquery.Selection) {
		href := absolute(nil, s.Find("a").First().AttrOr("href", ""))
		title := clean(s.Find(".title").First().Text())
		if href == "" || title == "" {
			return
		}
		body := clean(s.Find(".snippet-description").First().Text())
		results = append(results, search.NewResult("title", title, "href", href, "body", body))
	})
	return results, nil
}
