package engines

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"duckse/search"
)

// Bing scrapes www.bing.com for web and news results.
type Bing struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewBing(client *http.Client) *Bing {
	return &Bing{client: client, baseURL: "https://www.bing.com", now: time.Now}
}

func (b *Bing) Name() string { return "bing" }

func (b *Bing) Text(ctx context.Context, q search.TextQuery) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if mkt := bingMarket(q.Region); mkt != "" {
		params.Set("setmkt", mkt)
	}
	params.Set("adlt", bingSafeSearch(q.SafeSearch))
	if q.Page > 1 {
		params.Set("first", strconv.Itoa((q.Page-1)*10+1))
	}
	if f := b.timeFilter(q.TimeFilter); f != "" {
		params.Set("filters", f)
	}

	doc, err := fetchDocument(ctx, b.client, b.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("bing: %w", err)
	}
	results := make([]search.Result, 0)
	doc.Find("li.b_algo").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("h2 a").First()
		href := unwrapBingLink(link.AttrOr("href", ""))
		title := clean(link.Text())
		if href == "" || title == "" {
			return
		}
		body := clean(s.Find(".b_caption p").First().Text())
		results = append(results, search.NewResult("title", title, "href", href, "body", body))
	})
	return results, nil
}

func (b *Bing) News(ctx context.Context, q search.NewsQuery) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("InfiniteScroll", "1")
	params.Set("first", strconv.Itoa((q.Page-1)*10+1))
	if mkt := bingMarket(q.Region); mkt != "" {
		params.Set("setmkt", mkt)
	}
	params.Set("adlt", bingSafeSearch(q.SafeSearch))
	if interval, ok := bingNewsIntervals[q.TimeFilter]; ok {
		params.Set("qft", fmt.Sprintf("interval=%q", interval))
	}

	doc, err := fetchDocument(ctx, b.client, b.baseURL+"/news/infinitescrollajax?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("bing news: %w", err)
	}
	results := make([]search.Result, 0)
	doc.Find("div.news-card").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("url", "")
		title := clean(s.AttrOr("data-title", ""))
		if href == "" || title == "" {
			return
		}
		date := s.Find("span[aria-label]").First().AttrOr("aria-label", "")
		image := s.Find("img").First().AttrOr("src", "")
		if strings.HasPrefix(image, "/") {
			image = b.baseURL + image
		}
		results = append(results, search.NewResult(
			"date", date,
			"title", title,
			"body", clean(s.Find(".snippet").First().Text()),
			"url", href,
			"image", image,
			"source", clean(s.AttrOr("data-author", "")),
		))
	})
	return results, nil
}

var bingNewsIntervals = map[search.TimeFilter]string{
	search.TimeDay:   "7",
	search.TimeWeek:  "8",
	search.TimeMonth: "9",
}

// timeFilter builds Bing's ex1 filter; a year is expressed as a day range.
func (b *Bing) timeFilter(tf search.TimeFilter) string {
	switch tf {
	case search.TimeDay:
		return `ex1:"ez1"`
	case search.TimeWeek:
		return `ex1:"ez2"`
	case search.TimeMonth:
		return `ex1:"ez3"`
	case search.TimeYear:
		days := b.now().Unix() / 86400
		return fmt.Sprintf(`ex1:"ez5_%d_%d"`, days-365, days)
	}
	return ""
}

func bingMarket(region string) string {
	country, lang := splitRegion(region)
	if country == "" {
		return ""
	}
	tag, err := language.Parse(lang + "-" + strings.ToUpper(country))
	if err != nil {
		return ""
	}
	return tag.String()
}

func bingSafeSearch(s search.SafeSearch) string {
	switch s {
	case search.SafeSearchOn:
		return "strict"
	case search.SafeSearchOff:
		return "off"
	}
	return "moderate"
}

// unwrapBingLink decodes bing.com/ck/a?...&u=a1<base64url> click-tracking links.
func unwrapBingLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Host, "bing.com") || !strings.HasPrefix(u.Path, "/ck/") {
		return href
	}
	enc := strings.TrimPrefix(u.Query().Get("u"), "a1")
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(enc, "="))
	if err != nil {
		return ""
	}
	return string(raw)
}
