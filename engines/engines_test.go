package engines

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duckse/search"
)

func serve(t *testing.T, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Path + "?" + r.URL.RawQuery
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func field(t *testing.T, r search.Result, key string) string {
	t.Helper()
	v, _ := r.String(key)
	return v
}

func TestBingText(t *testing.T) {
	tracked := "https://www.bing.com/ck/a?!&&p=abc&u=a1" + base64.RawURLEncoding.EncodeToString([]byte("https://example.org/tracked")) + "&ntb=1"
	page := `<ol id="b_results">
<li class="b_algo"><h2><a href="https://example.com/">Example</a></h2><div class="b_caption"><p>First body</p></div></li>
<li class="b_algo"><h2><a href="` + tracked + `">Tracked</a></h2><div class="b_caption"><p>Second body</p></div></li>
<li class="b_ad"><h2><a href="https://ads.example/">Ad</a></h2></li>
</ol>`
	var got string
	srv := serve(t, page, &got)

	b := NewBing(srv.Client())
	b.baseURL = srv.URL
	b.now = func() time.Time { return time.Unix(86400*1000, 0) }
	results, err := b.Text(context.Background(), search.TextQuery{
		Common:     search.Common{Query: "go", Region: "us-en", Page: 2},
		TimeFilter: search.TimeYear,
	})
	if err != nil {
		t.Fatalf("bing: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if h := field(t, results[1], "href"); h != "https://example.org/tracked" {
		t.Errorf("tracking link not unwrapped: %q", h)
	}
	for _, want := range []string{"/search?", "setmkt=en-US", "first=11", "ez5_635_1000"} {
		if !strings.Contains(got, want) {
			t.Errorf("request %q missing %q", got, want)
		}
	}
}

func TestBingNews(t *testing.T) {
	page := `<div class="news-card newsitem" url="https://news.example/a" data-title="Headline" data-author="Tempo">
<div class="snippet">Short body</div><span aria-label="2 hours ago">2h</span><img src="/th?id=1"></div>`
	var got string
	srv := serve(t, page, &got)

	b := NewBing(srv.Client())
	b.baseURL = srv.URL
	results, err := b.News(context.Background(), search.NewsQuery{
		Common:     search.Common{Query: "berita", Page: 1},
		TimeFilter: search.TimeWeek,
	})
	if err != nil {
		t.Fatalf("bing news: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if field(t, r, "source") != "Tempo" || field(t, r, "date") != "2 hours ago" || field(t, r, "body") != "Short body" {
		t.Errorf("unexpected result %v", r.Keys())
	}
	if img := field(t, r, "image"); img != srv.URL+"/th?id=1" {
		t.Errorf("unexpected image %q", img)
	}
	if !strings.Contains(got, "interval%3D%228%22") {
		t.Errorf("time filter not sent: %s", got)
	}
}

func TestBrave(t *testing.T) {
	page := `<div class="snippet" data-type="web"><a href="https://brave.example/">
<div class="title">Brave Result</div></a><div class="snippet-description">Body text</div></div>
<div class="snippet" data-type="news"><a href="https://skip.example/"><div class="title">Skip</div></a></div>`
	var got string
	srv := serve(t, page, &got)

	b := NewBrave(srv.Client())
	b.baseURL = srv.URL
	results, err := b.Text(context.Background(), search.TextQuery{Common: search.Common{Query: "q"}, TimeFilter: search.TimeMonth})
	if err != nil {
		t.Fatalf("brave: %v", err)
	}
	if len(results) != 1 || field(t, results[0], "title") != "Brave Result" {
		t.Fatalf("unexpected results: %d", len(results))
	}
	if !strings.Contains(got, "tf=pm") {
		t.Errorf("time filter not sent: %s", got)
	}
}

func TestMojeek(t *testing.T) {
	page := `<ul class="results-standard"><li><a class="title" href="https://mojeek.example/">Mojeek Result</a><p class="s">Body</p></li></ul>`
	srv := serve(t, page, nil)

	m := NewMojeek(srv.Client())
	m.baseURL = srv.URL
	results, err := m.Text(context.Background(), search.TextQuery{Common: search.Common{Query: "q"}})
	if err != nil {
		t.Fatalf("mojeek: %v", err)
	}
	if len(results) != 1 || field(t, results[0], "href") != "https://mojeek.example/" {
		t.Fatalf("unexpected results")
	}
}

func TestWikipedia(t *testing.T) {
	var got string
	srv := serve(t, `{"query":{"search":[{"title":"Bahasa Indonesia","snippet":"<span class=\"searchmatch\">Bahasa</span> resmi"}]}}`, &got)

	w := NewWikipedia(srv.Client())
	w.apiURL = srv.URL + "/%s/api.php"
	results, err := w.Text(context.Background(), search.TextQuery{Common: search.Common{Query: "bahasa", Region: "id-id"}})
	if err != nil {
		t.Fatalf("wikipedia: %v", err)
	}
	if !strings.HasPrefix(got, "/id/api.php?") {
		t.Errorf("language not taken from region: %s", got)
	}
	r := results[0]
	if h := field(t, r, "href"); h != "https://id.wikipedia.org/wiki/Bahasa_Indonesia" {
		t.Errorf("unexpected href %q", h)
	}
	if b := field(t, r, "body"); b != "Bahasa resmi" {
		t.Errorf("snippet markup not stripped: %q", b)
	}
}

func TestWikipediaSkipsTimeFilteredSearches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"query":{"search":[{"title":"Undated"}]}}`)
	}))
	defer srv.Close()

	w := NewWikipedia(srv.Client())
	w.apiURL = srv.URL + "/%s/api.php"
	results, err := w.Text(context.Background(), search.TextQuery{Common: search.Common{Query: "berita"}, TimeFilter: search.TimeDay})
	if err != nil {
		t.Fatalf("wikipedia: %v", err)
	}
	if len(results) != 0 || calls != 0 {
		t.Fatalf("expected no request and no results, got %d results after %d calls", len(results), calls)
	}
}

func TestAnnasArchive(t *testing.T) {
	page := `<div class="record-list-outer"><div>
<a href="/md5/abc"><img src="/covers/abc.jpg"></a>
<a class="text-lg" href="/md5/abc">The Go Programming Language</a>
<a href="/search?q=d"><span class="icon-user-edit"></span> Donovan</a>
<a href="/search?q=p"><span class="icon-company"></span> Addison-Wesley</a>
<div class="text-gray-800">English, pdf, 5.2MB</div>
</div></div>`
	srv := serve(t, page, nil)

	a := NewAnnasArchive(srv.Client())
	a.baseURL = srv.URL
	results, err := a.Books(context.Background(), search.BooksQuery{Common: search.Common{Query: "golang"}})
	if err != nil {
		t.Fatalf("annas: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if got := strings.Join(r.Keys(), ","); got != "title,author,publisher,info,url,thumbnail" {
		t.Errorf("unexpected keys %s", got)
	}
	if u := field(t, r, "url"); u != srv.URL+"/md5/abc" {
		t.Errorf("unexpected url %q", u)
	}
	if au := field(t, r, "author"); au != "Donovan" {
		t.Errorf("unexpected author %q", au)
	}
}

func TestStatusErrorsAreWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewMojeek(srv.Client())
	m.baseURL = srv.URL
	_, err := m.Text(context.Background(), search.TextQuery{Common: search.Common{Query: "q"}})
	if err == nil || !strings.Contains(err.Error(), "mojeek") {
		t.Fatalf("expected wrapped mojeek error, got %v", err)
	}
}
