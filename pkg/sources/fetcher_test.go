package sources

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/httpclient"
)

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte         { return r.body }
func (r fakeResponse) StatusCode() int      { return r.status }
func (r fakeResponse) Header(string) string { return "" }

type fakeHTTPClient struct {
	responses map[string]fakeResponse
	calls     []string
	headers   []map[string]string
}

func (f *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	f.calls = append(f.calls, url)
	f.headers = append(f.headers, headers)
	resp, ok := f.responses[url]
	if !ok {
		return nil, errors.New("unexpected url " + url)
	}
	return resp, nil
}

func (f *fakeHTTPClient) Do(ctx context.Context, req httpclient.Request) (httpclient.Response, error) {
	return f.Get(ctx, req.URL, req.Headers)
}

const urlSetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a/</loc></url>
  <url><loc> https://example.com/b?utm=1 </loc></url>
  <url><loc>https://example.com/a</loc></url>
  <url><loc></loc></url>
</urlset>`

func TestSitemapFetcherURLSet(t *testing.T) {
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		"https://example.com/sitemap.xml": {status: http.StatusOK, body: []byte(urlSetXML)},
	}}
	src := Source{
		ID:        "site",
		Type:      TypeSitemap,
		SourceURL: "https://example.com/sitemap.xml",
		Config:    map[string]any{ConfigUserAgentKey: "bot"},
	}

	pages, err := NewSitemapFetcher(client).Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages after dedupe, got %d: %+v", len(pages), pages)
	}

	first := pages[0]
	if first.NormalizedURL != "https://example.com/a" {
		t.Fatalf("unexpected normalized url: %s", first.NormalizedURL)
	}
	if first.ID != hashURL("https://example.com/a") {
		t.Fatalf("page id must hash the normalized url")
	}
	if first.SourceID != "site" || first.URL != "https://example.com/a/" {
		t.Fatalf("unexpected page: %+v", first)
	}
	if pages[1].NormalizedURL != enhancely.NormalizeURL("https://example.com/b?utm=1") {
		t.Fatalf("unexpected second page: %+v", pages[1])
	}
	if client.headers[0]["User-Agent"] != "bot" {
		t.Fatalf("expected source headers to be sent, got %v", client.headers[0])
	}
}

func TestSitemapFetcherFollowsIndexOneLevel(t *testing.T) {
	index := `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/posts.xml</loc></sitemap>
  <sitemap><loc>https://example.com/nested.xml</loc></sitemap>
</sitemapindex>`
	nested := `<sitemapindex><sitemap><loc>https://example.com/deeper.xml</loc></sitemap></sitemapindex>`

	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		"https://example.com/index.xml":  {status: http.StatusOK, body: []byte(index)},
		"https://example.com/posts.xml":  {status: http.StatusOK, body: []byte(urlSetXML)},
		"https://example.com/nested.xml": {status: http.StatusOK, body: []byte(nested)},
	}}
	src := Source{ID: "site", Type: TypeSitemap, SourceURL: "https://example.com/index.xml"}

	pages, err := NewSitemapFetcher(client).Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for _, call := range client.calls {
		if strings.Contains(call, "deeper") {
			t.Fatalf("nested sitemap index must not be followed")
		}
	}
}

func TestSitemapFetcherErrors(t *testing.T) {
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		"https://example.com/down.xml":  {status: http.StatusServiceUnavailable, body: []byte("maintenance")},
		"https://example.com/html.xml":  {status: http.StatusOK, body: []byte("<html></html>")},
		"https://example.com/empty.xml": {status: http.StatusOK, body: []byte("<urlset></urlset>")},
	}}
	fetcher := NewSitemapFetcher(client)

	for _, u := range []string{"https://example.com/down.xml", "https://example.com/html.xml", "https://example.com/empty.xml"} {
		src := Source{ID: "site", Type: TypeSitemap, SourceURL: u}
		if _, err := fetcher.Fetch(context.Background(), src); err == nil {
			t.Fatalf("expected error for %s", u)
		}
	}

	if _, err := fetcher.Fetch(context.Background(), Source{ID: "site", Type: TypeStatic}); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestStaticFetcher(t *testing.T) {
	src := Source{ID: "landing", Type: TypeStatic, URLs: []string{"https://example.com/", "https://example.com#top", "https://example.com/pricing/"}}

	pages, err := NewStaticFetcher().Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[1].NormalizedURL != "https://example.com/pricing" {
		t.Fatalf("unexpected normalized url: %s", pages[1].NormalizedURL)
	}

	if _, err := NewStaticFetcher().Fetch(context.Background(), Source{ID: "x", Type: TypeStatic}); err == nil {
		t.Fatalf("expected error for empty url list")
	}
}

func TestFetcherRegistry(t *testing.T) {
	custom := NewStaticFetcher()
	reg := NewFetcherRegistry(map[string]Fetcher{TypeSitemap: NewSitemapFetcher(&fakeHTTPClient{})}, idFetcher{id: "Special", Fetcher: custom})

	f, err := reg.FetcherFor(Source{ID: "special", Type: TypeSitemap})
	if err != nil {
		t.Fatalf("FetcherFor returned error: %v", err)
	}
	if f.ID() != "Special" {
		t.Fatalf("expected id-registered fetcher to win, got %s", f.ID())
	}

	f, err = reg.FetcherFor(Source{ID: "other", Type: "SITEMAP"})
	if err != nil || f.ID() != TypeSitemap {
		t.Fatalf("expected sitemap fetcher, got %v, %v", f, err)
	}

	if _, err := reg.FetcherFor(Source{ID: "other", Type: "rss"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := reg.FetcherFor(Source{Type: TypeSitemap}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestDefaultFetcherRegistryCoversBuiltinTypes(t *testing.T) {
	reg := DefaultFetcherRegistry(&fakeHTTPClient{})
	for _, typ := range []string{TypeSitemap, TypeStatic} {
		if _, err := reg.FetcherFor(Source{ID: "x", Type: typ}); err != nil {
			t.Fatalf("expected fetcher for %s: %v", typ, err)
		}
	}
}

type idFetcher struct {
	Fetcher
	id string
}

func (f idFetcher) ID() string { return f.id }
