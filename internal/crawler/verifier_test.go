package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/httpclient"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

func TestVerifierDetectsEmbeddedJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "enhancely-verify" {
			t.Errorf("expected source user agent, got %q", got)
		}
		switch r.URL.Path {
		case "/with":
			w.Write([]byte(`<html><head><script type="application/ld+json">{"name":"Home","@type":"WebPage"}</script></head></html>`))
		case "/without":
			w.Write([]byte(`<html><head><title>Home</title></head></html>`))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	v := NewVerifier(httpclient.NewRestyClient(2 * time.Second))
	src := sources.Source{ID: "site", Config: map[string]any{sources.ConfigUserAgentKey: "enhancely-verify"}}
	jsonld := map[string]any{"@type": "WebPage", "name": "Home"}

	ok, err := v.Verify(context.Background(), src, domain.Page{URL: srv.URL + "/with"}, jsonld)
	if err != nil || !ok {
		t.Fatalf("expected embedded json-ld, ok=%v err=%v", ok, err)
	}

	ok, err = v.Verify(context.Background(), src, domain.Page{URL: srv.URL + "/without"}, jsonld)
	if err != nil || ok {
		t.Fatalf("expected missing json-ld, ok=%v err=%v", ok, err)
	}

	if _, err := v.Verify(context.Background(), src, domain.Page{URL: srv.URL + "/missing"}, jsonld); err == nil {
		t.Fatalf("expected error for non-200 page")
	}
}
