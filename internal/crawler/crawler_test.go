package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/internal/storage"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/publishers"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

type jsonldCall struct {
	url  string
	etag string
}

// fakeJSONLDClient answers through fn and records every request.
type fakeJSONLDClient struct {
	fn    func(url, etag string) enhancely.Response
	calls []jsonldCall
}

func (f *fakeJSONLDClient) JSONLD(_ context.Context, url, etag string) enhancely.Response {
	f.calls = append(f.calls, jsonldCall{url: url, etag: etag})
	return f.fn(url, etag)
}

type recordingPublisher struct {
	events []publishers.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	r.events = append(r.events, evt)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

type stubVerifier struct {
	embedded bool
	err      error
}

func (s stubVerifier) Verify(context.Context, sources.Source, domain.Page, any) (bool, error) {
	return s.embedded, s.err
}

func staticSource(id string, urls ...string) sources.Source {
	return sources.Source{ID: id, Type: sources.TypeStatic, URLs: urls, RequestDelayMs: 1}
}

func openStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewStore(storage.TypeBBolt, filepath.Join(t.TempDir(), "jsonld.db"), storage.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestServiceStoresAndPublishesReadyThenSkipsUnchanged(t *testing.T) {
	jsonld := map[string]any{"@type": "WebPage", "name": "Home"}
	client := &fakeJSONLDClient{fn: func(_, etag string) enhancely.Response {
		if etag == `"v1"` {
			return enhancely.NotModifiedResponse()
		}
		return enhancely.ReadyResponse(map[string]any{"jsonld": jsonld}, `"v1"`)
	}}
	pub := &recordingPublisher{}
	store := openStore(t)

	svc := NewService(sources.DefaultFetcherRegistry(nil), client, pub, nil, store).
		WithVerifier(stubVerifier{embedded: true})
	src := staticSource("site", "https://example.com/home/")

	stats, err := svc.Run(context.Background(), []sources.Source{src})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Pages != 1 || stats.Updated != 1 || stats.Published != 1 {
		t.Fatalf("unexpected first pass stats: %+v", stats)
	}

	entry, ok, err := store.Get("https://example.com/home")
	if err != nil || !ok {
		t.Fatalf("expected cached entry, ok=%v err=%v", ok, err)
	}
	if entry.ETag != `"v1"` {
		t.Fatalf("unexpected cached etag %q", entry.ETag)
	}
	var cached map[string]any
	if err := json.Unmarshal(entry.JSONLD, &cached); err != nil || cached["name"] != "Home" {
		t.Fatalf("unexpected cached jsonld %s (%v)", entry.JSONLD, err)
	}

	evt := pub.events[0]
	if evt.Type != publishers.EventJSONLDUpdated || evt.SourceID != "site" || evt.NormalizedURL != "https://example.com/home" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Embedded == nil || !*evt.Embedded {
		t.Fatalf("expected embedded flag from verifier, got %v", evt.Embedded)
	}

	stats, err = svc.Run(context.Background(), []sources.Source{src})
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if stats.Unchanged != 1 || stats.Updated != 0 {
		t.Fatalf("unexpected second pass stats: %+v", stats)
	}
	if len(pub.events) != 1 {
		t.Fatalf("not-modified pages must not publish, got %d events", len(pub.events))
	}
	if got := client.calls[1].etag; got != `"v1"` {
		t.Fatalf("expected cached etag to be sent, got %q", got)
	}
}

func TestServiceCountsProcessingAndFailures(t *testing.T) {
	client := &fakeJSONLDClient{fn: func(url, _ string) enhancely.Response {
		switch url {
		case "https://example.com/new":
			return enhancely.ProcessingResponse(202)
		case "https://example.com/empty":
			return enhancely.ReadyResponse(map[string]any{}, "")
		default:
			return enhancely.FailedResponse("Invalid API key")
		}
	}}
	pub := &recordingPublisher{}

	svc := NewService(sources.DefaultFetcherRegistry(nil), client, pub, nil, nil)
	stats, err := svc.Run(context.Background(), []sources.Source{
		staticSource("site", "https://example.com/new", "https://example.com/empty", "https://example.com/denied"),
	})
	if err != nil {
		t.Fatalf("page failures must not fail the run: %v", err)
	}
	if stats.Processing != 1 || stats.Failed != 2 || stats.Updated != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %d", len(pub.events))
	}
}

func TestServicePublishFailureIsCounted(t *testing.T) {
	client := &fakeJSONLDClient{fn: func(string, string) enhancely.Response {
		return enhancely.ReadyResponse(map[string]any{"jsonld": map[string]any{"a": 1}}, "")
	}}
	pub := &recordingPublisher{err: errors.New("queue down")}

	svc := NewService(sources.DefaultFetcherRegistry(nil), client, pub, nil, nil).
		WithVerifier(stubVerifier{err: errors.New("page offline")})
	stats, err := svc.Run(context.Background(), []sources.Source{staticSource("site", "https://example.com/")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Updated != 1 || stats.PublishFailures != 1 || stats.Published != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if pub.events[0].Embedded != nil {
		t.Fatalf("failed verification should leave embedded unset")
	}
}

func TestServiceReportsSourceErrorsAndContinues(t *testing.T) {
	client := &fakeJSONLDClient{fn: func(string, string) enhancely.Response { return enhancely.NotModifiedResponse() }}
	svc := NewService(sources.DefaultFetcherRegistry(nil), client, nil, nil, nil)

	stats, err := svc.Run(context.Background(), []sources.Source{
		{ID: "feed", Type: "rss", RequestDelayMs: 1},
		staticSource("site", "https://example.com/"),
	})
	if err == nil {
		t.Fatalf("expected error for source without fetcher")
	}
	if stats.Sources != 2 || stats.Unchanged != 1 {
		t.Fatalf("second source should still sync, got %+v", stats)
	}
}

func TestServiceRunValidation(t *testing.T) {
	var nilSvc *Service
	if _, err := nilSvc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil service")
	}

	svc := NewService(sources.DefaultFetcherRegistry(nil), &fakeJSONLDClient{}, nil, nil, nil)
	if _, err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty source list")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Run(ctx, []sources.Source{staticSource("site", "https://example.com/")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
