package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/internal/logger"
	"github.com/enhancely/enhancely-go/internal/storage"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/publishers"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

// Stats summarises one sync pass.
type Stats struct {
	Sources         int
	Pages           int
	Updated         int
	Unchanged       int
	Processing      int
	Failed          int
	Published       int
	PublishFailures int
}

func (s *Stats) add(o Stats) {
	s.Sources += o.Sources
	s.Pages += o.Pages
	s.Updated += o.Updated
	s.Unchanged += o.Unchanged
	s.Processing += o.Processing
	s.Failed += o.Failed
	s.Published += o.Published
	s.PublishFailures += o.PublishFailures
}

// Service syncs the JSON-LD of every page of every source.
type Service struct {
	registry  sources.FetcherRegistry
	client    JSONLDClient
	publisher EventPublisher
	store     storage.Store
	verifier  PageVerifier
	log       logger.Logger
}

// NewService wires a sync service. A nil store disables caching, a nil publisher disables events.
func NewService(reg sources.FetcherRegistry, client JSONLDClient, pub EventPublisher, log logger.Logger, store storage.Store) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	if store == nil {
		store, _ = storage.NewStore(storage.TypeNone, "", storage.Options{})
	}
	return &Service{
		registry:  reg,
		client:    client,
		publisher: pub,
		store:     store,
		log:       log,
	}
}

// WithVerifier enables live page verification.
func (s *Service) WithVerifier(v PageVerifier) *Service {
	s.verifier = v
	return s
}

// Run executes a sync pass for all sources. Page outcomes are counted; only
// source-level failures (listing pages) are returned as errors.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) (Stats, error) {
	if s == nil || s.registry == nil || s.client == nil {
		return Stats{}, fmt.Errorf("sync service is not initialized")
	}
	if len(srcs) == 0 {
		return Stats{}, fmt.Errorf("no sources configured for sync")
	}

	var (
		total Stats
		errs  []error
	)
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		stats, err := s.runSource(ctx, src)
		total.add(stats)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("source sync failed", "source_error", map[string]any{
				"source_id": src.ID,
				"error":     err.Error(),
			})
		}
	}

	return total, errors.Join(errs...)
}

func (s *Service) runSource(ctx context.Context, src sources.Source) (Stats, error) {
	stats := Stats{Sources: 1}

	fetcher, err := s.registry.FetcherFor(src)
	if err != nil {
		return stats, fmt.Errorf("resolve fetcher for source %s: %w", src.ID, err)
	}

	pages, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return stats, fmt.Errorf("fetch source %s: %w", src.ID, err)
	}

	delay := src.RequestDelay()
	for i, page := range pages {
		if ctx.Err() != nil {
			break
		}
		stats.add(s.syncPage(ctx, src, page))

		if delay > 0 && i < len(pages)-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	s.log.InfoObj("source sync completed", "source_result", map[string]any{
		"source_id":  src.ID,
		"pages":      stats.Pages,
		"updated":    stats.Updated,
		"unchanged":  stats.Unchanged,
		"processing": stats.Processing,
		"failed":     stats.Failed,
	})
	return stats, nil
}

func (s *Service) syncPage(ctx context.Context, src sources.Source, page domain.Page) Stats {
	stats := Stats{Pages: 1}
	key := page.NormalizedURL

	etag := ""
	if entry, ok, err := s.store.Get(key); err != nil {
		s.log.WarnObj("cache lookup failed", "storage_error", pageFields(page, map[string]any{"error": err.Error()}))
	} else if ok {
		etag = entry.ETag
	}

	resp := s.client.JSONLD(ctx, page.URL, etag)

	switch resp.State() {
	case enhancely.StateReady:
		if !resp.Ready() {
			stats.Failed++
			s.log.WarnObj("ready response carried no jsonld", "page_failed", pageFields(page, nil))
			return stats
		}
		stats.Updated++
		stats.add(s.handleReady(ctx, src, page, resp))
	case enhancely.StateNotModified:
		stats.Unchanged++
		if err := s.store.Touch(key); err != nil {
			s.log.WarnObj("cache refresh failed", "storage_error", pageFields(page, map[string]any{"error": err.Error()}))
		}
	case enhancely.StateProcessing:
		stats.Processing++
		s.log.InfoObj("jsonld still processing", "page_processing", pageFields(page, map[string]any{
			"status": resp.StatusCode(),
		}))
	default:
		stats.Failed++
		fields := pageFields(page, map[string]any{"error": resp.ErrorMessage()})
		if p := resp.Problem(); p != nil {
			fields["problem"] = map[string]any(p)
		}
		s.log.WarnObj("jsonld request failed", "page_failed", fields)
	}

	return stats
}

func (s *Service) handleReady(ctx context.Context, src sources.Source, page domain.Page, resp enhancely.Response) Stats {
	var stats Stats

	raw, err := json.Marshal(resp.RawJSONLD())
	if err == nil {
		err = s.store.Put(page.NormalizedURL, storage.Entry{ETag: resp.ETag(), JSONLD: raw})
	}
	if err != nil {
		s.log.WarnObj("cache write failed", "storage_error", pageFields(page, map[string]any{"error": err.Error()}))
	}

	var embedded *bool
	if s.verifier != nil {
		ok, err := s.verifier.Verify(ctx, src, page, resp.RawJSONLD())
		if err != nil {
			s.log.WarnObj("page verification failed", "verify_error", pageFields(page, map[string]any{"error": err.Error()}))
		} else {
			embedded = &ok
		}
	}

	if s.publisher == nil {
		return stats
	}
	evt, err := publishers.NewEvent(page, resp, embedded)
	if err != nil {
		stats.PublishFailures++
		s.log.ErrorObj("event encoding failed", "publish_error", pageFields(page, map[string]any{"error": err.Error()}))
		return stats
	}
	n, err := s.publisher.Publish(ctx, evt)
	if n > 0 {
		stats.Published++
	}
	if err != nil {
		stats.PublishFailures++
		s.log.ErrorObj("event publish failed", "publish_error", pageFields(page, map[string]any{"error": err.Error()}))
	}
	return stats
}

func pageFields(page domain.Page, extra map[string]any) map[string]any {
	fields := map[string]any{
		"source_id": page.SourceID,
		"page_id":   page.ID,
		"url":       page.NormalizedURL,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
