package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enhancely/enhancely-go/internal/config"
	"github.com/enhancely/enhancely-go/internal/crawler"
	"github.com/enhancely/enhancely-go/internal/logger"
	"github.com/enhancely/enhancely-go/internal/storage"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/publishers"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

// Syncer is the JSON-LD sync runtime. It owns the source registry, the cache,
// and the publishers, and drives the sync service on a fixed interval.
type Syncer struct {
	cfg          *config.Config
	sourceReg    *sources.Registry
	fanout       *publishers.Fanout
	syncService  *crawler.Service
	syncInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewAPIClient builds the Enhancely facade from config.
func NewAPIClient(cfg *config.Config, log logger.Logger) *enhancely.Client {
	opts := []enhancely.Option{
		enhancely.WithAPIKey(cfg.APIKey),
		enhancely.WithEndpoint(cfg.APIEndpoint),
		enhancely.WithTimeouts(cfg.RequestTimeout, cfg.ConnectTimeout),
	}
	if log != nil {
		opts = append(opts, enhancely.WithLogger(log))
	}
	return enhancely.New(opts...)
}

// NewSyncer builds a sync runtime from config files.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("enhancely_api_key is required: %w", enhancely.ErrMissingAPIKey)
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	sourceList := sourceReg.All()
	sourceIDs := make([]string, 0, len(sourceList))
	for _, s := range sourceList {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	httpClient := sources.DefaultHTTPClient()
	syncService := crawler.NewService(sources.DefaultFetcherRegistry(httpClient), NewAPIClient(cfg, log), fanout, log, store)
	if cfg.VerifyPages {
		syncService.WithVerifier(crawler.NewVerifier(httpClient))
	}

	return &Syncer{
		cfg:          cfg,
		sourceReg:    sourceReg,
		fanout:       fanout,
		syncService:  syncService,
		syncInterval: cfg.SyncInterval,
		log:          log,
		store:        store,
	}, nil
}

// buildFanout loads the optional publishers file; an empty path disables events.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.WarnObj("no publishers file configured; events disabled", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the sync loop until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.syncService == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	defer s.Close()

	s.log.InfoObj("sync loop starting", "syncer_state", map[string]any{
		"sources_count":    len(s.sourceReg.All()),
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.syncInterval.String(),
		"verify_pages":     s.cfg.VerifyPages,
	})

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.ErrorObj("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sync pass across all sources.
func (s *Syncer) RunOnce(ctx context.Context) (crawler.Stats, error) {
	srcs := s.sourceReg.All()
	start := time.Now()
	s.log.InfoObj("sync started", "sync_meta", map[string]any{
		"sources_count": len(srcs),
		"started_at":    start.UTC(),
	})

	stats, err := s.syncService.Run(ctx, srcs)
	s.log.InfoObj("sync completed", "sync_meta", map[string]any{
		"sources_count":    stats.Sources,
		"pages":            stats.Pages,
		"updated":          stats.Updated,
		"unchanged":        stats.Unchanged,
		"processing":       stats.Processing,
		"failed":           stats.Failed,
		"published":        stats.Published,
		"publish_failures": stats.PublishFailures,
		"elapsed_ms":       time.Since(start).Milliseconds(),
	})
	return stats, err
}

// Close releases the cache and publisher connections, logging any errors encountered.
func (s *Syncer) Close() {
	if s == nil {
		return
	}
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
		s.store = nil
	}
	if s.fanout != nil {
		errs = append(errs, s.fanout.Close())
		s.fanout = nil
	}
	if err := errors.Join(errs...); err != nil {
		s.log.ErrorObj("syncer shutdown failed", "error", err)
	}
}
