package crawler

import (
	"context"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/publishers"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

// JSONLDClient requests JSON-LD for a page. *enhancely.Client satisfies it.
type JSONLDClient interface {
	JSONLD(ctx context.Context, url, etag string) enhancely.Response
}

// EventPublisher publishes jsonld.updated events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// PageVerifier checks whether a live page already embeds the given JSON-LD.
type PageVerifier interface {
	Verify(ctx context.Context, src sources.Source, page domain.Page, jsonld any) (bool, error)
}
