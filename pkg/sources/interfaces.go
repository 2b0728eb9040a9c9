package sources

import (
	"context"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/httpclient"
)

// Fetcher lists the pages of a source.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, src Source) ([]domain.Page, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source.
type FetcherRegistry interface {
	FetcherFor(src Source) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
