package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/enhancely/enhancely-go/internal/domain"
)

// staticFetcher serves the URL list declared inline in the source config.
type staticFetcher struct{}

func NewStaticFetcher() Fetcher { return staticFetcher{} }

func (staticFetcher) ID() string { return TypeStatic }

func (staticFetcher) Fetch(_ context.Context, src Source) ([]domain.Page, error) {
	if !strings.EqualFold(src.Type, TypeStatic) {
		return nil, fmt.Errorf("static fetcher received incompatible source type %q", src.Type)
	}
	pages := buildPages(src.ID, src.URLs)
	if len(pages) == 0 {
		return nil, fmt.Errorf("source %q lists no urls", src.ID)
	}
	return pages, nil
}
