package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/httpclient"
	"github.com/enhancely/enhancely-go/pkg/inject"
	"github.com/enhancely/enhancely-go/pkg/sources"
)

const (
	maxHTMLBodyBytes = 2 << 20 // 2 MiB
)

// Verifier fetches live pages and looks for embedded JSON-LD.
type Verifier struct {
	client httpclient.Client
}

// NewVerifier constructs a verifier with the provided HTTP client (or default).
func NewVerifier(client httpclient.Client) *Verifier {
	if client == nil {
		client = sources.DefaultHTTPClient()
	}
	return &Verifier{client: client}
}

// Verify reports whether the page currently serves jsonld in an ld+json script block.
func (v *Verifier) Verify(ctx context.Context, src sources.Source, page domain.Page, jsonld any) (bool, error) {
	resp, err := v.client.Get(ctx, page.URL, sources.Headers(src))
	if err != nil {
		return false, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return false, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	return inject.Contains(body, jsonld)
}
