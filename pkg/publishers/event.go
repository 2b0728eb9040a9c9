package publishers

import (
	"encoding/json"
	"time"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
)

// EventJSONLDUpdated is emitted when the service returns new JSON-LD for a page.
const EventJSONLDUpdated = "jsonld.updated"

// Event is the payload published downstream. Embedded is nil when the live page was not checked.
type Event struct {
	Type          string          `json:"type"`
	SourceID      string          `json:"source_id"`
	PageID        string          `json:"page_id"`
	URL           string          `json:"url"`
	NormalizedURL string          `json:"normalized_url"`
	ETag          string          `json:"etag,omitempty"`
	JSONLD        json.RawMessage `json:"jsonld"`
	Embedded      *bool           `json:"embedded,omitempty"`
	CollectedAt   time.Time       `json:"collected_at"`
}

// NewEvent builds a jsonld.updated event for a page from a ready response.
func NewEvent(page domain.Page, resp enhancely.Response, embedded *bool) (Event, error) {
	raw, err := json.Marshal(resp.RawJSONLD())
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:          EventJSONLDUpdated,
		SourceID:      page.SourceID,
		PageID:        page.ID,
		URL:           page.URL,
		NormalizedURL: page.NormalizedURL,
		ETag:          resp.ETag(),
		JSONLD:        raw,
		Embedded:      embedded,
		CollectedAt:   time.Now().UTC(),
	}, nil
}

// attributes are the routing attributes attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"source_id":  e.SourceID,
		"page_id":    e.PageID,
	}
}
