package publishers

import (
	"encoding/json"
	"testing"

	"github.com/enhancely/enhancely-go/internal/domain"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
)

func TestNewEventFromReadyResponse(t *testing.T) {
	page := domain.Page{ID: "id-1", SourceID: "blog", URL: "https://example.com/a/", NormalizedURL: "https://example.com/a"}
	resp := enhancely.ReadyResponse(map[string]any{"jsonld": map[string]any{"@type": "Article"}}, `"etag-1"`)

	evt, err := NewEvent(page, resp, nil)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if evt.Type != EventJSONLDUpdated || evt.PageID != "id-1" || evt.ETag != `"etag-1"` {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if string(evt.JSONLD) != `{"@type":"Article"}` {
		t.Fatalf("unexpected jsonld: %s", evt.JSONLD)
	}
	if evt.CollectedAt.IsZero() {
		t.Fatalf("expected collected_at to be set")
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["embedded"]; ok {
		t.Fatalf("embedded should be omitted when the page was not verified")
	}
}
