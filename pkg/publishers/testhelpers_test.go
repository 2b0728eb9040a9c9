package publishers

import (
	"encoding/json"
	"time"
)

func sampleEvent() Event {
	embedded := true
	return Event{
		Type:          EventJSONLDUpdated,
		SourceID:      "blog",
		PageID:        "page-1",
		URL:           "https://example.com/a/",
		NormalizedURL: "https://example.com/a",
		ETag:          `"v1"`,
		JSONLD:        json.RawMessage(`{"@type":"WebPage"}`),
		Embedded:      &embedded,
		CollectedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
