package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}

type closingPublisher struct {
	*stubPublisher
	closeErr error
}

func (c closingPublisher) Close() error {
	c.closed = true
	return c.closeErr
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "http", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers to be dropped, size=%d", fanout.Size())
	}

	count, err := fanout.Publish(context.Background(), sampleEvent())
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every publisher should be attempted, got %d/%d", ok.calls, bad.calls)
	}
}

func TestFanoutCloseOnlyClosers(t *testing.T) {
	plain := &stubPublisher{id: "plain", typ: "http"}
	closer := closingPublisher{stubPublisher: &stubPublisher{id: "c", typ: TypeGCPPubSub}, closeErr: errors.New("flush failed")}

	err := NewFanout([]Publisher{plain, closer}).Close()
	if err == nil {
		t.Fatalf("expected close error to surface")
	}
	if !closer.closed || plain.closed {
		t.Fatalf("only io.Closer publishers should be closed")
	}

	var nilFanout *Fanout
	if n, err := nilFanout.Publish(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("expected 1 http publisher, got %#v", pubs)
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "kafka", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestRegistryCustomBuilder(t *testing.T) {
	reg := NewRegistry(nil)
	stub := &stubPublisher{id: "s", typ: "stub"}
	reg.Register(" STUB ", func(context.Context, PublisherConfig, Logger) (Publisher, error) { return stub, nil })

	pub, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "s", Type: "stub"}, nil)
	if err != nil || pub != stub {
		t.Fatalf("expected custom builder to be used, got %v, %v", pub, err)
	}
	if _, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "s"}, nil); err == nil {
		t.Fatalf("expected error for missing type")
	}
}
