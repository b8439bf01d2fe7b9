package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishProjectSaved("p-1", "2026-01-02T03:04:05Z")

	s := recv(t, ch)
	if !strings.Contains(s, "event: project.saved") {
		t.Errorf("missing event type in %q", s)
	}
	if !strings.Contains(s, `"projectId":"p-1"`) || !strings.Contains(s, `"updatedAt":"2026-01-02T03:04:05Z"`) {
		t.Errorf("missing data in %q", s)
	}
}

func TestPublishCatalog_ReplayedToLateSubscriber(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	early := b.Subscribe()
	defer b.Unsubscribe(early)

	b.PublishCatalog("ready", []string{"a"}, 0)
	if s := recv(t, early); !strings.Contains(s, "event: catalog.ready") {
		t.Fatalf("early subscriber got %q", s)
	}
	b.PublishCatalog("added", []string{"a", "b"}, 1)
	if s := recv(t, early); !strings.Contains(s, "event: catalog.added") {
		t.Fatalf("early subscriber got %q", s)
	}

	late := b.Subscribe()
	defer b.Unsubscribe(late)
	s := recv(t, late)
	if !strings.Contains(s, "event: catalog.added") {
		t.Errorf("late subscriber should see last catalog event, got %q", s)
	}
	if !strings.Contains(s, `"blockIds":["a","b"]`) || !strings.Contains(s, `"errors":1`) {
		t.Errorf("unexpected summary %q", s)
	}
}

func TestPublishCatalog_NilIDsEncodeAsArray(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCatalog("deleted", nil, 0)
	if s := recv(t, ch); !strings.Contains(s, `"blockIds":[]`) {
		t.Errorf("got %q", s)
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if s := recv(t, ch); s != ": ping\n\n" {
		t.Errorf("heartbeat = %q", s)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishCatalog("updated", []string{"hero.split.v1"}, 0)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: catalog.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(time.Minute)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.PublishProjectSaved("p", "t")
	b.PublishCatalog("ready", nil, 0)
	b.Close()
}
