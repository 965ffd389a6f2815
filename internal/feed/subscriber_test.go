package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubscriberBridgesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/notifications":
			fmt.Fprint(w, `[{"id":"a","chat_id":1}]`)
		case "/user/stream":
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"id\":\"b\",\"chat_id\":2}\n\n")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	s := NewSubscriber(NewClient(srv.URL+"/user", WithRetry(time.Hour)))
	defer s.Stop()

	snap, ok := s.Snapshot()().(SnapshotMsg)
	if !ok || snap.Err != nil || len(snap.Cards) != 1 || snap.Cards[0].ID != "a" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	wait := s.Start()
	if s.Start() != nil {
		t.Fatalf("second Start should be a no-op")
	}

	var sawConnect bool
	for range 4 {
		switch msg := wait().(type) {
		case StreamStatusMsg:
			sawConnect = sawConnect || msg.Connected
		case EventMsg:
			if msg.Event.Kind != EventCard || msg.Event.Card.ID != "b" {
				t.Fatalf("unexpected event %+v", msg.Event)
			}
			if !sawConnect {
				t.Fatalf("event arrived before the connect status")
			}
			return
		}
		wait = s.WaitForEvent()
	}
	t.Fatalf("no card event received")
}

func TestSubscriberRestartUsesFreshRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	s := NewSubscriber(NewClient(srv.URL+"/user", WithRetry(time.Hour)))
	stale := s.Start()
	s.Stop()

	done := make(chan any, 1)
	go func() { done <- stale() }()
	select {
	case msg := <-done:
		if _, ok := msg.(StreamStatusMsg); !ok && msg != nil {
			t.Fatalf("unexpected message from stopped run %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reader of a stopped run stayed blocked")
	}

	if s.WaitForEvent() != nil {
		t.Fatalf("WaitForEvent on a stopped subscriber should be nil")
	}
	if s.Start() == nil {
		t.Fatalf("Start after Stop should open a new run")
	}
	s.Stop()
}
