package feed_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/mverran/scrivano/internal/feed"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readCaption(t *testing.T, conn *websocket.Conn) feed.Caption {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var c feed.Caption
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("caption is not valid JSON: %v", err)
	}
	return c
}

func waitForSubscribers(t *testing.T, s *feed.Server, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for s.Subscribers() != want {
		select {
		case <-deadline:
			t.Fatalf("subscribers = %d, want %d", s.Subscribers(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestServer_BroadcastsToAllSubscribers(t *testing.T) {
	t.Parallel()

	s := feed.NewServer(nil)
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitForSubscribers(t, s, 2)

	want := feed.Caption{
		Kind:      "segment",
		Timestamp: "14:15:20.000-14:15:23.456",
		Speaker:   "Alice",
		Text:      "Hello, this is an example.",
	}
	if err := s.Publish(want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, conn := range []*websocket.Conn{c1, c2} {
		got := readCaption(t, conn)
		if got != want {
			t.Errorf("caption = %+v, want %+v", got, want)
		}
	}
}

func TestServer_PartialOmitsAttribution(t *testing.T) {
	t.Parallel()

	s := feed.NewServer(nil)
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	waitForSubscribers(t, s, 1)

	if err := s.Publish(feed.Caption{Kind: "partial", Text: "hel"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	raw := string(data)
	if strings.Contains(raw, "speaker") || strings.Contains(raw, "timestamp") {
		t.Errorf("partial caption carries attribution fields: %s", raw)
	}
}

func TestServer_PublishWithNoSubscribers(t *testing.T) {
	t.Parallel()

	s := feed.NewServer(nil)
	defer s.Close()
	if err := s.Publish(feed.Caption{Kind: "partial", Text: "x"}); err != nil {
		t.Errorf("Publish without subscribers: %v", err)
	}
}

func TestServer_CloseDisconnectsAndRefuses(t *testing.T) {
	t.Parallel()

	s := feed.NewServer(nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	waitForSubscribers(t, s, 1)

	s.Close()
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("read succeeded after Close")
	}

	if err := s.Publish(feed.Caption{Kind: "partial", Text: "x"}); err != nil {
		t.Errorf("Publish after Close: %v", err)
	}
}
