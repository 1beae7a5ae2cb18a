// Package feed broadcasts live captions over WebSocket. Any number of
// clients (an OBS overlay, a second screen for participants) can subscribe
// to the stream of partial text and closed segments while the session
// runs.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Caption is one broadcast message.
type Caption struct {
	// Kind is "partial" for tentative text or "segment" for a closed,
	// speaker-attributed segment.
	Kind string `json:"kind"`

	// Timestamp is the segment's wall-clock range; empty for partials.
	Timestamp string `json:"timestamp,omitempty"`

	// Speaker is the attributed speaker's display name; empty for
	// partials.
	Speaker string `json:"speaker,omitempty"`

	// Text is the caption text.
	Text string `json:"text"`
}

// writeTimeout bounds a single message delivery to one client.
const writeTimeout = 5 * time.Second

// subscriberBuffer is the per-client message backlog. A client that falls
// this far behind is disconnected rather than allowed to stall the feed.
const subscriberBuffer = 64

type subscriber struct {
	msgs      chan []byte
	closeSlow func()
}

// Server is the caption broadcaster. It implements http.Handler for the
// WebSocket endpoint; Publish fans a caption out to every connected
// client.
type Server struct {
	log *slog.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// NewServer creates a broadcaster. logger may be nil for slog.Default.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		log:  logger,
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and streams captions until the client
// disconnects or the server closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("caption feed accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Inbound data is not part of the protocol; CloseRead reaps the read
	// side and cancels the context when the client goes away.
	ctx := conn.CloseRead(r.Context())

	sub := &subscriber{
		msgs: make(chan []byte, subscriberBuffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
		},
	}
	if !s.add(sub) {
		conn.Close(websocket.StatusGoingAway, "feed closed")
		return
	}
	defer s.remove(sub)

	for {
		select {
		case msg := <-sub.msgs:
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Publish sends the caption to all connected clients. Clients whose
// backlog is full are dropped. Publishing on a closed server is a no-op.
func (s *Server) Publish(c Caption) error {
	msg, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("feed: marshal caption: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for sub := range s.subs {
		select {
		case sub.msgs <- msg:
		default:
			go sub.closeSlow()
		}
	}
	return nil
}

// Subscribers returns the number of connected clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close disconnects all clients and refuses new ones. Idempotent.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		go sub.closeSlow()
	}
	s.subs = make(map[*subscriber]struct{})
}

func (s *Server) add(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subs[sub] = struct{}{}
	return true
}

func (s *Server) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
