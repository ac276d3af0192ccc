// Package notifications follows the backend's server-sent notification
// stream and keeps the bell inbox for the signed-in viewer.
package notifications

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"Skillnet/internal/core/notify"
)

const (
	// StreamPath is the backend's notification stream endpoint
	StreamPath = "/auth/notifications"

	// DefaultRetryDelay is the pause between reconnect attempts
	DefaultRetryDelay = 5 * time.Second

	// DefaultInboxSize is how many notifications the inbox keeps
	DefaultInboxSize = 50

	maxFrameBytes = 64 * 1024
)

// Notification is one entry in the viewer's inbox
type Notification struct {
	CreatedAt  time.Time `json:"CreatedAt"`
	SenderID   string    `json:"SenderId"`
	ReceiverID string    `json:"ReceiverId"`
	Content    string    `json:"Content"`
}

// Streamer opens the raw event stream; backend.Client implements it
type Streamer interface {
	Stream(ctx context.Context, target string) (io.ReadCloser, error)
}

// Config configures a Stream
type Config struct {
	Source     Streamer
	Bus        *notify.Bus
	Logger     *slog.Logger
	RetryDelay time.Duration
	InboxSize  int
}

// Stream consumes notifications until its context ends, reconnecting after
// every failure. Received notifications go to the inbox, raise the "has new"
// flag and are published on the bus.
type Stream struct {
	source     Streamer
	bus        *notify.Bus
	logger     *slog.Logger
	inbox      []Notification
	retryDelay time.Duration
	inboxSize  int
	hasNew     bool
	mu         sync.Mutex
}

// NewStream creates a Stream. It does not connect until Start is called.
func NewStream(cfg Config) (*Stream, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("notifications: source is required")
	}
	s := &Stream{
		source:     cfg.Source,
		bus:        cfg.Bus,
		logger:     cfg.Logger,
		retryDelay: cfg.RetryDelay,
		inboxSize:  cfg.InboxSize,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	if s.inboxSize <= 0 {
		s.inboxSize = DefaultInboxSize
	}
	return s, nil
}

// Start runs until ctx is cancelled, reconnecting on errors
func (s *Stream) Start(ctx context.Context) error {
	s.logger.Info("starting notification stream")

	for {
		err := s.connect(ctx)
		if ctx.Err() != nil {
			s.logger.Info("notification stream shutting down")
			return ctx.Err()
		}
		s.logger.Warn("notification stream disconnected, retrying",
			"error", err, "retry_in", s.retryDelay)

		select {
		case <-ctx.Done():
			s.logger.Info("notification stream shutting down")
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

// connect reads one stream until it ends
func (s *Stream) connect(ctx context.Context) error {
	body, err := s.source.Stream(ctx, StreamPath)
	if err != nil {
		return fmt.Errorf("failed to open notification stream: %w", err)
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			s.logger.Debug("failed to close notification stream", "error", closeErr)
		}
	}()

	s.logger.Debug("connected to notification stream")

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) == 0 {
			s.dispatch(data.Bytes())
			data.Reset()
			continue
		}

		payload, ok := dataField(line)
		if !ok {
			continue
		}
		if data.Len() > 0 {
			data.WriteByte('\n')
		}
		data.Write(payload)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	// A frame may be cut off by the server closing the stream
	s.dispatch(data.Bytes())
	return io.EOF
}

// dataField extracts the payload of a data line. Queued notifications are
// delivered as bare JSON lines without the "data:" field name.
func dataField(line []byte) ([]byte, bool) {
	switch {
	case bytes.HasPrefix(line, []byte("data:")):
		payload := line[len("data:"):]
		return bytes.TrimPrefix(payload, []byte(" ")), true
	case bytes.HasPrefix(line, []byte("{")):
		return line, true
	default:
		// comments (":") and the event, id and retry fields
		return nil, false
	}
}

func (s *Stream) dispatch(frame []byte) {
	if len(bytes.TrimSpace(frame)) == 0 {
		return
	}

	var n Notification
	if err := json.Unmarshal(frame, &n); err != nil {
		s.logger.Warn("failed to parse notification", "error", err)
		return
	}
	s.receive(n)
}

func (s *Stream) receive(n Notification) {
	s.mu.Lock()
	s.inbox = append([]Notification{n}, s.inbox...)
	if len(s.inbox) > s.inboxSize {
		s.inbox = s.inbox[:s.inboxSize]
	}
	s.hasNew = true
	s.mu.Unlock()

	s.bus.Publish(notify.Event{Kind: notify.EventNotificationReceived, Text: n.Content})
}

// Inbox returns the received notifications, newest first
func (s *Stream) Inbox() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.inbox))
	copy(out, s.inbox)
	return out
}

// HasNew reports whether a notification arrived since the last MarkSeen
func (s *Stream) HasNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasNew
}

// MarkSeen clears the "has new" flag, as opening the bell does
func (s *Stream) MarkSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasNew = false
}
