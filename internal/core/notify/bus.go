// Package notify carries user-facing notifications and cross-view events.
// Views publish to a Bus instead of sharing mutable flags.
package notify

import (
	"log/slog"
	"sync"
)

// Level is the severity of a toast notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient toast shown to the user
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EventKind identifies what an Event carries
type EventKind int

const (
	// EventToast carries a Notification for display
	EventToast EventKind = iota + 1
	// EventCommentCountChanged carries the server-computed comment count of a post
	EventCommentCountChanged
	// EventProfileChanged signals that cached profile data should be refetched
	EventProfileChanged
	// EventNotificationReceived signals a new entry in the notification inbox
	EventNotificationReceived
)

func (k EventKind) String() string {
	switch k {
	case EventToast:
		return "toast"
	case EventCommentCountChanged:
		return "comment_count_changed"
	case EventProfileChanged:
		return "profile_changed"
	case EventNotificationReceived:
		return "notification_received"
	default:
		return "unknown"
	}
}

// Event is a single message on the Bus.
// Only the fields relevant to Kind are set.
type Event struct {
	Toast  *Notification `json:"toast,omitempty"`
	Text   string        `json:"text,omitempty"`
	Kind   EventKind     `json:"-"`
	PostID uint64        `json:"postId,omitempty"`
	Count  uint64        `json:"count,omitempty"`
}

// Bus is a synchronous observer. Subscribers run on the publishing goroutine
// and must not block.
type Bus struct {
	subs   map[int]func(Event)
	logger *slog.Logger
	mu     sync.RWMutex
	nextID int
}

// NewBus creates an empty bus
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[int]func(Event)),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
// Calling Subscribe on a nil Bus is a no-op.
func (b *Bus) Subscribe(fn func(Event)) func() {
	if b == nil || fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of current subscribers
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers e to every current subscriber
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	b.logger.Debug("notify: publishing event", "kind", e.Kind.String(), "subscribers", len(fns))

	for _, fn := range fns {
		fn(e)
	}
}

// Toast publishes an EventToast
func (b *Bus) Toast(level Level, title, description string) {
	b.Publish(Event{
		Kind: EventToast,
		Toast: &Notification{
			Level:       level,
			Title:       title,
			Description: description,
		},
	})
}
