package notifications

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"Skillnet/internal/backend"
	"Skillnet/internal/backend/backendtest"
	"Skillnet/internal/core/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays one result per connection attempt, then blocks
// until the context ends.
type scriptedSource struct {
	results []func() (io.ReadCloser, error)
	calls   int
	mu      sync.Mutex
}

func (s *scriptedSource) Stream(ctx context.Context, target string) (io.ReadCloser, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if i < len(s.results) {
		return s.results[i]()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func body(text string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}
}

func received(bus *notify.Bus) <-chan string {
	ch := make(chan string, 16)
	bus.Subscribe(func(e notify.Event) {
		if e.Kind == notify.EventNotificationReceived {
			ch <- e.Text
		}
	})
	return ch
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}

func TestNewStream_RequiresSource(t *testing.T) {
	_, err := NewStream(Config{})
	assert.Error(t, err)
}

func TestStream_ParsesFrames(t *testing.T) {
	src := &scriptedSource{results: []func() (io.ReadCloser, error){
		body(": keep-alive\n\n" +
			`{"SenderId":"bob","Content":"queued"}` + "\n\n" +
			"event: message\n" +
			`data: {"SenderId":"carol","Content":"live"}` + "\n\n" +
			"data: not json\n\n" +
			`data:{"SenderId":"dan","Content":"no space"}`),
	}}
	bus := notify.NewBus(nil)
	got := received(bus)

	s, err := NewStream(Config{Source: src, Bus: bus, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Equal(t, "queued", waitFor(t, got))
	assert.Equal(t, "live", waitFor(t, got))
	assert.Equal(t, "no space", waitFor(t, got))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	inbox := s.Inbox()
	require.Len(t, inbox, 3)
	assert.Equal(t, "no space", inbox[0].Content)
	assert.Equal(t, "bob", inbox[2].SenderID)
}

func TestStream_ReconnectsAfterFailure(t *testing.T) {
	src := &scriptedSource{results: []func() (io.ReadCloser, error){
		func() (io.ReadCloser, error) { return nil, errors.New("connection refused") },
		body(`data: {"Content":"after retry"}` + "\n\n"),
	}}
	bus := notify.NewBus(nil)
	got := received(bus)

	s, err := NewStream(Config{Source: src, Bus: bus, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	assert.Equal(t, "after retry", waitFor(t, got))
	assert.GreaterOrEqual(t, src.callCount(), 2)
}

func TestStream_HasNewAndMarkSeen(t *testing.T) {
	s, err := NewStream(Config{Source: &scriptedSource{}, InboxSize: 2})
	require.NoError(t, err)
	assert.False(t, s.HasNew())

	s.receive(Notification{Content: "one"})
	s.receive(Notification{Content: "two"})
	s.receive(Notification{Content: "three"})
	assert.True(t, s.HasNew())

	inbox := s.Inbox()
	require.Len(t, inbox, 2)
	assert.Equal(t, "three", inbox[0].Content)

	s.MarkSeen()
	assert.False(t, s.HasNew())
	assert.Len(t, s.Inbox(), 2)
}

func TestStream_AgainstBackend(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddUser("ada", "hunter2")
	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "ada", "hunter2"))

	srv.Notify("ada", backendtest.Notification{SenderID: "bob", Content: "bob commented on your post"})

	bus := notify.NewBus(nil)
	got := received(bus)
	s, err := NewStream(Config{Source: client, Bus: bus, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Equal(t, "bob commented on your post", waitFor(t, got))

	srv.Notify("ada", backendtest.Notification{SenderID: "carol", Content: "carol liked your post"})
	assert.Equal(t, "carol liked your post", waitFor(t, got))
	assert.True(t, s.HasNew())

	cancel()
	<-done
}
