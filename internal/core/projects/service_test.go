package projects

import (
	"context"
	"testing"

	"Skillnet/internal/backend"
	"Skillnet/internal/backend/backendtest"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedInClient(t *testing.T, srv *backendtest.Server) *backend.Client {
	t.Helper()
	srv.AddUser("ada", "hunter2")
	c, err := backend.NewClient(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "ada", "hunter2"))
	return c
}

func cards(n int) []feed.Entry[ProjectMinimal] {
	out := make([]feed.Entry[ProjectMinimal], 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, feed.Entry[ProjectMinimal]{Item: ProjectMinimal{ID: uint64(i)}})
	}
	return out
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name       string
		entries    []feed.Entry[ProjectMinimal]
		wantShown  int
		wantSeeAll bool
	}{
		{name: "empty", entries: nil, wantShown: 0},
		{name: "exactly four", entries: cards(4), wantShown: 4},
		{name: "five", entries: cards(5), wantShown: 4, wantSeeAll: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shown, seeAll := Preview(feed.Snapshot[ProjectMinimal]{Entries: tt.entries})
			assert.Len(t, shown, tt.wantShown)
			assert.Equal(t, tt.wantSeeAll, seeAll)
		})
	}
}

func TestPreview_SkipsDeleted(t *testing.T) {
	entries := cards(5)
	entries[1].Deleted = true

	shown, seeAll := Preview(feed.Snapshot[ProjectMinimal]{Entries: entries})
	assert.Len(t, shown, 4)
	assert.False(t, seeAll)
	assert.Equal(t, uint64(3), shown[1].ID)
}

func TestDraftValidation(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.Create(context.Background(), Draft{About: "no name"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(context.Background(), "just a string")
	assert.ErrorIs(t, err, ErrInvalidDraft)

	_, err = svc.ToggleCounter(context.Background(), 1, true)
	assert.ErrorIs(t, err, ErrLikesUnsupported)
}

func TestProjectFeed_UserScope(t *testing.T) {
	srv := backendtest.New(t)
	client := newLoggedInClient(t, srv)
	community := srv.AddCommunity("gophers", "bob")
	srv.AddProject(community, "ada", "parser")
	srv.AddProject(community, "bob", "not mine")
	srv.AddProject(0, "ada", "cli")

	f, err := NewFeed(client, nil, nil, feed.User("ada"))
	require.NoError(t, err)
	require.NoError(t, f.LoadMore(context.Background()))

	var names []string
	for _, p := range f.Snapshot().Visible() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"cli", "parser"}, names)
}

func TestProjectFeed_CreatePublishesProfileChanged(t *testing.T) {
	srv := backendtest.New(t)
	client := newLoggedInClient(t, srv)
	community := srv.AddCommunity("gophers", "bob")

	bus := notify.NewBus(nil)
	changed := 0
	bus.Subscribe(func(e notify.Event) {
		if e.Kind == notify.EventProfileChanged {
			changed++
		}
	})

	f, err := NewFeed(client, bus, nil, feed.Community(community))
	require.NoError(t, err)
	require.NoError(t, f.LoadMore(context.Background()))

	p, err := f.Create(context.Background(), Draft{Name: "gallery", About: "pics", CommunityID: community})
	require.NoError(t, err)
	assert.Equal(t, "gophers", p.Community)
	assert.Equal(t, 1, changed)

	updated, err := f.Update(context.Background(), p.ID, Draft{Name: "gallery v2", About: "more pics"})
	require.NoError(t, err)
	assert.Equal(t, "gallery v2", updated.Name)
	assert.Equal(t, "gallery v2", f.Snapshot().Entries[0].Item.Name)

	require.NoError(t, f.Delete(context.Background(), p.ID))
	assert.Equal(t, 3, changed)
	assert.Empty(t, f.Snapshot().Visible())
}

func TestProjectFeed_CreateFilesUnderCommunity(t *testing.T) {
	srv := backendtest.New(t)
	client := newLoggedInClient(t, srv)
	community := srv.AddCommunity("gophers", "bob")
	other := srv.AddCommunity("rustaceans", "bob")
	ctx := context.Background()

	f, err := NewFeed(client, nil, nil, feed.Community(community))
	require.NoError(t, err)
	require.NoError(t, f.LoadMore(ctx))

	p, err := f.Create(ctx, Draft{Name: "parser"})
	require.NoError(t, err)
	assert.Equal(t, "gophers", p.Community)

	_, err = f.Create(ctx, Draft{Name: "elsewhere", CommunityID: other})
	require.ErrorIs(t, err, ErrScopeMismatch)
	assert.Equal(t, 1, f.Snapshot().Len())

	// The stored project shows up in a fresh gallery of the community
	fresh, err := NewFeed(client, nil, nil, feed.Community(community))
	require.NoError(t, err)
	require.NoError(t, fresh.LoadMore(ctx))
	require.Equal(t, 1, fresh.Snapshot().Len())
	assert.Equal(t, p.ID, fresh.Snapshot().Entries[0].Item.ID)
}
