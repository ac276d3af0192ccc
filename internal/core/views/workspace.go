package views

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/comments"
	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/notify"
	"Skillnet/internal/core/posts"
	"Skillnet/internal/core/projects"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxViews bounds how many views one session keeps mounted
const DefaultMaxViews = 16

// Deps are the collaborators every view of a session shares
type Deps struct {
	Client   *backend.Client
	Bus      *notify.Bus
	Resolver *communities.Resolver
	Logger   *slog.Logger
}

// Workspace holds the views one browser session has mounted. The least
// recently used view is closed once more than the configured number are open.
type Workspace struct {
	views  *lru.Cache[string, View]
	client *backend.Client
	bus    *notify.Bus
	res    *communities.Resolver
	logger *slog.Logger
}

// NewWorkspace creates a workspace. maxViews <= 0 uses DefaultMaxViews.
func NewWorkspace(deps Deps, maxViews int) (*Workspace, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("views: backend client is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("views: community resolver is required")
	}
	if maxViews <= 0 {
		maxViews = DefaultMaxViews
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.NewWithEvict[string, View](maxViews, func(key string, v View) {
		logger.Debug("unmounting view", "key", key)
		v.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create view cache: %w", err)
	}

	return &Workspace{
		views:  cache,
		client: deps.Client,
		bus:    deps.Bus,
		res:    deps.Resolver,
		logger: logger,
	}, nil
}

// Bus returns the session's event bus
func (w *Workspace) Bus() *notify.Bus {
	return w.bus
}

// Client returns the session's backend client
func (w *Workspace) Client() *backend.Client {
	return w.client
}

// View returns a mounted view
func (w *Workspace) View(key string) (View, bool) {
	return w.views.Get(key)
}

// Keys lists the mounted views, oldest first
func (w *Workspace) Keys() []string {
	return w.views.Keys()
}

// Unmount closes the view with key. It reports whether it was mounted.
func (w *Workspace) Unmount(key string) bool {
	return w.views.Remove(key)
}

// Close unmounts every view
func (w *Workspace) Close() {
	w.views.Purge()
}

// MountPosts mounts the post list for scope and loads its first page
func (w *Workspace) MountPosts(ctx context.Context, scope feed.Scope) (View, error) {
	key := string(KindPosts) + ":" + scope.Key()
	return w.mount(ctx, key, func() (View, error) {
		f, err := posts.NewFeed(w.client, w.bus, w.logger, scope)
		if err != nil {
			return nil, err
		}
		return postView(key, KindPosts, f), nil
	})
}

// MountCommunity mounts a community's post list. The feed stays
// uninitialized until the community name resolves to an ID.
func (w *Workspace) MountCommunity(ctx context.Context, name string) (View, error) {
	key := string(KindCommunity) + ":" + name
	if v, ok := w.views.Get(key); ok {
		return v, nil
	}

	f, err := posts.NewFeed(w.client, w.bus, w.logger, feed.Scope{})
	if err != nil {
		return nil, err
	}
	v := postView(key, KindCommunity, f)
	v.resolve = func(ctx context.Context) error {
		return w.resolveCommunity(ctx, name, v, f)
	}
	if prev, ok := w.add(key, v); ok {
		return prev, nil
	}

	if err := v.resolve(ctx); err != nil {
		return v, nil
	}
	w.initialLoad(ctx, v)
	return v, nil
}

// resolveCommunity binds the community feed to the ID behind name. On failure
// the error is kept for the snapshot and Retry tries again.
func (w *Workspace) resolveCommunity(ctx context.Context, name string, v *adapter[posts.PostView], f *feed.Feed[posts.PostView]) error {
	res, err := w.res.Resolve(ctx, name)
	if err != nil {
		w.logger.Warn("failed to resolve community", "name", name, "error", err)
		v.setCommunity(nil, err)
		return err
	}
	if err := f.Resolve(feed.Community(res.Community.ID)); err != nil {
		v.setCommunity(nil, err)
		return err
	}
	v.setCommunity(res, nil)
	return nil
}

// MountComments mounts the comment thread of postID
func (w *Workspace) MountComments(ctx context.Context, postID uint64) (View, error) {
	key := string(KindComments) + ":" + strconv.FormatUint(postID, 10)
	return w.mount(ctx, key, func() (View, error) {
		f, err := comments.NewFeed(w.client, w.bus, w.logger, postID)
		if err != nil {
			return nil, err
		}
		return &adapter[comments.CommentView]{
			feed:   f,
			decode: decodeInto[comments.Draft](),
			render: func(snap feed.Snapshot[comments.CommentView], out *Snapshot) {
				out.EmptyMessage = comments.EmptyMessage(snap)
			},
			key:  key,
			kind: KindComments,
		}, nil
	})
}

// MountProjects mounts a project gallery for a community or user scope
func (w *Workspace) MountProjects(ctx context.Context, scope feed.Scope) (View, error) {
	key := string(KindProjects) + ":" + scope.Key()
	return w.mount(ctx, key, func() (View, error) {
		f, err := projects.NewFeed(w.client, w.bus, w.logger, scope)
		if err != nil {
			return nil, err
		}
		return &adapter[projects.ProjectMinimal]{
			feed:   f,
			decode: decodeInto[projects.Draft](),
			render: func(snap feed.Snapshot[projects.ProjectMinimal], out *Snapshot) {
				_, out.SeeAll = projects.Preview(snap)
				if !snap.HasMore && len(snap.Visible()) == 0 {
					out.EmptyMessage = projects.EmptyMessage
				}
			},
			key:  key,
			kind: KindProjects,
		}, nil
	})
}

func (w *Workspace) mount(ctx context.Context, key string, build func() (View, error)) (View, error) {
	if v, ok := w.views.Get(key); ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", key, err)
	}
	if prev, ok := w.add(key, v); ok {
		return prev, nil
	}
	w.logger.Debug("view mounted", "key", key)

	w.initialLoad(ctx, v)
	return v, nil
}

// add mounts v under key unless a concurrent mount got there first, in which
// case v is closed and the existing view is returned
func (w *Workspace) add(key string, v View) (View, bool) {
	prev, ok, _ := w.views.PeekOrAdd(key, v)
	if ok {
		v.Close()
		return prev, true
	}
	return nil, false
}

// initialLoad fetches the first page. A failure is kept in the view's
// snapshot, where the page offers a retry.
func (w *Workspace) initialLoad(ctx context.Context, v View) {
	if err := v.LoadMore(ctx); err != nil {
		w.logger.Warn("initial page load failed", "key", v.Key(), "error", err)
	}
}

func postView(key string, kind Kind, f *feed.Feed[posts.PostView]) *adapter[posts.PostView] {
	return &adapter[posts.PostView]{
		feed:   f,
		decode: decodeInto[posts.Draft](),
		render: func(snap feed.Snapshot[posts.PostView], out *Snapshot) {
			out.EmptyMessage = posts.EmptyMessage(snap)
		},
		key:  key,
		kind: kind,
	}
}
