package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/notify"

	"github.com/rivo/uniseg"
)

const (
	// ListPath is the post list endpoint
	ListPath = "/auth/posts"

	likesPath = "/auth/likes"

	// maxPostGraphemes is the maximum length for post content in graphemes
	maxPostGraphemes = 10000
)

// Service writes posts through the backend. It implements
// feed.MutationChannel[PostView].
type Service struct {
	backend Backend
	logger  *slog.Logger
	// scope reports the list the service creates into; nil leaves drafts as given
	scope func() feed.Scope
}

var _ feed.MutationChannel[PostView] = (*Service)(nil)

// NewService creates a post service
func NewService(b Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, logger: logger}
}

// Create publishes a new post and returns it as the server stored it
func (s *Service) Create(ctx context.Context, payload any) (PostView, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return PostView{}, err
	}
	if s.scope != nil {
		if draft, err = scopeDraft(draft, s.scope()); err != nil {
			return PostView{}, err
		}
	}

	var view PostView
	if err := s.backend.Post(ctx, ListPath, draft, &view); err != nil {
		return PostView{}, fmt.Errorf("create post: %w", err)
	}
	if view.Post.ID == 0 {
		return PostView{}, fmt.Errorf("create post: %w: missing ID", backend.ErrMalformedResponse)
	}
	return view, nil
}

// Update replaces a post's content
func (s *Service) Update(ctx context.Context, id uint64, payload any) (PostView, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return PostView{}, err
	}

	var view PostView
	body := map[string]string{"content": draft.Content}
	if err := s.backend.Patch(ctx, itemPath(id), body, &view); err != nil {
		return PostView{}, fmt.Errorf("update post %d: %w", id, err)
	}
	return view, nil
}

// Delete removes a post
func (s *Service) Delete(ctx context.Context, id uint64) error {
	if err := s.backend.Delete(ctx, itemPath(id), nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

// ToggleCounter likes (active) or unlikes a post and returns the server's
// like count
func (s *Service) ToggleCounter(ctx context.Context, id uint64, active bool) (feed.Counter, error) {
	var out struct {
		LikeCount uint64 `json:"LikeCount"`
	}

	target := fmt.Sprintf("%s/%d", likesPath, id)
	var err error
	if active {
		err = s.backend.Post(ctx, target, nil, &out)
	} else {
		err = s.backend.Delete(ctx, target, &out)
	}
	if err != nil {
		return feed.Counter{}, fmt.Errorf("set like on post %d: %w", id, err)
	}

	s.logger.Debug("like updated", "post_id", id, "liked", active, "like_count", out.LikeCount)
	return feed.Counter{Value: out.LikeCount, Active: active}, nil
}

// scopeDraft files a new post under the community or project being listed
func scopeDraft(d Draft, scope feed.Scope) (Draft, error) {
	if !scope.IsResolved() {
		return Draft{}, feed.ErrScopeUnresolved
	}
	switch scope.Kind {
	case feed.ScopeCommunity:
		if d.CommunityID != 0 && d.CommunityID != scope.ID {
			return Draft{}, NewValidationError("communityID",
				"Posts created here belong to this community.", ErrScopeMismatch)
		}
		d.CommunityID = scope.ID
	case feed.ScopeProject:
		if d.ProjectID != 0 && d.ProjectID != scope.ID {
			return Draft{}, NewValidationError("projectID",
				"Posts created here belong to this project.", ErrScopeMismatch)
		}
		d.ProjectID = scope.ID
	}
	return d, nil
}

func itemPath(id uint64) string {
	return fmt.Sprintf("%s/%d", ListPath, id)
}

func draftFrom(payload any) (Draft, error) {
	var d Draft
	switch p := payload.(type) {
	case Draft:
		d = p
	case *Draft:
		if p == nil {
			return Draft{}, ErrInvalidDraft
		}
		d = *p
	case string:
		d = Draft{Content: p}
	default:
		return Draft{}, fmt.Errorf("%w: %T", ErrInvalidDraft, payload)
	}
	return d, ValidateContent(d.Content)
}

// ValidateContent checks post content before it is sent
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "Post content cannot be empty.", ErrContentEmpty)
	}
	if uniseg.GraphemeClusterCount(content) > maxPostGraphemes {
		return NewValidationError("content",
			fmt.Sprintf("Post content cannot exceed %d characters.", maxPostGraphemes), ErrContentTooLong)
	}
	return nil
}

// NewFeed builds the post list for scope, wired to the backend through
// client. Posts created through the feed are filed under its current
// community or project scope. Comment counts are kept in sync with comment
// mutations published on bus until the feed is closed.
func NewFeed(client *backend.Client, bus *notify.Bus, logger *slog.Logger, scope feed.Scope) (*feed.Feed[PostView], error) {
	fetcher, err := backend.NewPageFetcher(client, backend.PostsKey)
	if err != nil {
		return nil, err
	}

	svc := NewService(client, logger)
	f, err := feed.New(feed.Config[PostView]{
		Fetcher:   fetcher,
		Factory:   FromRecord,
		Mutations: svc,
		Bus:       bus,
		Logger:    logger,
		BaseURL:   client.URL(ListPath),
		Noun:      "post",
		Scope:     scope,
	})
	if err != nil {
		return nil, err
	}

	svc.scope = f.Scope
	f.OnClose(TrackCommentCounts(f, bus))
	return f, nil
}

// TrackCommentCounts patches CommentCount on f whenever a comment is added
// or removed elsewhere. The subscription ends when f is closed or when the
// returned function is called.
func TrackCommentCounts(f *feed.Feed[PostView], bus *notify.Bus) func() {
	var (
		mu          sync.Mutex
		unsubscribe func()
	)
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}

	mu.Lock()
	unsubscribe = bus.Subscribe(func(e notify.Event) {
		if e.Kind != notify.EventCommentCountChanged {
			return
		}
		if f.Closed() {
			stop()
			return
		}
		f.Patch(e.PostID, func(v PostView) PostView {
			v.CommentCount = e.Count
			return v
		})
	})
	mu.Unlock()

	return stop
}
