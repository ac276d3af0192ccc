package comments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/notify"

	"github.com/rivo/uniseg"
)

const (
	// ListPath is the comment list endpoint
	ListPath = "/auth/comments"

	// maxCommentGraphemes is the maximum length for comment text in graphemes
	maxCommentGraphemes = 10000
)

// Service writes the comments of one post. Creates and deletes publish the
// server's new comment count so other views of the post can follow it.
type Service struct {
	backend Backend
	bus     *notify.Bus
	logger  *slog.Logger
	postID  uint64
}

var _ feed.MutationChannel[CommentView] = (*Service)(nil)

// NewService creates a comment service for postID
func NewService(b Backend, bus *notify.Bus, logger *slog.Logger, postID uint64) (*Service, error) {
	if postID == 0 {
		return nil, ErrPostRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, bus: bus, logger: logger, postID: postID}, nil
}

// PostID is the post whose comments this service writes
func (s *Service) PostID() uint64 {
	return s.postID
}

// Create adds a comment to the post
func (s *Service) Create(ctx context.Context, payload any) (CommentView, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return CommentView{}, err
	}

	var out struct {
		Comment      CommentView `json:"Comment"`
		CommentCount uint64      `json:"CommentCount"`
	}
	target := ListPath + "?post=" + strconv.FormatUint(s.postID, 10)
	if err := s.backend.Post(ctx, target, draft, &out); err != nil {
		return CommentView{}, fmt.Errorf("create comment on post %d: %w", s.postID, err)
	}
	if out.Comment.Comment.ID == 0 {
		return CommentView{}, fmt.Errorf("create comment: %w: missing ID", backend.ErrMalformedResponse)
	}

	s.countChanged(out.CommentCount)
	return out.Comment, nil
}

// Update replaces a comment's text
func (s *Service) Update(ctx context.Context, id uint64, payload any) (CommentView, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return CommentView{}, err
	}

	var view CommentView
	if err := s.backend.Patch(ctx, itemPath(id), draft, &view); err != nil {
		return CommentView{}, fmt.Errorf("update comment %d: %w", id, err)
	}
	return view, nil
}

// Delete removes a comment
func (s *Service) Delete(ctx context.Context, id uint64) error {
	var out struct {
		CommentCount uint64 `json:"CommentCount"`
	}
	if err := s.backend.Delete(ctx, itemPath(id), &out); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	s.countChanged(out.CommentCount)
	return nil
}

// ToggleCounter always fails; comments carry no counter
func (s *Service) ToggleCounter(context.Context, uint64, bool) (feed.Counter, error) {
	return feed.Counter{}, ErrLikesUnsupported
}

func (s *Service) countChanged(count uint64) {
	s.logger.Debug("comment count changed", "post_id", s.postID, "comment_count", count)
	s.bus.Publish(notify.Event{
		Kind:   notify.EventCommentCountChanged,
		PostID: s.postID,
		Count:  count,
	})
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
		d = Draft{Text: p}
	default:
		return Draft{}, fmt.Errorf("%w: %T", ErrInvalidDraft, payload)
	}
	return d, ValidateText(d.Text)
}

// ValidateText checks comment text before it is sent
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: "Comment cannot be empty.", Err: ErrContentEmpty}
	}
	if uniseg.GraphemeClusterCount(text) > maxCommentGraphemes {
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("Comment cannot exceed %d characters.", maxCommentGraphemes),
			Err:     ErrContentTooLong,
		}
	}
	return nil
}

// NewFeed builds the comment thread of postID
func NewFeed(client *backend.Client, bus *notify.Bus, logger *slog.Logger, postID uint64) (*feed.Feed[CommentView], error) {
	svc, err := NewService(client, bus, logger, postID)
	if err != nil {
		return nil, err
	}
	fetcher, err := backend.NewPageFetcher(client, backend.CommentsKey)
	if err != nil {
		return nil, err
	}

	return feed.New(feed.Config[CommentView]{
		Fetcher:   fetcher,
		Factory:   FromRecord,
		Mutations: svc,
		Bus:       bus,
		Logger:    logger,
		BaseURL:   client.URL(ListPath),
		Noun:      "comment",
		Scope:     feed.Post(postID),
	})
}
