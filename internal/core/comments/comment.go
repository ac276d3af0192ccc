package comments

import (
	"encoding/json"
	"fmt"
	"time"

	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/posts"
)

// Text shown in the comment thread
const (
	NoCommentsMessage     = "Be the first to comment!"
	NoMoreCommentsMessage = "No more comments to load."
	DeletedPlaceholder    = "This comment has been deleted."
)

// Comment is the stored comment record
type Comment struct {
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
	Text      string    `json:"Text"`
	ID        uint64    `json:"ID"`
}

// CommentView is a comment as the signed-in viewer sees it
type CommentView struct {
	User       posts.Author `json:"User"`
	Comment    Comment      `json:"Comment"`
	IsEditable bool         `json:"IsEditable"`
}

// ItemID implements feed.Item
func (v CommentView) ItemID() uint64 {
	return v.Comment.ID
}

// Edited reports whether the comment changed after creation
func (v CommentView) Edited() bool {
	return !v.Comment.UpdatedAt.Equal(v.Comment.CreatedAt)
}

// DisplayName is the author name with the anonymous fallback
func (v CommentView) DisplayName() string {
	if v.User.Name == "" {
		return posts.AnonymousName
	}
	return v.User.Name
}

// FromRecord decodes one entry of a comment page
func FromRecord(raw json.RawMessage) (CommentView, error) {
	var v CommentView
	if err := json.Unmarshal(raw, &v); err != nil {
		return CommentView{}, fmt.Errorf("decode comment: %w", err)
	}
	if v.Comment.ID == 0 {
		return CommentView{}, fmt.Errorf("decode comment: missing ID")
	}
	return v, nil
}

// Draft is the payload for creating or editing a comment
type Draft struct {
	Text string `json:"text"`
}

// EmptyMessage is the footer text for a comment thread
func EmptyMessage(snap feed.Snapshot[CommentView]) string {
	if snap.HasMore {
		return ""
	}
	if snap.Len() == 0 {
		return NoCommentsMessage
	}
	return NoMoreCommentsMessage
}
