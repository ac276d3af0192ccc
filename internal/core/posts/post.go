package posts

import (
	"encoding/json"
	"fmt"
	"time"

	"Skillnet/internal/core/feed"
)

// AnonymousName is shown when a post's author has no display name
const AnonymousName = "Anonymous User"

// Empty-state text under the post list
const (
	NoMorePostsMessage = "No more posts to load."
	NoPostsMessage     = "No posts yet."
)

// Author is the minimal profile shown next to posts and comments
type Author struct {
	Name       string `json:"Name"`
	URL        string `json:"URL"`
	ProfilePic string `json:"ProfilePic"`
}

// Post is the stored post record
type Post struct {
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
	Content   string    `json:"Content"`
	ID        uint64    `json:"ID"`
}

// PostView is a post as the signed-in viewer sees it
type PostView struct {
	User         Author `json:"User"`
	Post         Post   `json:"Post"`
	LikeCount    uint64 `json:"LikeCount"`
	CommentCount uint64 `json:"CommentCount"`
	IsEditable   bool   `json:"IsEditable"`
	Liked        bool   `json:"Liked"`
}

var _ feed.CounterPatcher[PostView] = PostView{}

// ItemID implements feed.Item
func (v PostView) ItemID() uint64 {
	return v.Post.ID
}

// CounterActive reports whether the viewer has liked the post
func (v PostView) CounterActive() bool {
	return v.Liked
}

// WithCounter returns a copy carrying the server's like count
func (v PostView) WithCounter(c feed.Counter) PostView {
	v.LikeCount = c.Value
	v.Liked = c.Active
	return v
}

// Edited reports whether the post changed after creation
func (v PostView) Edited() bool {
	return !v.Post.UpdatedAt.Equal(v.Post.CreatedAt)
}

// DisplayName is the author name with the anonymous fallback
func (v PostView) DisplayName() string {
	if v.User.Name == "" {
		return AnonymousName
	}
	return v.User.Name
}

// FromRecord decodes one entry of a post page
func FromRecord(raw json.RawMessage) (PostView, error) {
	var v PostView
	if err := json.Unmarshal(raw, &v); err != nil {
		return PostView{}, fmt.Errorf("decode post: %w", err)
	}
	if v.Post.ID == 0 {
		return PostView{}, fmt.Errorf("decode post: missing ID")
	}
	return v, nil
}

// Draft is the payload for creating or editing a post
type Draft struct {
	Content     string `json:"content"`
	CommunityID uint64 `json:"communityID,omitempty"`
	ProjectID   uint64 `json:"projectID,omitempty"`
}

// EmptyMessage is the footer text for a post list
func EmptyMessage(snap feed.Snapshot[PostView]) string {
	if snap.HasMore {
		return ""
	}
	if len(snap.Visible()) == 0 {
		return NoPostsMessage
	}
	return NoMorePostsMessage
}
