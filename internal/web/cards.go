package web

import (
	"time"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/comments"
	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/posts"
	"Skillnet/internal/core/projects"
	"Skillnet/internal/core/views"
)

// PostCard is a post as the feed template renders it
type PostCard struct {
	CreatedAt    time.Time
	AuthorName   string
	AuthorURL    string
	ProfilePic   string
	Content      string
	Preview      string
	EditDraft    string
	ID           uint64
	LikeCount    uint64
	CommentCount uint64
	Truncated    bool
	Edited       bool
	Liked        bool
	IsEditable   bool
	Deleted      bool
	Local        bool
}

// CommentCard is a comment as the thread template renders it
type CommentCard struct {
	CreatedAt  time.Time
	AuthorName string
	AuthorURL  string
	Text       string
	EditDraft  string
	ID         uint64
	Edited     bool
	IsEditable bool
	Deleted    bool
}

// PageData is passed to every page template
type PageData struct {
	Community    *communities.Resolution
	ProjectsView *views.Snapshot
	Title        string
	CreateDraft  string
	Error        string
	Next         string
	User         backend.User
	View         views.Snapshot
	Posts        []PostCard
	Comments     []CommentCard
	Projects     []projects.ProjectMinimal
	PostID       uint64
	SeeAll       bool
	HasNew       bool
}

// DeletedCommentText replaces the text of a tombstoned comment
const DeletedCommentText = comments.DeletedPlaceholder

func postCards(snap views.Snapshot, previewLimit int) []PostCard {
	entries, ok := snap.Entries.([]feed.Entry[posts.PostView])
	if !ok {
		return nil
	}

	cards := make([]PostCard, 0, len(entries))
	for _, e := range entries {
		v := e.Item
		preview, truncated := Preview(v.Post.Content, previewLimit)
		card := PostCard{
			CreatedAt:    v.Post.CreatedAt,
			AuthorName:   v.DisplayName(),
			AuthorURL:    v.User.URL,
			ProfilePic:   v.User.ProfilePic,
			Content:      v.Post.Content,
			Preview:      preview,
			ID:           v.Post.ID,
			LikeCount:    v.LikeCount,
			CommentCount: v.CommentCount,
			Truncated:    truncated,
			Edited:       v.Edited(),
			Liked:        v.Liked,
			IsEditable:   v.IsEditable,
			Deleted:      e.Deleted,
			Local:        e.Local,
		}
		if d, ok := snap.EditDrafts[v.Post.ID].(posts.Draft); ok {
			card.EditDraft = d.Content
		}
		cards = append(cards, card)
	}
	return cards
}

func commentCards(snap views.Snapshot) []CommentCard {
	entries, ok := snap.Entries.([]feed.Entry[comments.CommentView])
	if !ok {
		return nil
	}

	cards := make([]CommentCard, 0, len(entries))
	for _, e := range entries {
		v := e.Item
		card := CommentCard{
			CreatedAt:  v.Comment.CreatedAt,
			AuthorName: v.DisplayName(),
			AuthorURL:  v.User.URL,
			Text:       v.Comment.Text,
			ID:         v.Comment.ID,
			Edited:     v.Edited(),
			IsEditable: v.IsEditable,
			Deleted:    e.Deleted,
		}
		if e.Deleted {
			card.Text = DeletedCommentText
		}
		if d, ok := snap.EditDrafts[v.Comment.ID].(comments.Draft); ok {
			card.EditDraft = d.Text
		}
		cards = append(cards, card)
	}
	return cards
}

func projectCards(snap views.Snapshot) []projects.ProjectMinimal {
	entries, ok := snap.Entries.([]feed.Entry[projects.ProjectMinimal])
	if !ok {
		return nil
	}
	out := make([]projects.ProjectMinimal, 0, len(entries))
	for _, e := range entries {
		if !e.Deleted {
			out = append(out, e.Item)
		}
	}
	return out
}

// createDraft returns the text of a failed create so the form can be refilled
func createDraft(snap views.Snapshot) string {
	switch d := snap.CreateDraft.(type) {
	case posts.Draft:
		return d.Content
	case comments.Draft:
		return d.Text
	case projects.Draft:
		return d.Name
	default:
		return ""
	}
}
