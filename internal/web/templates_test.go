package web

import (
	"net/http/httptest"
	"testing"
	"time"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/posts"
	"Skillnet/internal/core/projects"
	"Skillnet/internal/core/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplates(t *testing.T) {
	templates, err := NewTemplates()
	require.NoError(t, err)
	require.NotNil(t, templates)
}

func TestTemplatesRender_AllPages(t *testing.T) {
	templates, err := NewTemplates()
	require.NoError(t, err)

	data := PageData{
		Title: "Test",
		User:  backend.User{Username: "ada", Name: "Ada"},
		View: views.Snapshot{
			Key:          "posts:global",
			HasMore:      true,
			EmptyMessage: "No more posts to load.",
		},
		Posts: []PostCard{{
			ID:         1,
			AuthorName: "Ada",
			Content:    "hello",
			Preview:    "hello",
			CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			IsEditable: true,
		}},
		Comments: []CommentCard{{ID: 2, AuthorName: "Bob", Text: "hi there"}},
		Projects: []projects.ProjectMinimal{{ID: 3, Name: "compiler"}},
		Community: &communities.Resolution{
			Community: communities.Community{Name: "gophers", Owner: posts.Author{Name: "ada"}},
			IsOwner:   true,
		},
		ProjectsView: &views.Snapshot{Key: "projects:community:1"},
		SeeAll:       true,
		HasNew:       true,
	}

	for _, name := range []string{"login.html", "feed.html", "community.html", "comments.html", "projects.html"} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, templates.Render(w, name, data))
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
		})
	}
}

func TestTemplatesRender_FeedPage(t *testing.T) {
	templates, err := NewTemplates()
	require.NoError(t, err)

	data := PageData{
		Title: "Feed",
		User:  backend.User{Username: "ada"},
		View:  views.Snapshot{Key: "posts:global", HasMore: true},
		Posts: []PostCard{
			{ID: 1, AuthorName: "Ada", Preview: "<script>alert(1)</script>", LikeCount: 3, Liked: true},
			{ID: 2, AuthorName: "Bob", Deleted: true},
			{ID: 3, AuthorName: "Ada", EditDraft: "half-written edit"},
		},
		CreateDraft: "unsent post",
	}

	w := httptest.NewRecorder()
	require.NoError(t, templates.Render(w, "feed.html", data))
	body := w.Body.String()

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Unlike (3)")
	assert.Contains(t, body, "This post has been deleted.")
	assert.Contains(t, body, "half-written edit")
	assert.Contains(t, body, "unsent post")
	assert.Contains(t, body, `data-action="more"`)
}

func TestTemplatesRender_ErrorShowsRetry(t *testing.T) {
	templates, err := NewTemplates()
	require.NoError(t, err)

	data := PageData{
		Title: "Feed",
		User:  backend.User{Username: "ada"},
		View:  views.Snapshot{Key: "posts:global", Error: "Backend unavailable", HasMore: true},
	}

	w := httptest.NewRecorder()
	require.NoError(t, templates.Render(w, "feed.html", data))
	body := w.Body.String()

	assert.Contains(t, body, "Backend unavailable")
	assert.Contains(t, body, `data-action="retry"`)
	assert.NotContains(t, body, `data-action="more"`)
}

func TestTemplatesRender_NotFound(t *testing.T) {
	templates, err := NewTemplates()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	assert.Error(t, templates.Render(w, "nonexistent.html", nil))
	assert.Empty(t, w.Body.String())
}
