// Package backendtest provides an in-memory Skillnet backend for tests. It
// speaks the same envelopes, cookie session and cutoff pagination as the
// real service.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const sessionCookie = "skillnet_session"

// DefaultPageSize matches the backend's page length
const DefaultPageSize = 10

// User is a registered account
type User struct {
	Username   string
	Password   string
	Name       string
	ProfilePic string
}

// Post is a stored post
type Post struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Author      string
	Content     string
	ID          uint64
	CommunityID uint64
	ProjectID   uint64
}

// Comment is a stored comment
type Comment struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    string
	Text      string
	ID        uint64
	PostID    uint64
}

// Project is a stored project
type Project struct {
	Owner       string
	Name        string
	About       string
	ID          uint64
	CommunityID uint64
}

// Community is a stored community
type Community struct {
	Owner string
	Name  string
	About string
	ID    uint64
}

// Notification is pushed to subscribed streams
type Notification struct {
	CreatedAt  time.Time `json:"CreatedAt"`
	SenderID   string    `json:"SenderId"`
	ReceiverID string    `json:"ReceiverId"`
	Content    string    `json:"Content"`
}

type failure struct {
	message string
	status  int
	times   int
}

// Server is a fake backend. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	users       map[string]*User
	sessions    map[string]string
	posts       map[uint64]*Post
	comments    map[uint64]*Comment
	projects    map[uint64]*Project
	communities map[string]*Community
	likes       map[uint64]map[string]bool
	failures    map[string]*failure
	requests    map[string]int
	streams     map[string][]chan Notification
	pending     map[string][]Notification
	done        chan struct{}

	// PageSize is the number of records per page
	PageSize int

	// ExplicitHasMore adds a HasMore field to every page
	ExplicitHasMore bool

	nextID uint64
	now    time.Time

	mu sync.Mutex
}

// New starts a fake backend that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:       make(map[string]*User),
		sessions:    make(map[string]string),
		posts:       make(map[uint64]*Post),
		comments:    make(map[uint64]*Comment),
		projects:    make(map[uint64]*Project),
		communities: make(map[string]*Community),
		likes:       make(map[uint64]map[string]bool),
		failures:    make(map[string]*failure),
		requests:    make(map[string]int),
		streams:     make(map[string][]chan Notification),
		pending:     make(map[string][]Notification),
		done:        make(chan struct{}),
		PageSize:    DefaultPageSize,
		now:         time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(func() {
		close(s.done)
		s.Close()
	})
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.track)

	r.Post("/login", s.handleLogin)

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/logout", s.handleLogout)
		r.Get("/user", s.handleUser)

		r.Get("/posts", s.handleListPosts)
		r.Post("/posts", s.handleCreatePost)
		r.Patch("/posts/{id}", s.handleUpdatePost)
		r.Delete("/posts/{id}", s.handleDeletePost)

		r.Post("/likes/{id}", s.handleLike)
		r.Delete("/likes/{id}", s.handleUnlike)

		r.Get("/comments", s.handleListComments)
		r.Post("/comments", s.handleCreateComment)
		r.Patch("/comments/{id}", s.handleUpdateComment)
		r.Delete("/comments/{id}", s.handleDeleteComment)

		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Patch("/projects/{id}", s.handleUpdateProject)
		r.Delete("/projects/{id}", s.handleDeleteProject)

		r.Get("/community/{name}", s.handleGetCommunity)

		r.Get("/notifications", s.handleNotifications)
	})
	return r
}

// track counts requests and serves injected failures
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests[key]++
		f := s.failures[key]
		var status int
		var msg string
		if f != nil && f.times > 0 {
			f.times--
			status, msg = f.status, f.message
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.viewer(r) == "" {
			writeError(w, http.StatusUnauthorized, "user is not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) viewer(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[c.Value]
}

// FailNext makes the next times requests to method+path answer status with
// the given error message.
func (s *Server) FailNext(method, path string, status, times int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &failure{status: status, times: times, message: message}
}

// Requests returns how many requests hit method+path
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// AddUser registers an account
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &User{Username: username, Password: password, Name: username}
}

// AddCommunity creates a community and returns its ID
func (s *Server) AddCommunity(name, owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.communities[name] = &Community{ID: id, Name: name, Owner: owner}
	return id
}

// AddPost stores a post and returns its ID. Newer posts get larger IDs.
func (s *Server) AddPost(author, content string, communityID, projectID uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPost(author, content, communityID, projectID)
}

func (s *Server) addPost(author, content string, communityID, projectID uint64) uint64 {
	id := s.id()
	ts := s.tick()
	s.posts[id] = &Post{
		ID: id, Author: author, Content: content,
		CommunityID: communityID, ProjectID: projectID,
		CreatedAt: ts, UpdatedAt: ts,
	}
	return id
}

// SeedPosts stores n global posts by author and returns their IDs, oldest first
func (s *Server) SeedPosts(author string, n int) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.addPost(author, fmt.Sprintf("post %d", i+1), 0, 0))
	}
	return out
}

// AddComment stores a comment on postID
func (s *Server) AddComment(postID uint64, author, text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	ts := s.tick()
	s.comments[id] = &Comment{ID: id, PostID: postID, Author: author, Text: text, CreatedAt: ts, UpdatedAt: ts}
	return id
}

// AddProject stores a project
func (s *Server) AddProject(communityID uint64, owner, name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.projects[id] = &Project{ID: id, CommunityID: communityID, Owner: owner, Name: name}
	return id
}

// SetLikes records likes on postID from the given users
func (s *Server) SetLikes(postID uint64, users ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(users))
	for _, u := range users {
		set[u] = true
	}
	s.likes[postID] = set
}

// Post returns a copy of a stored post
func (s *Server) Post(id uint64) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

// Notify delivers n to receiver's open streams, or queues it until one opens
func (s *Server) Notify(receiver string, n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ReceiverID = receiver
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.tick()
	}
	if len(s.streams[receiver]) == 0 {
		s.pending[receiver] = append(s.pending[receiver], n)
		return
	}
	for _, ch := range s.streams[receiver] {
		select {
		case ch <- n:
		default:
		}
	}
}

// id and tick must be called with s.mu held
func (s *Server) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Server) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "missing username or password")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "missing username or password")
		return
	}

	s.mu.Lock()
	u, ok := s.users[username]
	if !ok || u.Password != password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	token := uuid.NewString()
	s.sessions[token] = username
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(sessionCookie)
	s.mu.Lock()
	delete(s.sessions, c.Value)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	username := s.viewer(r)
	s.mu.Lock()
	u := s.users[username]
	s.mu.Unlock()

	writeData(w, map[string]any{
		"Username":   u.Username,
		"Name":       u.Name,
		"URL":        "/profile/" + u.Username,
		"ProfilePic": u.ProfilePic,
	})
}

// page returns up to PageSize IDs below cutoff from ids sorted descending
func (s *Server) page(ids []uint64, r *http.Request) ([]uint64, string, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	cutoff := uint64(0)
	if raw := r.URL.Query().Get("cutoff"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, "", err
		}
		cutoff = v
	}

	out := make([]uint64, 0, s.PageSize)
	for _, id := range ids {
		if cutoff != 0 && id >= cutoff {
			continue
		}
		out = append(out, id)
		if len(out) == s.PageSize {
			break
		}
	}

	next := ""
	if len(out) > 0 {
		q := r.URL.Query()
		q.Set("cutoff", strconv.FormatUint(out[len(out)-1], 10))
		next = s.URL + r.URL.Path + "?" + q.Encode()
	}
	return out, next, nil
}

func (s *Server) writePage(w http.ResponseWriter, key string, items []any, next string, more bool) {
	body := map[string]any{key: items, "NextPageURL": next}
	if len(items) == 0 {
		// The backend serialises an empty slice as null
		body[key] = nil
	}
	if s.ExplicitHasMore {
		body["HasMore"] = more
	}
	writeData(w, body)
}

func (s *Server) postView(p *Post, viewer string) map[string]any {
	comments := 0
	for _, c := range s.comments {
		if c.PostID == p.ID {
			comments++
		}
	}
	return map[string]any{
		"Post": map[string]any{
			"ID":        p.ID,
			"CreatedAt": p.CreatedAt,
			"UpdatedAt": p.UpdatedAt,
			"Content":   p.Content,
		},
		"User":         map[string]any{"Name": p.Author, "URL": "/profile/" + p.Author, "ProfilePic": ""},
		"IsEditable":   p.Author == viewer,
		"Liked":        s.likes[p.ID][viewer],
		"LikeCount":    len(s.likes[p.ID]),
		"CommentCount": comments,
	}
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	viewer := s.viewer(r)
	q := r.URL.Query()
	community, _ := strconv.ParseUint(q.Get("community"), 10, 64)
	project, _ := strconv.ParseUint(q.Get("project"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uint64
	for id, p := range s.posts {
		if community != 0 && p.CommunityID != community {
			continue
		}
		if project != 0 && p.ProjectID != project {
			continue
		}
		ids = append(ids, id)
	}
	total := len(ids)

	pageIDs, next, err := s.page(ids, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cutoff")
		return
	}
	items := make([]any, 0, len(pageIDs))
	for _, id := range pageIDs {
		items = append(items, s.postView(s.posts[id], viewer))
	}
	s.writePage(w, "Posts", items, next, remaining(ids, pageIDs, total))
}

// remaining reports whether any ID in ids sorts after the last of page
func remaining(ids, page []uint64, total int) bool {
	if len(page) == 0 || total == 0 {
		return false
	}
	last := page[len(page)-1]
	for _, id := range ids {
		if id < last {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content     string `json:"content"`
		CommunityID uint64 `json:"communityID"`
		ProjectID   uint64 `json:"projectID"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusBadRequest, "cannot create post with empty content")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addPost(viewer, in.Content, in.CommunityID, in.ProjectID)
	writeData(w, s.postView(s.posts[id], viewer))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusBadRequest, "cannot update post with empty content")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if p.Author != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	p.Content = in.Content
	p.UpdatedAt = s.tick()
	writeData(w, s.postView(p, viewer))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if p.Author != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	delete(s.posts, id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post deleted successfully"})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false)
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if s.likes[id] == nil {
		s.likes[id] = make(map[string]bool)
	}
	if liked {
		s.likes[id][viewer] = true
	} else {
		delete(s.likes[id], viewer)
	}
	writeData(w, map[string]any{"LikeCount": len(s.likes[id])})
}

func (s *Server) commentView(c *Comment, viewer string) map[string]any {
	return map[string]any{
		"Comment": map[string]any{
			"ID":        c.ID,
			"CreatedAt": c.CreatedAt,
			"UpdatedAt": c.UpdatedAt,
			"Text":      c.Text,
		},
		"User":       map[string]any{"Name": c.Author, "URL": "/profile/" + c.Author, "ProfilePic": ""},
		"IsEditable": c.Author == viewer,
	}
}

// commentCount must be called with s.mu held
func (s *Server) commentCount(postID uint64) int {
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseUint(r.URL.Query().Get("post"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id, c := range s.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	total := len(ids)
	pageIDs, next, err := s.page(ids, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cutoff")
		return
	}
	items := make([]any, 0, len(pageIDs))
	for _, id := range pageIDs {
		items = append(items, s.commentView(s.comments[id], viewer))
	}
	s.writePage(w, "Comments", items, next, remaining(ids, pageIDs, total))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseUint(r.URL.Query().Get("post"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "cannot create comment with empty text")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	id := s.id()
	ts := s.tick()
	c := &Comment{ID: id, PostID: postID, Author: viewer, Text: in.Text, CreatedAt: ts, UpdatedAt: ts}
	s.comments[id] = c
	writeData(w, map[string]any{
		"Comment":      s.commentView(c, viewer),
		"CommentCount": s.commentCount(postID),
	})
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment ID")
		return
	}
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "cannot update comment with empty text")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if c.Author != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	c.Text = in.Text
	c.UpdatedAt = s.tick()
	writeData(w, s.commentView(c, viewer))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment ID")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if c.Author != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	delete(s.comments, id)
	writeData(w, map[string]any{"CommentCount": s.commentCount(c.PostID)})
}

func (s *Server) projectView(p *Project) map[string]any {
	community := ""
	for _, c := range s.communities {
		if c.ID == p.CommunityID {
			community = c.Name
		}
	}
	return map[string]any{
		"ID":        p.ID,
		"Name":      p.Name,
		"Community": community,
		"URL":       fmt.Sprintf("/projects/%d", p.ID),
	}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	community, _ := strconv.ParseUint(q.Get("community"), 10, 64)
	username := q.Get("username")

	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id, p := range s.projects {
		if community != 0 && p.CommunityID != community {
			continue
		}
		if username != "" && p.Owner != username {
			continue
		}
		ids = append(ids, id)
	}
	total := len(ids)
	pageIDs, next, err := s.page(ids, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cutoff")
		return
	}
	items := make([]any, 0, len(pageIDs))
	for _, id := range pageIDs {
		items = append(items, s.projectView(s.projects[id]))
	}
	s.writePage(w, "projects", items, next, remaining(ids, pageIDs, total))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"Name"`
		About       string `json:"About"`
		CommunityID uint64 `json:"communityID"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "project name is required")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	p := &Project{ID: id, Name: in.Name, About: in.About, CommunityID: in.CommunityID, Owner: viewer}
	s.projects[id] = p
	writeData(w, s.projectView(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}
	var in struct {
		Name        string `json:"Name"`
		ProjectInfo string `json:"projectInfo"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project update")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if p.Owner != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	p.About = in.ProjectInfo
	writeData(w, s.projectView(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if p.Owner != viewer {
		writeError(w, http.StatusForbidden, "user is not the owner")
		return
	}
	delete(s.projects, id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Project deleted"})
}

func (s *Server) handleGetCommunity(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid community name")
		return
	}
	viewer := s.viewer(r)

	s.mu.Lock()
	c, ok := s.communities[name]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "community not found")
		return
	}
	writeData(w, map[string]any{
		"Community": map[string]any{
			"ID":    c.ID,
			"Name":  c.Name,
			"About": c.About,
			"Owner": map[string]any{"Name": c.Owner},
		},
		"IsOwner": c.Owner == viewer,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	viewer := s.viewer(r)
	ch := make(chan Notification, 16)

	s.mu.Lock()
	pending := s.pending[viewer]
	delete(s.pending, viewer)
	s.streams[viewer] = append(s.streams[viewer], ch)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		streams := s.streams[viewer]
		for i, c := range streams {
			if c == ch {
				s.streams[viewer] = append(streams[:i], streams[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// Queued notifications are written without the data: prefix, as the
	// backend does.
	for _, n := range pending {
		b, _ := json.Marshal(n)
		fmt.Fprintf(w, "%s\n\n", b)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case n := <-ch:
			b, _ := json.Marshal(n)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
