package communities

import "Skillnet/internal/core/posts"

// Community is the community record returned by the backend
type Community struct {
	Name  string       `json:"Name"`
	About string       `json:"About"`
	Owner posts.Author `json:"Owner"`
	ID    uint64       `json:"ID"`
}

// Resolution is what a community page needs before it can show its feeds
type Resolution struct {
	Community Community `json:"Community"`
	IsOwner   bool      `json:"IsOwner"`
}
