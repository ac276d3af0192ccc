package feed

import (
	"fmt"
	"net/url"
	"strconv"
)

// ScopeKind selects which subset of items a feed loads
type ScopeKind int

const (
	scopeUnset ScopeKind = iota
	ScopeGlobal
	ScopeCommunity
	ScopeProject
	ScopePost
	// ScopeUser filters project galleries by owner
	ScopeUser
)

// Query keys understood by the backend
const (
	CommunityQueryKey = "community"
	ProjectQueryKey   = "project"
	PostQueryKey      = "post"
	UsernameQueryKey  = "username"
)

// Scope is the filter a feed is bound to. The zero value is unresolved.
type Scope struct {
	Username string
	Kind     ScopeKind
	ID       uint64
}

// Global is the unfiltered scope
func Global() Scope { return Scope{Kind: ScopeGlobal} }

// Community scopes a feed to one community
func Community(id uint64) Scope { return Scope{Kind: ScopeCommunity, ID: id} }

// Project scopes a feed to one project
func Project(id uint64) Scope { return Scope{Kind: ScopeProject, ID: id} }

// Post scopes a comment thread to one post
func Post(id uint64) Scope { return Scope{Kind: ScopePost, ID: id} }

// User scopes a project gallery to one owner
func User(username string) Scope { return Scope{Kind: ScopeUser, Username: username} }

// IsResolved reports whether the scope has been set
func (s Scope) IsResolved() bool {
	return s.Kind != scopeUnset
}

// Validate checks that the scope carries the identifier its kind requires
func (s Scope) Validate() error {
	switch s.Kind {
	case scopeUnset:
		return ErrScopeUnresolved
	case ScopeGlobal:
		return nil
	case ScopeCommunity, ScopeProject, ScopePost:
		if s.ID == 0 {
			return fmt.Errorf("%w: %s scope requires a non-zero id", ErrInvalidScope, s.Kind)
		}
		return nil
	case ScopeUser:
		if s.Username == "" {
			return fmt.Errorf("%w: user scope requires a username", ErrInvalidScope)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidScope, int(s.Kind))
	}
}

// Key is a stable identifier for the scope, e.g. "community:12"
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeGlobal:
		return "global"
	case ScopeCommunity, ScopeProject, ScopePost:
		return s.Kind.String() + ":" + strconv.FormatUint(s.ID, 10)
	case ScopeUser:
		return "user:" + s.Username
	default:
		return "unresolved"
	}
}

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeCommunity:
		return "community"
	case ScopeProject:
		return "project"
	case ScopePost:
		return "post"
	case ScopeUser:
		return "user"
	default:
		return "unresolved"
	}
}

// BuildURL appends the single query qualifier for scope to base.
// The global scope leaves base unqualified.
func BuildURL(base string, scope Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	q := u.Query()
	switch scope.Kind {
	case ScopeCommunity:
		q.Set(CommunityQueryKey, strconv.FormatUint(scope.ID, 10))
	case ScopeProject:
		q.Set(ProjectQueryKey, strconv.FormatUint(scope.ID, 10))
	case ScopePost:
		q.Set(PostQueryKey, strconv.FormatUint(scope.ID, 10))
	case ScopeUser:
		q.Set(UsernameQueryKey, scope.Username)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ParseScope reads a scope back from query parameters, the inverse of
// BuildURL. No qualifier means the global scope; more than one is invalid.
func ParseScope(q url.Values) (Scope, error) {
	var scopes []Scope
	for _, key := range []string{CommunityQueryKey, ProjectQueryKey, PostQueryKey} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return Scope{}, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidScope, key)
		}
		switch key {
		case CommunityQueryKey:
			scopes = append(scopes, Community(id))
		case ProjectQueryKey:
			scopes = append(scopes, Project(id))
		case PostQueryKey:
			scopes = append(scopes, Post(id))
		}
	}
	if username := q.Get(UsernameQueryKey); username != "" {
		scopes = append(scopes, User(username))
	}

	switch len(scopes) {
	case 0:
		return Global(), nil
	case 1:
		return scopes[0], nil
	default:
		return Scope{}, fmt.Errorf("%w: only one qualifier is allowed", ErrInvalidScope)
	}
}
