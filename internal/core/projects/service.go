package projects

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/notify"
)

// ListPath is the project list endpoint
const ListPath = "/auth/projects"

// Backend is the part of backend.Client the project service writes through
type Backend interface {
	Post(ctx context.Context, target string, body, out any) error
	Patch(ctx context.Context, target string, body, out any) error
	Delete(ctx context.Context, target string, out any) error
}

// Service writes projects. Every successful write marks the viewer's
// profile as changed.
type Service struct {
	backend Backend
	bus     *notify.Bus
	logger  *slog.Logger
	scope   func() feed.Scope
}

var _ feed.MutationChannel[ProjectMinimal] = (*Service)(nil)

// NewService creates a project service
func NewService(b Backend, bus *notify.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, bus: bus, logger: logger}
}

// Create adds a project
func (s *Service) Create(ctx context.Context, payload any) (ProjectMinimal, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return ProjectMinimal{}, err
	}
	// A community gallery only lists that community's projects
	if s.scope != nil {
		scope := s.scope()
		if !scope.IsResolved() {
			return ProjectMinimal{}, feed.ErrScopeUnresolved
		}
		if scope.Kind == feed.ScopeCommunity {
			if draft.CommunityID != 0 && draft.CommunityID != scope.ID {
				return ProjectMinimal{}, ErrScopeMismatch
			}
			draft.CommunityID = scope.ID
		}
	}

	body := map[string]any{
		"Name":        draft.Name,
		"About":       draft.About,
		"communityID": draft.CommunityID,
	}
	var p ProjectMinimal
	if err := s.backend.Post(ctx, ListPath, body, &p); err != nil {
		return ProjectMinimal{}, fmt.Errorf("create project: %w", err)
	}
	if p.ID == 0 {
		return ProjectMinimal{}, fmt.Errorf("create project: %w: missing ID", backend.ErrMalformedResponse)
	}

	s.profileChanged()
	return p, nil
}

// Update edits a project's name and description
func (s *Service) Update(ctx context.Context, id uint64, payload any) (ProjectMinimal, error) {
	draft, err := draftFrom(payload)
	if err != nil {
		return ProjectMinimal{}, err
	}

	body := map[string]any{
		"Name":        draft.Name,
		"projectInfo": draft.About,
	}
	var p ProjectMinimal
	if err := s.backend.Patch(ctx, itemPath(id), body, &p); err != nil {
		return ProjectMinimal{}, fmt.Errorf("update project %d: %w", id, err)
	}

	s.profileChanged()
	return p, nil
}

// Delete removes a project
func (s *Service) Delete(ctx context.Context, id uint64) error {
	if err := s.backend.Delete(ctx, itemPath(id), nil); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}

	s.profileChanged()
	return nil
}

// ToggleCounter always fails; projects carry no counter
func (s *Service) ToggleCounter(context.Context, uint64, bool) (feed.Counter, error) {
	return feed.Counter{}, ErrLikesUnsupported
}

func (s *Service) profileChanged() {
	s.bus.Publish(notify.Event{Kind: notify.EventProfileChanged})
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
	default:
		return Draft{}, fmt.Errorf("%w: %T", ErrInvalidDraft, payload)
	}
	if strings.TrimSpace(d.Name) == "" {
		return Draft{}, ErrNameRequired
	}
	return d, nil
}

// NewFeed builds a project gallery. scope is a community or a user; projects
// created in a community gallery are filed under that community.
func NewFeed(client *backend.Client, bus *notify.Bus, logger *slog.Logger, scope feed.Scope) (*feed.Feed[ProjectMinimal], error) {
	fetcher, err := backend.NewPageFetcher(client, backend.ProjectsKey)
	if err != nil {
		return nil, err
	}

	svc := NewService(client, bus, logger)
	f, err := feed.New(feed.Config[ProjectMinimal]{
		Fetcher:   fetcher,
		Factory:   FromRecord,
		Mutations: svc,
		Bus:       bus,
		Logger:    logger,
		BaseURL:   client.URL(ListPath),
		Noun:      "project",
		Scope:     scope,
	})
	if err != nil {
		return nil, err
	}
	svc.scope = f.Scope
	return f, nil
}
