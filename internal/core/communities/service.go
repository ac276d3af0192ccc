package communities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"Skillnet/internal/backend"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	communityPath = "/auth/community/"

	// DefaultCacheSize bounds how many names a Resolver remembers
	DefaultCacheSize = 256

	// DefaultCacheTTL is how long a resolution is reused
	DefaultCacheTTL = 5 * time.Minute
)

type cachedResolution struct {
	expiresAt  time.Time
	resolution Resolution
}

// Resolver turns a community name from the URL into the numeric ID that
// scopes the community's feeds. Results are kept in a bounded LRU cache.
type Resolver struct {
	backend Backend
	cache   *lru.Cache[string, cachedResolution]
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewResolver creates a Resolver. size <= 0 uses DefaultCacheSize and
// ttl <= 0 uses DefaultCacheTTL.
func NewResolver(b Backend, size int, ttl time.Duration, logger *slog.Logger) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, cachedResolution](size)
	if err != nil {
		return nil, fmt.Errorf("create community cache: %w", err)
	}

	return &Resolver{
		backend: b,
		cache:   cache,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Resolve returns the community called name and whether the viewer owns it
func (r *Resolver) Resolve(ctx context.Context, name string) (*Resolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if cached, ok := r.cache.Get(name); ok {
		if r.now().Before(cached.expiresAt) {
			res := cached.resolution
			return &res, nil
		}
		r.cache.Remove(name)
	}

	var res Resolution
	if err := r.backend.Get(ctx, communityPath+url.PathEscape(name), &res); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCommunityNotFound, name)
		}
		return nil, fmt.Errorf("resolve community %q: %w", name, err)
	}
	if res.Community.ID == 0 {
		return nil, fmt.Errorf("resolve community %q: %w: missing ID", name, backend.ErrMalformedResponse)
	}

	r.cache.Add(name, cachedResolution{resolution: res, expiresAt: r.now().Add(r.ttl)})
	r.logger.Debug("community resolved", "name", name, "community_id", res.Community.ID)
	return &res, nil
}

// ResolveID returns only the community's ID
func (r *Resolver) ResolveID(ctx context.Context, name string) (uint64, error) {
	res, err := r.Resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	return res.Community.ID, nil
}

// Invalidate drops name from the cache, e.g. after the community is edited
func (r *Resolver) Invalidate(name string) {
	r.cache.Remove(strings.TrimSpace(name))
}
