package service

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/cache"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/store"
)

// Cache keys. Every key starts with allArtifactsPrefix.
const (
	artifactKeyPrefix  = "artifact:"
	listingKeyPrefix   = "artifacts:"
	listKey            = listingKeyPrefix + "list"
	searchKeyPrefix    = listingKeyPrefix + "search:"
	statsKey           = listingKeyPrefix + "stats"
	allArtifactsPrefix = "artifact"
)

// ArtifactKey is the cache key of a single artifact.
func ArtifactKey(id uuid.UUID) string { return artifactKeyPrefix + id.String() }

// SearchKey is the cache key of a search. Searches ignore case, so the key
// does too.
func SearchKey(term string) string { return searchKeyPrefix + strings.ToLower(term) }

// CachedArtifactStore decorates a store.ArtifactStore with a read-through
// result cache. Writes go to the underlying store first and then invalidate
// the keys they may have made stale. A read that overlaps an invalidation
// is served but not cached.
type CachedArtifactStore struct {
	next   store.ArtifactStore
	cache  *cache.ResultCache
	logger *slog.Logger

	getByID func(context.Context, uuid.UUID) (*domain.Artifact, error)
	list    func(context.Context, struct{}) ([]*domain.Artifact, error)
	search  func(context.Context, string) ([]*domain.Artifact, error)
	counts  func(context.Context, struct{}) (map[domain.Difficulty]int, error)
}

var _ store.ArtifactStore = (*CachedArtifactStore)(nil)

// NewCachedArtifactStore wraps next with c.
// If logger is nil, a default logger will be used.
func NewCachedArtifactStore(next store.ArtifactStore, c *cache.ResultCache, logger *slog.Logger) *CachedArtifactStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &CachedArtifactStore{
		next:   next,
		cache:  c,
		logger: logger.With(slog.String("component", "cached_artifact_store")),
	}

	s.getByID = cache.Memoize(c, ArtifactKey, 0, next.GetByID)
	s.list = cache.Memoize(c, constKey(listKey), 0, s.listUncached)
	s.search = cache.Memoize(c, SearchKey, 0, next.Search)
	s.counts = cache.Memoize(c, constKey(statsKey), 0, s.countsUncached)

	return s
}

func constKey(key string) func(struct{}) string {
	return func(struct{}) string {
		return key
	}
}

func (s *CachedArtifactStore) listUncached(ctx context.Context, _ struct{}) ([]*domain.Artifact, error) {
	return s.next.List(ctx)
}

func (s *CachedArtifactStore) countsUncached(ctx context.Context, _ struct{}) (map[domain.Difficulty]int, error) {
	return s.next.CountByDifficulty(ctx)
}

// Save writes through to the underlying store. A save may replace another
// artifact with the same title, so every cached artifact entry is dropped.
func (s *CachedArtifactStore) Save(ctx context.Context, a *domain.Artifact) error {
	if err := s.next.Save(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx, "save", s.cache.DeletePrefix(allArtifactsPrefix))
	return nil
}

// Delete removes the artifact and invalidates its entry and every listing.
func (s *CachedArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ArtifactKey(id))
	s.invalidate(ctx, "delete", s.cache.DeletePrefix(listingKeyPrefix))
	return nil
}

func (s *CachedArtifactStore) invalidate(ctx context.Context, op string, removed int) {
	logger.FromContextOrDefault(ctx, s.logger).Debug("cache invalidated",
		slog.String("operation", op),
		slog.Int("removed", removed))
}

// GetByID serves cached artifacts as copies.
func (s *CachedArtifactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	a, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// List serves the cached listing as copies.
func (s *CachedArtifactStore) List(ctx context.Context) ([]*domain.Artifact, error) {
	artifacts, err := s.list(ctx, struct{}{})
	if err != nil {
		return nil, err
	}
	return cloneAll(artifacts), nil
}

// Search serves cached search results as copies.
func (s *CachedArtifactStore) Search(ctx context.Context, term string) ([]*domain.Artifact, error) {
	artifacts, err := s.search(ctx, term)
	if err != nil {
		return nil, err
	}
	return cloneAll(artifacts), nil
}

// CountByDifficulty serves a copy of the cached counts.
func (s *CachedArtifactStore) CountByDifficulty(ctx context.Context) (map[domain.Difficulty]int, error) {
	counts, err := s.counts(ctx, struct{}{})
	if err != nil {
		return nil, err
	}
	return maps.Clone(counts), nil
}

func cloneAll(in []*domain.Artifact) []*domain.Artifact {
	out := make([]*domain.Artifact, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
