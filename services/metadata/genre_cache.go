package metadata

import (
	"strings"
	"sync"

	"watchdeck/models"
)

// GenreCache holds the provider's genre-id-to-name tables for both
// content kinds. It is an explicit dependency of the Service rather
// than hidden package state: callers prime it once (Service.PrimeGenres)
// and can invalidate it to force a re-fetch, which keeps cold-start and
// test-isolation behavior visible.
type GenreCache struct {
	mu     sync.RWMutex
	movie  map[int64]string
	series map[int64]string
}

// NewGenreCache returns an empty, unprimed cache.
func NewGenreCache() *GenreCache {
	return &GenreCache{}
}

// Primed reports whether the cache holds genre tables.
func (g *GenreCache) Primed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.movie != nil && g.series != nil
}

// Invalidate drops the cached tables; the next prime re-fetches them.
func (g *GenreCache) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.movie = nil
	g.series = nil
}

func (g *GenreCache) load(movie, series []tmdbGenre) {
	movieMap := make(map[int64]string, len(movie))
	for _, genre := range movie {
		movieMap[genre.ID] = genre.Name
	}
	seriesMap := make(map[int64]string, len(series))
	for _, genre := range series {
		seriesMap[genre.ID] = genre.Name
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.movie = movieMap
	g.series = seriesMap
}

// Name resolves a genre id to its display name for the given kind.
func (g *GenreCache) Name(kind models.ContentKind, id int64) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	name, ok := g.table(kind)[id]
	return name, ok
}

// IDForName resolves a genre display name (case-insensitive) to its
// provider id for the given kind.
func (g *GenreCache) IDForName(kind models.ContentKind, name string) (int64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, candidate := range g.table(kind) {
		if strings.EqualFold(candidate, name) {
			return id, true
		}
	}
	return 0, false
}

// table must be called with the lock held.
func (g *GenreCache) table(kind models.ContentKind) map[int64]string {
	if kind == models.KindSeries {
		return g.series
	}
	return g.movie
}
