package discovery

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"watchdeck/models"
)

var ErrQueryTooShort = errors.New("search query must be at least 2 characters")

// LocalStore is the slice of the content store the pipeline consumes:
// fuzzy search and upsert-by-provider-key.
type LocalStore interface {
	SearchTrigram(ctx context.Context, parsed models.ParsedQuery, kind models.ContentKind, limit int, minSimilarity float64) ([]models.SearchCandidate, error)
	UpsertContent(ctx context.Context, rec models.ContentRecord) (models.ContentRecord, error)
}

// MetadataProvider resolves a query text against the external catalog
// and returns fully mapped content records ready for caching. An empty
// kind searches both movies and series.
type MetadataProvider interface {
	FetchCandidates(ctx context.Context, queryText string, kind models.ContentKind, maxResults int) ([]models.ContentRecord, error)
}

// Options tunes the search pipeline.
type Options struct {
	// PageSize caps the result list and is the count at which the
	// confidence gate is satisfied without consulting the provider.
	PageSize int
	// ConfidenceFloor is the top-result similarity at which local
	// results alone are considered good enough.
	ConfidenceFloor float64
	// MinSimilarity is the floor for the initial local search.
	MinSimilarity float64
	// RelaxedSimilarity is the lower floor used for the post-cache
	// re-query, low enough to pick up just-cached rows.
	RelaxedSimilarity float64
}

// DefaultOptions returns the standard pipeline tuning.
func DefaultOptions() Options {
	return Options{
		PageSize:          10,
		ConfidenceFloor:   0.7,
		MinSimilarity:     0.3,
		RelaxedSimilarity: 0.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.ConfidenceFloor <= 0 {
		o.ConfidenceFloor = d.ConfidenceFloor
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = d.MinSimilarity
	}
	if o.RelaxedSimilarity <= 0 {
		o.RelaxedSimilarity = d.RelaxedSimilarity
	}
	return o
}

// Service runs the content discovery pipeline: parse the query, search
// the local cache, and when the local results are not convincing, pull
// candidates from the metadata provider, cache them, and merge the two
// sets into one relevance-ranked page.
type Service struct {
	store    LocalStore
	provider MetadataProvider
	opts     Options
	now      func() time.Time
}

// NewService wires the pipeline to its two collaborators.
func NewService(store LocalStore, provider MetadataProvider, opts Options) *Service {
	return &Service{
		store:    store,
		provider: provider,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Search resolves free text into a relevance-ordered page of content
// records. Provider failures degrade to local-only results; a local
// store failure aborts the search.
func (s *Service) Search(ctx context.Context, text string, kind models.ContentKind) ([]models.ContentRecord, error) {
	if len([]rune(text)) < 2 {
		return nil, ErrQueryTooShort
	}

	parsed := Parse(text)

	local, err := s.store.SearchTrigram(ctx, parsed, kind, s.opts.PageSize, s.opts.MinSimilarity)
	if err != nil {
		return nil, err
	}

	if Satisfied(local, s.opts.PageSize, s.opts.ConfidenceFloor) {
		return records(local), nil
	}

	budget := s.opts.PageSize - len(local)
	fetched, err := s.provider.FetchCandidates(ctx, parsed.Text, kind, budget)
	if err != nil {
		// The external catalog being unreachable is not the caller's
		// problem: degrade to whatever the local cache produced.
		log.Printf("[discovery] provider search failed, returning local-only results: %v", err)
		return records(local), nil
	}
	if len(fetched) == 0 {
		return records(local), nil
	}

	fresh := s.cacheAll(ctx, fetched)
	if len(fresh) == 0 {
		return records(local), nil
	}

	return s.mergeResults(ctx, parsed, kind, local, fresh), nil
}

// Satisfied is the confidence gate: local results suffice when they
// fill the page, or when the best match clears the confidence floor.
func Satisfied(local []models.SearchCandidate, pageSize int, confidenceFloor float64) bool {
	if len(local) >= pageSize {
		return true
	}
	return len(local) > 0 && local[0].Similarity >= confidenceFloor
}

// cacheAll upserts the fetched records concurrently. A failed upsert
// drops that candidate only; siblings and the request proceed.
func (s *Service) cacheAll(ctx context.Context, fetched []models.ContentRecord) []models.ContentRecord {
	p := pool.NewWithResults[*models.ContentRecord]().WithMaxGoroutines(4)
	for _, rec := range fetched {
		rec := rec
		p.Go(func() *models.ContentRecord {
			stored, err := s.store.UpsertContent(ctx, rec)
			if err != nil {
				log.Printf("[discovery] failed to cache %s %q: %v", rec.ProviderKey(), rec.Title, err)
				return nil
			}
			return &stored
		})
	}

	results := p.Wait()
	fresh := make([]models.ContentRecord, 0, len(results))
	for _, stored := range results {
		if stored != nil {
			fresh = append(fresh, *stored)
		}
	}
	return fresh
}

// mergeResults prefers the re-query strategy: with the fresh rows
// cached, one relaxed-floor local search scores old and new candidates
// consistently and the store's provider-key uniqueness rules out
// duplicates. If the relaxed scan comes back unusable the plain union
// ranking takes over.
func (s *Service) mergeResults(ctx context.Context, parsed models.ParsedQuery, kind models.ContentKind, local []models.SearchCandidate, fresh []models.ContentRecord) []models.ContentRecord {
	requeried, err := s.store.SearchTrigram(ctx, parsed, kind, s.opts.PageSize, s.opts.RelaxedSimilarity)
	if err != nil {
		log.Printf("[discovery] post-cache re-query failed, falling back to union merge: %v", err)
		return s.MergeAndRank(local, fresh, s.opts.PageSize)
	}
	if len(requeried) == 0 {
		return s.MergeAndRank(local, fresh, s.opts.PageSize)
	}
	return records(requeried)
}

// Relevance bonuses for the union merge strategy.
const (
	recencyBonus   = 0.1
	recencyWindow  = 2 // years
	freshnessBonus = 0.15
)

// MergeAndRank concatenates local candidates with freshly cached
// provider records, deduplicates by local id keeping the local entry,
// scores every survivor with the composite relevance formula, and
// returns the top entries.
func (s *Service) MergeAndRank(local []models.SearchCandidate, fresh []models.ContentRecord, limit int) []models.ContentRecord {
	currentYear := s.now().Year()

	merged := make([]models.SearchCandidate, 0, len(local)+len(fresh))
	seen := make(map[string]struct{}, len(local)+len(fresh))

	for _, cand := range local {
		if _, ok := seen[cand.LocalID]; ok {
			continue
		}
		seen[cand.LocalID] = struct{}{}
		cand.Similarity = relevanceScore(cand, currentYear)
		merged = append(merged, cand)
	}

	for _, rec := range fresh {
		if _, ok := seen[rec.LocalID]; ok {
			continue
		}
		seen[rec.LocalID] = struct{}{}
		cand := models.SearchCandidate{ContentRecord: rec, FromProvider: true}
		cand.Similarity = relevanceScore(cand, currentYear)
		merged = append(merged, cand)
	}

	// Stable sort keeps insertion order (local first) on score ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return records(merged)
}

// relevanceScore is the composite ranking number: the candidate's
// similarity plus a bonus for recent titles and a slight preference
// for records sourced fresh from the provider.
func relevanceScore(cand models.SearchCandidate, currentYear int) float64 {
	score := cand.Similarity
	if cand.Year >= currentYear-recencyWindow {
		score += recencyBonus
	}
	if cand.FromProvider {
		score += freshnessBonus
	}
	return score
}

func records(candidates []models.SearchCandidate) []models.ContentRecord {
	out := make([]models.ContentRecord, len(candidates))
	for i, cand := range candidates {
		out[i] = cand.ContentRecord
	}
	return out
}
