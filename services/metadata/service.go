package metadata

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"watchdeck/models"
)

// ProviderName identifies this catalog in content provider keys.
const ProviderName = "TMDB"

const detailFetchConcurrency = 4

// Service is the metadata provider facade: it searches the external
// catalog across both content kinds and expands summaries into fully
// mapped content records via per-candidate detail lookups.
type Service struct {
	client *tmdbClient
	genres *GenreCache
	now    func() time.Time
}

// NewService builds the provider around an API credential and an
// injected genre cache. An empty credential is not an error here; it
// surfaces on the first call.
func NewService(apiKey, language string, httpc *http.Client, genres *GenreCache) *Service {
	if genres == nil {
		genres = NewGenreCache()
	}
	return &Service{
		client: newTMDBClient(apiKey, language, httpc),
		genres: genres,
		now:    time.Now,
	}
}

// UpdateAPIKey swaps the provider credential, for config hot reload.
func (s *Service) UpdateAPIKey(apiKey, language string) {
	s.client = newTMDBClient(apiKey, language, s.client.httpc)
	s.genres.Invalidate()
}

// PrimeGenres fetches both genre tables into the cache. Safe to call
// again after Invalidate.
func (s *Service) PrimeGenres(ctx context.Context) error {
	movie, err := s.client.genreList(ctx, "movie")
	if err != nil {
		return fmt.Errorf("fetch movie genres: %w", err)
	}
	series, err := s.client.genreList(ctx, "tv")
	if err != nil {
		return fmt.Errorf("fetch tv genres: %w", err)
	}
	s.genres.load(movie, series)
	return nil
}

func (s *Service) ensureGenres(ctx context.Context) error {
	if s.genres.Primed() {
		return nil
	}
	return s.PrimeGenres(ctx)
}

// FetchCandidates searches the catalog for queryText and returns up to
// maxResults fully mapped records. An empty kind searches both movies
// and series; person results are always skipped. Detail lookups run
// concurrently and an individual failure only drops that candidate.
func (s *Service) FetchCandidates(ctx context.Context, queryText string, kind models.ContentKind, maxResults int) ([]models.ContentRecord, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	summaries, err := s.client.searchMulti(ctx, queryText, 1)
	if err != nil {
		return nil, fmt.Errorf("provider search: %w", err)
	}

	wanted := make([]tmdbSummary, 0, maxResults)
	for _, summary := range summaries {
		if len(wanted) >= maxResults {
			break
		}
		switch summary.MediaType {
		case "movie":
			if kind == "" || kind == models.KindMovie {
				wanted = append(wanted, summary)
			}
		case "tv":
			if kind == "" || kind == models.KindSeries {
				wanted = append(wanted, summary)
			}
		default:
			// people and unknown payload shapes are not content
		}
	}

	return s.fetchDetails(ctx, wanted), nil
}

// fetchDetails expands summaries into content records with one detail
// request each, issued as a concurrent batch.
func (s *Service) fetchDetails(ctx context.Context, summaries []tmdbSummary) []models.ContentRecord {
	p := pool.NewWithResults[*models.ContentRecord]().WithMaxGoroutines(detailFetchConcurrency)
	for _, summary := range summaries {
		summary := summary
		p.Go(func() *models.ContentRecord {
			rec, err := s.detail(ctx, summary)
			if err != nil {
				log.Printf("[metadata] detail fetch failed for %s/%d: %v", summary.MediaType, summary.ID, err)
				return nil
			}
			return rec
		})
	}

	results := p.Wait()
	records := make([]models.ContentRecord, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

func (s *Service) detail(ctx context.Context, summary tmdbSummary) (*models.ContentRecord, error) {
	switch summary.MediaType {
	case "movie":
		detail, err := s.client.movieDetail(ctx, summary.ID)
		if err != nil {
			return nil, err
		}
		rec := s.mapMovie(detail)
		return &rec, nil
	case "tv":
		detail, err := s.client.seriesDetail(ctx, summary.ID)
		if err != nil {
			return nil, err
		}
		rec := s.mapSeries(detail)
		return &rec, nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", summary.MediaType)
	}
}

// DiscoverByGenre returns popular movies for a genre name, resolved
// through the genre cache. Used by the catalog browse endpoint.
func (s *Service) DiscoverByGenre(ctx context.Context, genreName string, maxResults int) ([]models.ContentRecord, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	if err := s.ensureGenres(ctx); err != nil {
		return nil, err
	}

	genreID, ok := s.genres.IDForName(models.KindMovie, genreName)
	if !ok {
		return nil, fmt.Errorf("unknown genre %q", genreName)
	}

	summaries, err := s.client.discoverMovies(ctx, genreID, 1)
	if err != nil {
		return nil, fmt.Errorf("provider discover: %w", err)
	}

	// Discover results carry no media_type tag; they are movies.
	for i := range summaries {
		summaries[i].MediaType = "movie"
	}
	if len(summaries) > maxResults {
		summaries = summaries[:maxResults]
	}

	return s.fetchDetails(ctx, summaries), nil
}

func (s *Service) mapMovie(detail *tmdbMovieDetail) models.ContentRecord {
	rec := models.ContentRecord{
		ProviderName:     ProviderName,
		ProviderID:       strconv.FormatInt(detail.ID, 10),
		Title:            detail.Title,
		OriginalTitle:    detail.OriginalTitle,
		Kind:             models.KindMovie,
		Overview:         detail.Overview,
		Tagline:          detail.Tagline,
		Genres:           genreNames(detail.Genres),
		OriginalLanguage: detail.OriginalLanguage,
		ReleaseDate:      detail.ReleaseDate,
		Year:             s.extractYear(detail.ReleaseDate),
		PosterPath:       detail.PosterPath,
		BackdropPath:     detail.BackdropPath,
		ExternalCrossID:  strings.TrimSpace(detail.IMDBID),
	}
	if detail.Runtime > 0 {
		runtime := detail.Runtime
		rec.RuntimeMinutes = &runtime
	}
	return rec
}

func (s *Service) mapSeries(detail *tmdbSeriesDetail) models.ContentRecord {
	rec := models.ContentRecord{
		ProviderName:     ProviderName,
		ProviderID:       strconv.FormatInt(detail.ID, 10),
		Title:            detail.Name,
		OriginalTitle:    detail.OriginalName,
		Kind:             models.KindSeries,
		Overview:         detail.Overview,
		Tagline:          detail.Tagline,
		Genres:           genreNames(detail.Genres),
		OriginalLanguage: detail.OriginalLanguage,
		ReleaseDate:      detail.FirstAirDate,
		Year:             s.extractYear(detail.FirstAirDate),
		PosterPath:       detail.PosterPath,
		BackdropPath:     detail.BackdropPath,
	}
	rec.RuntimeMinutes = meanRuntime(detail.EpisodeRunTime)
	if detail.NumberOfSeasons > 0 {
		rec.Seasons = &models.SeasonSummary{
			SeasonCount:  detail.NumberOfSeasons,
			EpisodeCount: detail.NumberOfEpisodes,
			AirStatus:    detail.Status,
			LastAirDate:  detail.LastAirDate,
		}
	}
	return rec
}

// meanRuntime averages per-episode runtimes to a whole minute count,
// or nil when the provider supplied none.
func meanRuntime(runtimes []int) *int {
	if len(runtimes) == 0 {
		return nil
	}
	total := 0
	for _, r := range runtimes {
		total += r
	}
	mean := int(math.Round(float64(total) / float64(len(runtimes))))
	return &mean
}

// extractYear parses the leading 4-digit year of a provider date
// string, defaulting to the current calendar year when unparseable. A
// record is never rejected over a bad date.
func (s *Service) extractYear(date string) int {
	if len(date) >= 4 {
		if year, err := strconv.Atoi(date[:4]); err == nil && year > 0 {
			return year
		}
	}
	return s.now().Year()
}

func genreNames(genres []tmdbGenre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}
