package store

import (
	"context"
	"fmt"
	"log"

	"watchdeck/models"
)

// Seed pre-populates an empty store with a handful of well-known
// titles so a fresh install has something to search before the first
// provider fetch. Records are upserted by provider key, so running the
// seed repeatedly is harmless. Returns the number of seeded records.
func (s *Service) Seed(ctx context.Context) (int, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("[store] seed skipped: %d records already cached", count)
		return 0, nil
	}

	minutes := func(m int) *int { return &m }

	seeds := []models.ContentRecord{
		{
			ProviderName: "TMDB", ProviderID: "11036",
			Title: "The Notebook", Kind: models.KindMovie,
			Genres: []string{"Romance", "Drama"}, Year: 2004,
			ReleaseDate: "2004-06-25", RuntimeMinutes: minutes(123),
		},
		{
			ProviderName: "TMDB", ProviderID: "313369",
			Title: "La La Land", Kind: models.KindMovie,
			Genres: []string{"Comedy", "Drama", "Music", "Romance"}, Year: 2016,
			ReleaseDate: "2016-11-29", RuntimeMinutes: minutes(128),
		},
		{
			ProviderName: "TMDB", ProviderID: "372058",
			Title: "Your Name", OriginalTitle: "君の名は。", Kind: models.KindMovie,
			Genres: []string{"Romance", "Animation", "Drama"}, Year: 2016,
			OriginalLanguage: "ja", ReleaseDate: "2016-08-26", RuntimeMinutes: minutes(106),
		},
		{
			ProviderName: "TMDB", ProviderID: "4348",
			Title: "Pride & Prejudice", Kind: models.KindMovie,
			Genres: []string{"Drama", "Romance"}, Year: 2005,
			ReleaseDate: "2005-09-16", RuntimeMinutes: minutes(127),
		},
		{
			ProviderName: "TMDB", ProviderID: "38",
			Title: "Eternal Sunshine of the Spotless Mind", Kind: models.KindMovie,
			Genres: []string{"Science Fiction", "Drama", "Romance"}, Year: 2004,
			ReleaseDate: "2004-03-19", RuntimeMinutes: minutes(108),
		},
		{
			ProviderName: "TMDB", ProviderID: "1396",
			Title: "Breaking Bad", Kind: models.KindSeries,
			Genres: []string{"Drama", "Crime"}, Year: 2008,
			ReleaseDate: "2008-01-20",
			Seasons: &models.SeasonSummary{
				SeasonCount: 5, EpisodeCount: 62,
				AirStatus: "Ended", LastAirDate: "2013-09-29",
			},
		},
		{
			ProviderName: "TMDB", ProviderID: "1399",
			Title: "Game of Thrones", Kind: models.KindSeries,
			Genres: []string{"Drama", "Fantasy", "Action"}, Year: 2011,
			ReleaseDate: "2011-04-17",
			Seasons: &models.SeasonSummary{
				SeasonCount: 8, EpisodeCount: 73,
				AirStatus: "Ended", LastAirDate: "2019-05-19",
			},
		},
	}

	for _, rec := range seeds {
		if _, err := s.UpsertContent(ctx, rec); err != nil {
			return 0, fmt.Errorf("seed %q: %w", rec.Title, err)
		}
	}

	log.Printf("[store] seeded %d records", len(seeds))
	return len(seeds), nil
}
