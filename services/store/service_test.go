package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"watchdeck/internal/database"
	"watchdeck/models"
	"watchdeck/services/store"
)

func newTestService(t *testing.T) *store.Service {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewService(db)
}

func movieRecord(providerID, title string, year int) models.ContentRecord {
	return models.ContentRecord{
		ProviderName: "TMDB",
		ProviderID:   providerID,
		Title:        title,
		Kind:         models.KindMovie,
		Year:         year,
		Genres:       []string{"Drama"},
	}
}

func TestUpsertAssignsStableLocalID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.UpsertContent(ctx, movieRecord("27205", "Inception", 2010))
	require.NoError(t, err)
	require.NotEmpty(t, first.LocalID)

	// Same provider key with fresher data must update in place.
	updated := movieRecord("27205", "Inception", 2010)
	updated.Overview = "A thief who steals corporate secrets."
	second, err := svc.UpsertContent(ctx, updated)
	require.NoError(t, err)

	require.Equal(t, first.LocalID, second.LocalID)
	require.Equal(t, "A thief who steals corporate secrets.", second.Overview)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestUpsertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertContent(ctx, models.ContentRecord{Title: "No Key", Kind: models.KindMovie})
	require.ErrorIs(t, err, store.ErrProviderKey)

	rec := movieRecord("1", "", 0)
	_, err = svc.UpsertContent(ctx, rec)
	require.ErrorIs(t, err, store.ErrTitleRequired)

	rec = movieRecord("1", "Bad Kind", 0)
	rec.Kind = "DOCUMENTARY"
	_, err = svc.UpsertContent(ctx, rec)
	require.ErrorIs(t, err, store.ErrInvalidKind)
}

func TestUpsertSeriesStoresSeasonSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec := movieRecord("1396", "Breaking Bad", 2008)
	rec.Kind = models.KindSeries
	rec.Seasons = &models.SeasonSummary{SeasonCount: 5, EpisodeCount: 62, AirStatus: "Ended"}

	stored, err := svc.UpsertContent(ctx, rec)
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, stored.LocalID)
	require.NoError(t, err)
	require.NotNil(t, got.Seasons)
	require.Equal(t, 5, got.Seasons.SeasonCount)
	require.Equal(t, 62, got.Seasons.EpisodeCount)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetByID(context.Background(), "no-such-id")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchTrigramRanksAndFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := []models.ContentRecord{
		movieRecord("27205", "Inception", 2010),
		movieRecord("157336", "Interstellar", 2014),
		movieRecord("155", "The Dark Knight", 2008),
	}
	horror := movieRecord("346364", "It", 2017)
	horror.Genres = []string{"Horror"}
	seed = append(seed, horror)

	for _, rec := range seed {
		_, err := svc.UpsertContent(ctx, rec)
		require.NoError(t, err)
	}

	// Misspelled query still finds the right movie first.
	got, err := svc.SearchTrigram(ctx, models.ParsedQuery{Text: "inceptoin"}, "", 10, 0.3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "Inception", got[0].Title)
	require.Greater(t, got[0].Similarity, 0.3)

	// Year filter narrows candidates before scoring.
	got, err = svc.SearchTrigram(ctx, models.ParsedQuery{Text: "inception", Year: 2014}, "", 10, 0.1)
	require.NoError(t, err)
	for _, c := range got {
		require.Equal(t, 2014, c.Year)
	}

	// Genre filter keeps only overlapping records.
	got, err = svc.SearchTrigram(ctx, models.ParsedQuery{Text: "it", Genres: []string{"Horror"}}, "", 10, 0.1)
	require.NoError(t, err)
	for _, c := range got {
		require.Contains(t, c.Genres, "Horror")
	}

	// Kind filter excludes everything when nothing matches.
	got, err = svc.SearchTrigram(ctx, models.ParsedQuery{Text: "inception"}, models.KindSeries, 10, 0.3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearchTrigramDescendingOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, rec := range []models.ContentRecord{
		movieRecord("1", "The Dark Knight", 2008),
		movieRecord("2", "The Dark Knight Rises", 2012),
	} {
		_, err := svc.UpsertContent(ctx, rec)
		require.NoError(t, err)
	}

	got, err := svc.SearchTrigram(ctx, models.ParsedQuery{Text: "the dark knight"}, "", 10, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "The Dark Knight", got[0].Title)
	require.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	again, err := svc.Seed(ctx)
	require.NoError(t, err)
	require.Zero(t, again)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, n, count)
}
