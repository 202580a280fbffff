package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"watchdeck/models"
	"watchdeck/utils/trigram"
)

var (
	ErrNotFound        = errors.New("content not found")
	ErrProviderKey     = errors.New("provider name and id are required")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidKind     = errors.New("invalid content kind")
)

// Weights applied to the non-title similarity channels. A strong
// overview or tagline match should never outrank a direct title match.
const (
	overviewWeight = 0.3
	taglineWeight  = 0.5
)

// Service is the local content store: a SQLite-backed cache of
// provider records supporting fuzzy full-text search and
// upsert-by-provider-key.
type Service struct {
	db *sql.DB
}

// NewService wraps an open database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const contentColumns = `local_id, provider_name, provider_id, title, original_title, kind,
	overview, tagline, genres, original_language, release_date, year, runtime_minutes,
	poster_path, backdrop_path, imdb_id, created_at, updated_at`

// SearchTrigram performs a fuzzy search over the cached content.
// Candidate rows are narrowed by kind and year in SQL; trigram
// similarity is computed per row across four channels and the maximum
// is kept:
//
//	max(sim(title), sim(originalTitle), 0.3*sim(overview), 0.5*sim(tagline))
//
// A row is eligible only if at least one channel passes the trigram
// match threshold and the weighted maximum reaches minSimilarity.
// Results are ordered by similarity descending, ties broken by year
// descending.
func (s *Service) SearchTrigram(ctx context.Context, parsed models.ParsedQuery, kind models.ContentKind, limit int, minSimilarity float64) ([]models.SearchCandidate, error) {
	query := "SELECT " + contentColumns + " FROM content WHERE 1=1"
	args := make([]any, 0, 2)
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	if parsed.Year != 0 {
		query += " AND year = ?"
		args = append(args, parsed.Year)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	defer rows.Close()

	candidates := make([]models.SearchCandidate, 0, 16)
	for rows.Next() {
		rec, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}

		if len(parsed.Genres) > 0 && !genresOverlap(rec.Genres, parsed.Genres) {
			continue
		}

		similarity, matched := scoreRecord(rec, parsed.Text)
		if !matched || similarity < minSimilarity {
			continue
		}

		candidates = append(candidates, models.SearchCandidate{ContentRecord: rec, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity == candidates[j].Similarity {
			return candidates[i].Year > candidates[j].Year
		}
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

// scoreRecord computes the weighted max-channel similarity for one
// record. The second return reports whether any individual channel
// passed the raw trigram-overlap threshold, which gates eligibility
// independently of the weighted score.
func scoreRecord(rec models.ContentRecord, text string) (float64, bool) {
	titleSim := trigram.Similarity(rec.Title, text)
	origSim := 0.0
	if rec.OriginalTitle != "" {
		origSim = trigram.Similarity(rec.OriginalTitle, text)
	}
	overviewSim := 0.0
	if rec.Overview != "" {
		overviewSim = trigram.Similarity(rec.Overview, text)
	}
	taglineSim := 0.0
	if rec.Tagline != "" {
		taglineSim = trigram.Similarity(rec.Tagline, text)
	}

	matched := titleSim >= trigram.MatchThreshold ||
		origSim >= trigram.MatchThreshold ||
		overviewSim >= trigram.MatchThreshold ||
		taglineSim >= trigram.MatchThreshold

	score := titleSim
	if origSim > score {
		score = origSim
	}
	if weighted := overviewSim * overviewWeight; weighted > score {
		score = weighted
	}
	if weighted := taglineSim * taglineWeight; weighted > score {
		score = weighted
	}

	return score, matched
}

func genresOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// UpsertContent inserts the record or, when a row with the same
// (provider_name, provider_id) key already exists, updates its
// descriptive fields in place. The stored record is returned; its
// LocalID is assigned on first insertion and never changes afterwards.
// For series carrying season data the companion season summary row is
// written as well. Safe to call concurrently for different keys and
// idempotent for the same key.
func (s *Service) UpsertContent(ctx context.Context, rec models.ContentRecord) (models.ContentRecord, error) {
	if strings.TrimSpace(rec.ProviderName) == "" || strings.TrimSpace(rec.ProviderID) == "" {
		return models.ContentRecord{}, ErrProviderKey
	}
	if strings.TrimSpace(rec.Title) == "" {
		return models.ContentRecord{}, ErrTitleRequired
	}
	if !rec.Kind.Valid() {
		return models.ContentRecord{}, ErrInvalidKind
	}

	genres, err := json.Marshal(nonNil(rec.Genres))
	if err != nil {
		return models.ContentRecord{}, fmt.Errorf("encode genres: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content (
			local_id, provider_name, provider_id, title, original_title, kind,
			overview, tagline, genres, original_language, release_date, year,
			runtime_minutes, poster_path, backdrop_path, imdb_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_name, provider_id) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			overview = excluded.overview,
			tagline = excluded.tagline,
			genres = excluded.genres,
			original_language = excluded.original_language,
			release_date = excluded.release_date,
			year = excluded.year,
			runtime_minutes = excluded.runtime_minutes,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			imdb_id = excluded.imdb_id,
			updated_at = CURRENT_TIMESTAMP`,
		uuid.NewString(), rec.ProviderName, rec.ProviderID, rec.Title,
		nullable(rec.OriginalTitle), string(rec.Kind), nullable(rec.Overview),
		nullable(rec.Tagline), string(genres), nullable(rec.OriginalLanguage),
		nullable(rec.ReleaseDate), rec.Year, rec.RuntimeMinutes,
		nullable(rec.PosterPath), nullable(rec.BackdropPath), nullable(rec.ExternalCrossID),
	)
	if err != nil {
		return models.ContentRecord{}, fmt.Errorf("upsert content: %w", err)
	}

	stored, err := s.getByProviderKey(ctx, rec.ProviderName, rec.ProviderID)
	if err != nil {
		return models.ContentRecord{}, err
	}

	if rec.Kind == models.KindSeries && rec.Seasons != nil {
		if err := s.UpsertSeasonSummary(ctx, stored.LocalID, *rec.Seasons); err != nil {
			return models.ContentRecord{}, err
		}
		stored.Seasons = rec.Seasons
	}

	return stored, nil
}

// UpsertSeasonSummary writes the at-most-one season summary row for a
// series content record.
func (s *Service) UpsertSeasonSummary(ctx context.Context, contentID string, sum models.SeasonSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO season_summary (content_id, season_count, episode_count, air_status, last_air_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			season_count = excluded.season_count,
			episode_count = excluded.episode_count,
			air_status = excluded.air_status,
			last_air_date = excluded.last_air_date`,
		contentID, sum.SeasonCount, sum.EpisodeCount,
		nullable(sum.AirStatus), nullable(sum.LastAirDate),
	)
	if err != nil {
		return fmt.Errorf("upsert season summary: %w", err)
	}
	return nil
}

// GetByID returns a single content record with its season summary when
// present. Returns ErrNotFound for unknown ids.
func (s *Service) GetByID(ctx context.Context, localID string) (*models.ContentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contentColumns+" FROM content WHERE local_id = ?", localID)
	rec, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	if rec.Kind == models.KindSeries {
		if err := s.attachSeasons(ctx, &rec); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

func (s *Service) getByProviderKey(ctx context.Context, providerName, providerID string) (models.ContentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contentColumns+" FROM content WHERE provider_name = ? AND provider_id = ?",
		providerName, providerID)
	rec, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ContentRecord{}, fmt.Errorf("get content by provider key: %w", err)
	}
	return rec, nil
}

// ListAll returns every cached content record, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.ContentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contentColumns+" FROM content ORDER BY created_at DESC, title ASC")
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	records := make([]models.ContentRecord, 0, 32)
	for rows.Next() {
		rec, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of cached content records.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content").Scan(&n); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (models.ContentRecord, error) {
	var (
		rec          models.ContentRecord
		kind         string
		genres       string
		origTitle    sql.NullString
		overview     sql.NullString
		tagline      sql.NullString
		origLanguage sql.NullString
		releaseDate  sql.NullString
		runtime      sql.NullInt64
		posterPath   sql.NullString
		backdropPath sql.NullString
		imdbID       sql.NullString
	)

	err := row.Scan(
		&rec.LocalID, &rec.ProviderName, &rec.ProviderID, &rec.Title, &origTitle,
		&kind, &overview, &tagline, &genres, &origLanguage, &releaseDate,
		&rec.Year, &runtime, &posterPath, &backdropPath, &imdbID,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return models.ContentRecord{}, err
	}

	rec.Kind = models.ContentKind(kind)
	rec.OriginalTitle = origTitle.String
	rec.Overview = overview.String
	rec.Tagline = tagline.String
	rec.OriginalLanguage = origLanguage.String
	rec.ReleaseDate = releaseDate.String
	rec.PosterPath = posterPath.String
	rec.BackdropPath = backdropPath.String
	rec.ExternalCrossID = imdbID.String
	if runtime.Valid {
		minutes := int(runtime.Int64)
		rec.RuntimeMinutes = &minutes
	}
	if err := json.Unmarshal([]byte(genres), &rec.Genres); err != nil {
		return models.ContentRecord{}, fmt.Errorf("decode genres: %w", err)
	}

	return rec, nil
}

func (s *Service) attachSeasons(ctx context.Context, rec *models.ContentRecord) error {
	var (
		sum         models.SeasonSummary
		airStatus   sql.NullString
		lastAirDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT season_count, episode_count, air_status, last_air_date
		FROM season_summary WHERE content_id = ?`, rec.LocalID,
	).Scan(&sum.SeasonCount, &sum.EpisodeCount, &airStatus, &lastAirDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get season summary: %w", err)
	}
	sum.AirStatus = airStatus.String
	sum.LastAirDate = lastAirDate.String
	rec.Seasons = &sum
	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nonNil(genres []string) []string {
	if genres == nil {
		return []string{}
	}
	return genres
}
