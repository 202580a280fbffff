package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"
)

var errNotConfigured = errors.New("tmdb api key not configured")

// retryStatusError marks an HTTP status worth retrying (rate limits
// and server errors).
type retryStatusError struct {
	status string
}

func (e *retryStatusError) Error() string {
	return "tmdb request failed: " + e.status
}

type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a rate-limited GET against the TMDB API, decoding the
// JSON response into v. Transient failures (network errors, 429, 5xx)
// are retried with exponential backoff.
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	if !c.isConfigured() {
		return errNotConfigured
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		params.Set("language", normalizeLanguage(lang))
	} else {
		params.Set("language", "en-US")
	}

	fullURL := tmdbBaseURL + endpoint + "?" + params.Encode()

	return retry.Do(
		func() error {
			c.throttle()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &retryStatusError{status: resp.Status}
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("tmdb request failed: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode tmdb response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *tmdbClient) throttle() {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()
	if since := time.Since(c.lastRequest); since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
}

// tmdbSummary is one lightweight entry of a multi-kind search page,
// discriminated by MediaType ("movie", "tv" or "person").
type tmdbSummary struct {
	ID           int64  `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"` // movies
	Name         string `json:"name"`  // series
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

type tmdbSearchResponse struct {
	Page         int           `json:"page"`
	Results      []tmdbSummary `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// searchMulti returns one page of mixed movie/series summaries.
func (c *tmdbClient) searchMulti(ctx context.Context, query string, page int) ([]tmdbSummary, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("include_adult", "false")

	var payload tmdbSearchResponse
	if err := c.doGET(ctx, "/search/multi", params, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// discoverMovies returns one popularity-sorted page of movies for a
// genre id.
func (c *tmdbClient) discoverMovies(ctx context.Context, genreID int64, page int) ([]tmdbSummary, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.FormatInt(genreID, 10))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", "popularity.desc")

	var payload tmdbSearchResponse
	if err := c.doGET(ctx, "/discover/movie", params, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbMovieDetail struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	OriginalTitle    string      `json:"original_title"`
	Overview         string      `json:"overview"`
	Tagline          string      `json:"tagline"`
	Genres           []tmdbGenre `json:"genres"`
	OriginalLanguage string      `json:"original_language"`
	ReleaseDate      string      `json:"release_date"`
	Runtime          int         `json:"runtime"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	IMDBID           string      `json:"imdb_id"`
}

func (c *tmdbClient) movieDetail(ctx context.Context, tmdbID int64) (*tmdbMovieDetail, error) {
	var payload tmdbMovieDetail
	if err := c.doGET(ctx, fmt.Sprintf("/movie/%d", tmdbID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

type tmdbSeriesDetail struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	OriginalName     string      `json:"original_name"`
	Overview         string      `json:"overview"`
	Tagline          string      `json:"tagline"`
	Genres           []tmdbGenre `json:"genres"`
	OriginalLanguage string      `json:"original_language"`
	FirstAirDate     string      `json:"first_air_date"`
	LastAirDate      string      `json:"last_air_date"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	Status           string      `json:"status"`
}

func (c *tmdbClient) seriesDetail(ctx context.Context, tmdbID int64) (*tmdbSeriesDetail, error) {
	var payload tmdbSeriesDetail
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d", tmdbID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

type tmdbGenresResponse struct {
	Genres []tmdbGenre `json:"genres"`
}

// genreList fetches the id-to-name genre table for "movie" or "tv".
func (c *tmdbClient) genreList(ctx context.Context, mediaType string) ([]tmdbGenre, error) {
	var payload tmdbGenresResponse
	if err := c.doGET(ctx, "/genre/"+mediaType+"/list", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
