package models

import "time"

// ContentKind distinguishes the two supported catalog entry types.
type ContentKind string

const (
	KindMovie  ContentKind = "MOVIE"
	KindSeries ContentKind = "SERIES"
)

// Valid reports whether the kind is one of the supported values.
func (k ContentKind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// ContentRecord is the canonical cached representation of a title.
// The pair (ProviderName, ProviderID) is unique across all records and
// is the de-duplication key for caching; LocalID is assigned once at
// first insertion and never changes afterwards.
type ContentRecord struct {
	LocalID      string      `json:"id"`
	ProviderName string      `json:"providerName"`
	ProviderID   string      `json:"providerId"`
	Title        string      `json:"title"`
	OriginalTitle string     `json:"originalTitle,omitempty"`
	Kind         ContentKind `json:"kind"`
	Overview     string      `json:"overview,omitempty"`
	Tagline      string      `json:"tagline,omitempty"`
	Genres       []string    `json:"genres"`
	OriginalLanguage string  `json:"originalLanguage,omitempty"`
	ReleaseDate  string      `json:"releaseDate,omitempty"` // ISO date, as supplied by the provider
	Year         int         `json:"year"`
	RuntimeMinutes *int      `json:"runtimeMinutes,omitempty"`
	PosterPath   string      `json:"posterPath,omitempty"`
	BackdropPath string      `json:"backdropPath,omitempty"`
	ExternalCrossID string   `json:"imdbId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`

	// Seasons is populated for series when the provider supplied
	// season data.
	Seasons *SeasonSummary `json:"seasons,omitempty"`
}

// ProviderKey returns the cache identity key for the record.
func (c ContentRecord) ProviderKey() string {
	return c.ProviderName + ":" + c.ProviderID
}

// SeasonSummary is the series-only companion row, at most one per
// content record.
type SeasonSummary struct {
	SeasonCount  int    `json:"seasonCount"`
	EpisodeCount int    `json:"episodeCount"`
	AirStatus    string `json:"airStatus,omitempty"` // free-text provider status
	LastAirDate  string `json:"lastAirDate,omitempty"`
}

// SearchCandidate annotates a content record with a relevance score
// for the duration of a single search request. It is never persisted.
type SearchCandidate struct {
	ContentRecord
	Similarity   float64 `json:"similarity"`
	FromProvider bool    `json:"fromProvider,omitempty"`
}

// ParsedQuery is the structured form of a free-text search query.
type ParsedQuery struct {
	Text   string   `json:"text"`
	Year   int      `json:"year,omitempty"` // 0 = no year filter
	Genres []string `json:"genres,omitempty"`
}
