package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"watchdeck/models"
)

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// genreAliases maps search keywords to canonical provider genre names.
// Aliases are matched as whole words and case-insensitively.
var genreAliases = map[string]string{
	"sci-fi":      "Science Fiction",
	"scifi":       "Science Fiction",
	"sf":          "Science Fiction",
	"horror":      "Horror",
	"comedy":      "Comedy",
	"action":      "Action",
	"drama":       "Drama",
	"thriller":    "Thriller",
	"romance":     "Romance",
	"fantasy":     "Fantasy",
	"animation":   "Animation",
	"documentary": "Documentary",
	"crime":       "Crime",
	"mystery":     "Mystery",
	"adventure":   "Adventure",
	"western":     "Western",
	"war":         "War",
}

var genrePatterns = compileGenrePatterns()

func compileGenrePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(genreAliases))
	for alias := range genreAliases {
		patterns[alias] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
	}
	return patterns
}

// Parse extracts structured filters from a free-text search query.
// A 4-digit 19xx/20xx token becomes a year filter and is stripped from
// the residual text, unless stripping would leave the text empty, in
// which case the original query is kept and the year filter dropped
// (a query that is only a year is still a title search). Genre
// keywords become genre filters but are NOT removed from the text,
// so a title literally containing a genre word still matches by title.
// Parse is pure and never fails.
func Parse(rawQuery string) models.ParsedQuery {
	text := strings.TrimSpace(rawQuery)
	parsed := models.ParsedQuery{Text: text}

	if match := yearPattern.FindString(text); match != "" {
		stripped := strings.TrimSpace(strings.Replace(text, match, "", 1))
		if stripped != "" {
			year, _ := strconv.Atoi(match)
			parsed.Year = year
			parsed.Text = collapseSpaces(stripped)
		}
	}

	for alias, pattern := range genrePatterns {
		if pattern.MatchString(parsed.Text) {
			parsed.Genres = append(parsed.Genres, genreAliases[alias])
		}
	}
	dedupeGenres(&parsed)

	return parsed
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupeGenres keeps the genre list free of duplicates; distinct
// aliases of the same genre ("sci-fi" and "scifi") would otherwise
// produce repeated canonical names.
func dedupeGenres(parsed *models.ParsedQuery) {
	if len(parsed.Genres) < 2 {
		return
	}
	seen := make(map[string]struct{}, len(parsed.Genres))
	unique := parsed.Genres[:0]
	for _, g := range parsed.Genres {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		unique = append(unique, g)
	}
	parsed.Genres = unique
}
