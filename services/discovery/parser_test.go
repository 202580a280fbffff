package discovery_test

import (
	"testing"

	"watchdeck/services/discovery"
)

func TestParseExtractsYear(t *testing.T) {
	parsed := discovery.Parse("Horror 2023")
	if parsed.Year != 2023 {
		t.Fatalf("expected year 2023, got %d", parsed.Year)
	}
	if parsed.Text != "Horror" {
		t.Fatalf("expected residual text %q, got %q", "Horror", parsed.Text)
	}
	if len(parsed.Genres) != 1 || parsed.Genres[0] != "Horror" {
		t.Fatalf("expected genre filter [Horror], got %v", parsed.Genres)
	}
}

func TestParseBareYearStaysTitleSearch(t *testing.T) {
	parsed := discovery.Parse("2023")
	if parsed.Year != 0 {
		t.Fatalf("expected no year filter for bare year query, got %d", parsed.Year)
	}
	if parsed.Text != "2023" {
		t.Fatalf("expected text to stay %q, got %q", "2023", parsed.Text)
	}
}

func TestParseKeepsGenreWordInText(t *testing.T) {
	parsed := discovery.Parse("American Horror Story")
	if parsed.Text != "American Horror Story" {
		t.Fatalf("genre keyword must not be stripped from text, got %q", parsed.Text)
	}
	if len(parsed.Genres) != 1 || parsed.Genres[0] != "Horror" {
		t.Fatalf("expected genre filter [Horror], got %v", parsed.Genres)
	}
}

func TestParseYearInsideTitle(t *testing.T) {
	parsed := discovery.Parse("Blade Runner 2049 2017")
	if parsed.Year == 0 {
		t.Fatal("expected a year filter")
	}
	if parsed.Text == "" {
		t.Fatal("expected residual text")
	}
}

func TestParseGenreAliases(t *testing.T) {
	cases := []struct {
		query string
		genre string
	}{
		{"sci-fi classics", "Science Fiction"},
		{"scifi classics", "Science Fiction"},
		{"best comedy ever", "Comedy"},
		{"WAR movies", "War"},
	}
	for _, tc := range cases {
		parsed := discovery.Parse(tc.query)
		if len(parsed.Genres) != 1 || parsed.Genres[0] != tc.genre {
			t.Fatalf("query %q: expected genres [%s], got %v", tc.query, tc.genre, parsed.Genres)
		}
	}
}

func TestParseDedupesGenreAliases(t *testing.T) {
	parsed := discovery.Parse("sci-fi scifi marathon")
	if len(parsed.Genres) != 1 {
		t.Fatalf("expected aliases to collapse to one genre, got %v", parsed.Genres)
	}
}

func TestParseNoFiltersForPlainTitle(t *testing.T) {
	parsed := discovery.Parse("  The Godfather  ")
	if parsed.Text != "The Godfather" {
		t.Fatalf("expected trimmed text, got %q", parsed.Text)
	}
	if parsed.Year != 0 || len(parsed.Genres) != 0 {
		t.Fatalf("expected no filters, got year=%d genres=%v", parsed.Year, parsed.Genres)
	}
}
