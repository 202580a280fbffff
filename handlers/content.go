package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"watchdeck/models"
	"watchdeck/services/discovery"
	"watchdeck/services/metadata"
	"watchdeck/services/store"
)

type discoveryService interface {
	Search(ctx context.Context, text string, kind models.ContentKind) ([]models.ContentRecord, error)
}

type contentStore interface {
	ListAll(ctx context.Context) ([]models.ContentRecord, error)
	GetByID(ctx context.Context, localID string) (*models.ContentRecord, error)
	UpsertContent(ctx context.Context, rec models.ContentRecord) (models.ContentRecord, error)
}

type browseProvider interface {
	DiscoverByGenre(ctx context.Context, genreName string, maxResults int) ([]models.ContentRecord, error)
}

var (
	_ discoveryService = (*discovery.Service)(nil)
	_ contentStore     = (*store.Service)(nil)
	_ browseProvider   = (*metadata.Service)(nil)
)

type ContentHandler struct {
	Discovery discoveryService
	Store     contentStore
	Provider  browseProvider
	PageSize  int
}

func NewContentHandler(discoverySvc discoveryService, storeSvc contentStore, provider browseProvider, pageSize int) *ContentHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ContentHandler{Discovery: discoverySvc, Store: storeSvc, Provider: provider, PageSize: pageSize}
}

// Search resolves a free-text query into a ranked page of content.
// GET /api/content/search?q=inception&kind=MOVIE
func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSONError(w, "search query is required (use ?q=movie+name)", http.StatusBadRequest)
		return
	}
	if len([]rune(query)) < 2 {
		writeJSONError(w, "search query must be at least 2 characters", http.StatusBadRequest)
		return
	}

	var kind models.ContentKind
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind"))); raw != "" {
		kind = models.ContentKind(raw)
		if !kind.Valid() {
			writeJSONError(w, "kind must be MOVIE or SERIES", http.StatusBadRequest)
			return
		}
	}

	results, err := h.Discovery.Search(r.Context(), query, kind)
	if err != nil {
		if errors.Is(err, discovery.ErrQueryTooShort) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// List returns every cached content record.
// GET /api/content
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAll(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Get returns one cached content record.
// GET /api/content/{contentID}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["contentID"])
	if id == "" {
		writeJSONError(w, "content id is required", http.StatusBadRequest)
		return
	}

	rec, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Discover returns popular provider titles for a genre, caching them
// on the way through so they can be added to the list directly.
// GET /api/content/discover?genre=Horror
func (h *ContentHandler) Discover(w http.ResponseWriter, r *http.Request) {
	genre := strings.TrimSpace(r.URL.Query().Get("genre"))
	if genre == "" {
		writeJSONError(w, "genre is required (use ?genre=Horror)", http.StatusBadRequest)
		return
	}

	fetched, err := h.Provider.DiscoverByGenre(r.Context(), genre, h.PageSize)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}

	cached := make([]models.ContentRecord, 0, len(fetched))
	for _, rec := range fetched {
		stored, err := h.Store.UpsertContent(r.Context(), rec)
		if err != nil {
			log.Printf("[content] failed to cache %s %q: %v", rec.ProviderKey(), rec.Title, err)
			continue
		}
		cached = append(cached, stored)
	}

	writeJSON(w, http.StatusOK, cached)
}
