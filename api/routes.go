package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"watchdeck/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	authHandler *handlers.AuthHandler,
	contentHandler *handlers.ContentHandler,
	listHandler *handlers.ListHandler,
	usersHandler *handlers.UsersHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Public routes
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/users", usersHandler.Create).Methods(http.MethodPost)

	// Protected routes - require a valid session cookie
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authHandler.RequireAuth)

	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)

	protected.HandleFunc("/content/search", contentHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/content/discover", contentHandler.Discover).Methods(http.MethodGet)
	protected.HandleFunc("/content", contentHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/content/{contentID}", contentHandler.Get).Methods(http.MethodGet)

	protected.HandleFunc("/list", listHandler.Items).Methods(http.MethodGet)
	protected.HandleFunc("/list", listHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/list/{itemID}", listHandler.Item).Methods(http.MethodGet)
	protected.HandleFunc("/list/{itemID}", listHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/list/{itemID}", listHandler.Remove).Methods(http.MethodDelete)
	protected.HandleFunc("/list/{itemID}/history", listHandler.History).Methods(http.MethodGet)
}
