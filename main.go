package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"watchdeck/api"
	"watchdeck/config"
	"watchdeck/handlers"
	"watchdeck/internal/database"
	"watchdeck/services/discovery"
	"watchdeck/services/list"
	"watchdeck/services/metadata"
	"watchdeck/services/sessions"
	"watchdeck/services/store"
	"watchdeck/services/users"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

const version = "0.3.0"

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	seed := flag.Bool("seed", false, "load starter titles into an empty database")
	flag.Parse()

	// Determine config path (env or default)
	configPath := os.Getenv("WATCHDECK_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Services
	storeSvc := store.NewService(db)
	usersSvc := users.NewService(db)
	sessionsSvc := sessions.NewService(db, time.Duration(settings.Sessions.TTLDays)*24*time.Hour)
	listSvc := list.NewService(db)
	genreCache := metadata.NewGenreCache()
	metadataSvc := metadata.NewService(settings.Metadata.TMDBAPIKey, settings.Metadata.Language, nil, genreCache)
	discoverySvc := discovery.NewService(storeSvc, metadataSvc, discovery.Options{
		PageSize:          settings.Search.PageSize,
		ConfidenceFloor:   settings.Search.ConfidenceFloor,
		MinSimilarity:     settings.Search.MinSimilarity,
		RelaxedSimilarity: settings.Search.RelaxedSimilarity,
	})

	if err := usersSvc.EnsureAdmin(ctx); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	if *seed {
		n, err := storeSvc.Seed(ctx)
		if err != nil {
			log.Fatalf("failed to seed database: %v", err)
		}
		if n > 0 {
			log.Printf("seeded %d starter titles", n)
		}
	}

	if settings.Metadata.TMDBAPIKey != "" {
		if err := metadataSvc.PrimeGenres(ctx); err != nil {
			log.Printf("Warning: could not prime genre cache: %v", err)
		}
	}

	// Purge expired sessions hourly
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := sessionsSvc.PurgeExpired(ctx); err != nil {
				log.Printf("session purge failed: %v", err)
			} else if n > 0 {
				log.Printf("purged %d expired sessions", n)
			}
		}
	}()

	// Handlers and routes
	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewAuthHandler(usersSvc, sessionsSvc),
		handlers.NewContentHandler(discoverySvc, storeSvc, metadataSvc, settings.Search.PageSize),
		handlers.NewListHandler(listSvc),
		handlers.NewUsersHandler(usersSvc),
		handlers.NewHealthHandler(db, version),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	log.Printf("watchdeck %s listening on %s", version, addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
