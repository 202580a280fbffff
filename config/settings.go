package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Database DatabaseSettings `json:"database"`
	Metadata MetadataSettings `json:"metadata"`
	Search   SearchSettings   `json:"search"`
	Sessions SessionSettings  `json:"sessions"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
}

// SearchSettings tunes the discovery pipeline.
type SearchSettings struct {
	PageSize          int     `json:"pageSize"`
	ConfidenceFloor   float64 `json:"confidenceFloor"`
	MinSimilarity     float64 `json:"minSimilarity"`
	RelaxedSimilarity float64 `json:"relaxedSimilarity"`
}

type SessionSettings struct {
	TTLDays int `json:"ttlDays"`
}

type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8484},
		Database: DatabaseSettings{Path: "data/watchdeck.db"},
		Metadata: MetadataSettings{TMDBAPIKey: "", Language: "en"},
		Search: SearchSettings{
			PageSize:          10,
			ConfidenceFloor:   0.7,
			MinSimilarity:     0.3,
			RelaxedSimilarity: 0.1,
		},
		Sessions: SessionSettings{TTLDays: 30},
		Log: LogConfig{
			File:       "data/logs/watchdeck.log",
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
// The TMDB_API_KEY environment variable overrides the stored key.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}

	s := DefaultSettings()
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		if err := m.Save(s); err != nil {
			return Settings{}, err
		}
	} else {
		f, err := os.Open(m.path)
		if err != nil {
			return Settings{}, err
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&s); err != nil {
			return Settings{}, err
		}
	}

	if key := strings.TrimSpace(os.Getenv("TMDB_API_KEY")); key != "" {
		s.Metadata.TMDBAPIKey = key
	}

	return normalize(s), nil
}

// normalize backfills zero values a hand-edited config may have dropped.
func normalize(s Settings) Settings {
	d := DefaultSettings()
	if s.Server.Port <= 0 {
		s.Server.Port = d.Server.Port
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = d.Database.Path
	}
	if strings.TrimSpace(s.Metadata.Language) == "" {
		s.Metadata.Language = d.Metadata.Language
	}
	if s.Search.PageSize <= 0 {
		s.Search.PageSize = d.Search.PageSize
	}
	if s.Search.ConfidenceFloor <= 0 || s.Search.ConfidenceFloor > 1 {
		s.Search.ConfidenceFloor = d.Search.ConfidenceFloor
	}
	if s.Search.MinSimilarity <= 0 || s.Search.MinSimilarity > 1 {
		s.Search.MinSimilarity = d.Search.MinSimilarity
	}
	if s.Search.RelaxedSimilarity <= 0 || s.Search.RelaxedSimilarity > 1 {
		s.Search.RelaxedSimilarity = d.Search.RelaxedSimilarity
	}
	if s.Sessions.TTLDays <= 0 {
		s.Sessions.TTLDays = d.Sessions.TTLDays
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = d.Log.File
	}
	if s.Log.MaxSize <= 0 {
		s.Log.MaxSize = d.Log.MaxSize
	}
	return s
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
