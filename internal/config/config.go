package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string
	Debug      bool

	// Directories
	DataDirectory      string
	UploadsDirectory   string
	SnapshotsDirectory string

	// Housekeeping: uploads, snapshots and idle datasets older than
	// the retention window are evicted
	RetentionWindow time.Duration
	CleanupInterval time.Duration

	// Uploads
	MaxUploadBytes int64

	// Storage encryption password (empty means prompt when needed)
	StoragePassword string
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:         ":8080",
		Debug:              false,
		DataDirectory:      filepath.Join(wd, "data"),
		UploadsDirectory:   filepath.Join(wd, "data", "uploads"),
		SnapshotsDirectory: filepath.Join(wd, "data", "saved_states"),
		RetentionWindow:    24 * time.Hour,
		CleanupInterval:    time.Hour,
		MaxUploadBytes:     50 << 20,
	}
}

// Load loads configuration from a .env file (if present) and
// environment variables
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded configuration from .env")
	}

	cfg := DefaultConfig()

	if addr := os.Getenv("FLOWGRAPH_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("FLOWGRAPH_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}
	if dataDir := os.Getenv("FLOWGRAPH_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
		cfg.UploadsDirectory = filepath.Join(dataDir, "uploads")
		cfg.SnapshotsDirectory = filepath.Join(dataDir, "saved_states")
	}
	if retention := os.Getenv("FLOWGRAPH_RETENTION"); retention != "" {
		if d, err := time.ParseDuration(retention); err == nil {
			cfg.RetentionWindow = d
		} else {
			log.Printf("Warning: invalid FLOWGRAPH_RETENTION %q: %v", retention, err)
		}
	}
	if interval := os.Getenv("FLOWGRAPH_CLEANUP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.CleanupInterval = d
		} else {
			log.Printf("Warning: invalid FLOWGRAPH_CLEANUP_INTERVAL %q: %v", interval, err)
		}
	}
	cfg.StoragePassword = os.Getenv("FLOWGRAPH_STORAGE_PASSWORD")

	cfg.ensureDirectories()

	return cfg
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	dirs := []string{
		c.DataDirectory,
		c.UploadsDirectory,
		c.SnapshotsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: could not create directory %s: %v", dir, err)
		}
	}
}
