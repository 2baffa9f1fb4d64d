package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerURL    string `json:"serverUrl"`
	AuthEndpoint string `json:"authEndpoint"`
	AuthData     string `json:"authData"`
	DataDir      string `json:"dataDir"`
	DatabaseURL  string `json:"databaseUrl"`
	Upload       Upload `json:"upload"`
}

// Upload configuration
type Upload struct {
	Threads        int `json:"threads"`
	TimeoutSeconds int `json:"timeoutSeconds"`
}

// UsePostgres returns true if PostgreSQL should be used for the mirror
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// DatabasePath returns the mirror database location for one account,
// keeping accounts isolated under the data directory
func (c *Config) DatabasePath(email string) string {
	if email == "" {
		email = "default"
	}
	return filepath.Join(c.DataDir, email, "mirror.db")
}

// Default configuration
func defaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		ServerURL:    "http://localhost:5000",
		AuthEndpoint: "https://android.googleapis.com/auth",
		DataDir:      filepath.Join(home, ".photomirror"),
		Upload: Upload{
			Threads:        1,
			TimeoutSeconds: 30,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(cfg.DataDir, "config.json")
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if url := os.Getenv("SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if endpoint := os.Getenv("AUTH_ENDPOINT"); endpoint != "" {
		cfg.AuthEndpoint = endpoint
	}
	if authData := os.Getenv("AUTH_DATA"); authData != "" {
		cfg.AuthData = authData
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if threads := os.Getenv("UPLOAD_THREADS"); threads != "" {
		if n, err := strconv.Atoi(threads); err == nil && n > 0 {
			cfg.Upload.Threads = n
		}
	}
	if timeout := os.Getenv("UPLOAD_TIMEOUT_SECONDS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && n > 0 {
			cfg.Upload.TimeoutSeconds = n
		}
	}

	if cfg.AuthData == "" {
		return nil, fmt.Errorf("auth data is not configured: set AUTH_DATA or the authData config field")
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return cfg, nil
}
