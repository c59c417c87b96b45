// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when no source provides a complete
// set of OAuth credentials.
var ErrMissingCredentials = errors.New("missing credentials")

// Config holds the application configuration.
type Config struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	CredentialsPath string
	APIBaseURL      string
	HistoryPath     string
	LogLevel        string
	PollInterval    time.Duration
	HTTPTimeout     time.Duration
}

// Credentials are the OAuth values stored in the credentials YAML file.
type Credentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// Complete reports whether every credential field is set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Overrides carries values given on the command line. Empty fields are ignored.
type Overrides struct {
	ClientID        string
	ClientSecret    string
	CredentialsPath string
}

// Default values
const (
	defaultCredentialsFile = "dbm_sample.yaml"
	defaultAPIBaseURL      = "https://www.googleapis.com/doubleclickbidmanager/v1"
	defaultPollInterval    = 60 * time.Second
	defaultHTTPTimeout     = 5 * time.Minute
	defaultLogLevel        = "info"
)

// Load reads configuration from .env files and environment variables.
func Load() *Config {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	return &Config{
		ClientID:        os.Getenv("DBM_CLIENT_ID"),
		ClientSecret:    os.Getenv("DBM_CLIENT_SECRET"),
		RefreshToken:    os.Getenv("DBM_REFRESH_TOKEN"),
		CredentialsPath: ExpandHome(getEnvString("DBM_CREDENTIALS_PATH", getDefaultCredentialsPath())),
		APIBaseURL:      getEnvString("DBM_API_BASE_URL", defaultAPIBaseURL),
		HistoryPath:     ExpandHome(getEnvString("DBM_HISTORY_PATH", getDefaultHistoryPath())),
		LogLevel:        getEnvString("LOG_LEVEL", defaultLogLevel),
		PollInterval:    getEnvDuration("DBM_POLL_INTERVAL", defaultPollInterval),
		HTTPTimeout:     getEnvDuration("DBM_HTTP_TIMEOUT", defaultHTTPTimeout),
	}
}

// ResolveCredentials merges command line values, the environment and the
// credentials file, in that order of precedence. The file is only required
// when the other sources leave a field empty.
func (c *Config) ResolveCredentials(o Overrides) (Credentials, error) {
	creds := Credentials{
		ClientID:     firstNonEmpty(o.ClientID, c.ClientID),
		ClientSecret: firstNonEmpty(o.ClientSecret, c.ClientSecret),
		RefreshToken: c.RefreshToken,
	}
	if creds.Complete() {
		return creds, nil
	}

	path := ExpandHome(firstNonEmpty(o.CredentialsPath, c.CredentialsPath))
	file, err := LoadCredentialsFile(path)
	if err != nil {
		return creds, err
	}

	creds.ClientID = firstNonEmpty(creds.ClientID, file.ClientID)
	creds.ClientSecret = firstNonEmpty(creds.ClientSecret, file.ClientSecret)
	creds.RefreshToken = firstNonEmpty(creds.RefreshToken, file.RefreshToken)

	if !creds.Complete() {
		return creds, fmt.Errorf("%w: client_id, client_secret and refresh_token are required (flags, DBM_* env or %s)",
			ErrMissingCredentials, path)
	}
	return creds, nil
}

// LoadCredentialsFile reads a credentials YAML file.
func LoadCredentialsFile(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, fmt.Errorf("%w: credentials file %s not found", ErrMissingCredentials, path)
		}
		return creds, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := yaml.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	return creds, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "bidmanager", ".env"),
			filepath.Join(home, ".bidmanager", ".env"),
		)
	}

	return paths
}

// getDefaultCredentialsPath returns the credentials file in the home directory.
func getDefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultCredentialsFile
	}
	return filepath.Join(home, defaultCredentialsFile)
}

// getDefaultHistoryPath returns the default path for the SQLite ledger.
func getDefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bidmanager-history.db"
	}
	return filepath.Join(home, ".config", "bidmanager", "history.db")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
