package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvString(t *testing.T) {
	key := "TEST_ENV_STRING"
	t.Setenv(key, "test_value")

	if got := getEnvString(key, "default"); got != "test_value" {
		t.Errorf("getEnvString() = %q, want %q", got, "test_value")
	}

	if got := getEnvString("NON_EXISTENT", "default"); got != "default" {
		t.Errorf("getEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_ENV_DURATION"

	tests := []struct {
		name       string
		envVal     string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"ValidDuration", "1m", time.Second, time.Minute},
		{"ValidSeconds", "60", time.Second, 60 * time.Second},
		{"Invalid", "invalid", time.Second, time.Second},
		{"Empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)

			if got := getEnvDuration(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Skipping test because user home dir cannot be found")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/dbm_sample.yaml", filepath.Join(home, "dbm_sample.yaml")},
		{"/etc/dbm.yaml", "/etc/dbm.yaml"},
		{"~other/file", "~other/file"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DBM_CLIENT_ID", "env-id")
	t.Setenv("DBM_CLIENT_SECRET", "")
	t.Setenv("DBM_REFRESH_TOKEN", "")
	t.Setenv("DBM_CREDENTIALS_PATH", "/tmp/creds.yaml")
	t.Setenv("DBM_API_BASE_URL", "")
	t.Setenv("DBM_HISTORY_PATH", "")
	t.Setenv("DBM_POLL_INTERVAL", "5")
	t.Setenv("DBM_HTTP_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.ClientID != "env-id" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if cfg.CredentialsPath != "/tmp/creds.yaml" {
		t.Errorf("CredentialsPath = %q", cfg.CredentialsPath)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.HistoryPath == "" {
		t.Error("HistoryPath should have a default")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DBM_REFRESH_TOKEN", "")
	os.Unsetenv("DBM_REFRESH_TOKEN")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DBM_REFRESH_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.RefreshToken != "from-dotenv" {
		t.Errorf("RefreshToken = %q, want value from .env", cfg.RefreshToken)
	}
}

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbm_sample.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveCredentials(t *testing.T) {
	path := writeCredentials(t, "client_id: yaml-id\nclient_secret: yaml-secret\nrefresh_token: yaml-token\n")

	tests := []struct {
		name string
		cfg  Config
		o    Overrides
		want Credentials
	}{
		{
			name: "FileOnly",
			cfg:  Config{CredentialsPath: path},
			want: Credentials{"yaml-id", "yaml-secret", "yaml-token"},
		},
		{
			name: "EnvOverFile",
			cfg:  Config{CredentialsPath: path, ClientID: "env-id", RefreshToken: "env-token"},
			want: Credentials{"env-id", "yaml-secret", "env-token"},
		},
		{
			name: "FlagOverEnv",
			cfg:  Config{CredentialsPath: path, ClientID: "env-id"},
			o:    Overrides{ClientID: "flag-id", ClientSecret: "flag-secret"},
			want: Credentials{"flag-id", "flag-secret", "yaml-token"},
		},
		{
			name: "FlagPath",
			cfg:  Config{CredentialsPath: "/does/not/exist.yaml"},
			o:    Overrides{CredentialsPath: path},
			want: Credentials{"yaml-id", "yaml-secret", "yaml-token"},
		},
		{
			name: "NoFileNeeded",
			cfg:  Config{CredentialsPath: "/does/not/exist.yaml", ClientID: "a", ClientSecret: "b", RefreshToken: "c"},
			want: Credentials{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveCredentials(tt.o)
			if err != nil {
				t.Fatalf("ResolveCredentials failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveCredentials_Missing(t *testing.T) {
	cfg := Config{CredentialsPath: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := cfg.ResolveCredentials(Overrides{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}

	partial := writeCredentials(t, "client_id: only-id\n")
	cfg = Config{CredentialsPath: partial}
	if _, err := cfg.ResolveCredentials(Overrides{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials for partial file, got %v", err)
	}
}

func TestLoadCredentialsFile_Invalid(t *testing.T) {
	path := writeCredentials(t, "client_id: [unterminated\n")
	_, err := LoadCredentialsFile(path)
	if err == nil || errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected a parse error, got %v", err)
	}
}
