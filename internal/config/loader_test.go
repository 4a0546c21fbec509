package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/liveworship/internal/authz"
)

var allKeys = []string{
	"LIVEWORSHIP_HTTP_PORT",
	"LIVEWORSHIP_API_URL",
	"LIVEWORSHIP_SOCKET_URL",
	"LIVEWORSHIP_TOKEN",
	"LIVEWORSHIP_BAND_ID",
	"LIVEWORSHIP_EVENT_ID",
	"LIVEWORSHIP_PREFERENCES_DSN",
	"LIVEWORSHIP_OBSERVER",
	"LIVEWORSHIP_ROSTER_POLL",
	"LIVEWORSHIP_REQUEST_TIMEOUT",
	"LIVEWORSHIP_EVENT_SCOPE",
	"LIVEWORSHIP_LOG_LEVEL",
}

// clearEnv blanks every variable and points the dotenv lookup at a file
// that does not exist.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
	t.Setenv("LIVEWORSHIP_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LIVEWORSHIP_API_URL", "https://api.example.test/")
	t.Setenv("LIVEWORSHIP_SOCKET_URL", "wss://socket.example.test")
	t.Setenv("LIVEWORSHIP_BAND_ID", "band-1")
	t.Setenv("LIVEWORSHIP_EVENT_ID", "evt-1")
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8090 || cfg.Addr() != ":8090" {
			t.Fatalf("expected default HTTP port 8090, got %d", cfg.HTTPPort)
		}
		if cfg.APIURL != "https://api.example.test" {
			t.Fatalf("trailing slash should be trimmed, got %q", cfg.APIURL)
		}
		if cfg.PreferencesDSN != "file:liveworship.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.PreferencesDSN)
		}
		if cfg.RosterPoll != 15*time.Second || cfg.RequestTimeout != 10*time.Second {
			t.Fatalf("unexpected default durations: %s %s", cfg.RosterPoll, cfg.RequestTimeout)
		}
		if cfg.EventScope != authz.ScopeBand || cfg.LogLevel != slog.LevelInfo || cfg.Observer || cfg.Token != "" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LIVEWORSHIP_SOCKET_URL", "wss://socket.example.test")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "required environment variables are not set: LIVEWORSHIP_API_URL, LIVEWORSHIP_BAND_ID, LIVEWORSHIP_EVENT_ID"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("aggregates invalid values with missing ones", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("LIVEWORSHIP_EVENT_ID", "")
		t.Setenv("LIVEWORSHIP_HTTP_PORT", "-1")
		t.Setenv("LIVEWORSHIP_SOCKET_URL", "https://not-a-socket")
		t.Setenv("LIVEWORSHIP_ROSTER_POLL", "soon")
		t.Setenv("LIVEWORSHIP_EVENT_SCOPE", "planet")
		t.Setenv("LIVEWORSHIP_LOG_LEVEL", "loud")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		lines := strings.Split(err.Error(), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected missing and invalid lines, got %q", err.Error())
		}
		if lines[0] != "required environment variables are not set: LIVEWORSHIP_EVENT_ID" {
			t.Fatalf("unexpected missing line: %q", lines[0])
		}
		want := "environment variables have invalid values: LIVEWORSHIP_HTTP_PORT, LIVEWORSHIP_SOCKET_URL, LIVEWORSHIP_ROSTER_POLL, LIVEWORSHIP_EVENT_SCOPE, LIVEWORSHIP_LOG_LEVEL"
		if lines[1] != want {
			t.Fatalf("unexpected invalid line: %q", lines[1])
		}
	})

	t.Run("parses duration, flag and enum fields", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("LIVEWORSHIP_HTTP_PORT", "9090")
		t.Setenv("LIVEWORSHIP_OBSERVER", "true")
		t.Setenv("LIVEWORSHIP_ROSTER_POLL", "30s")
		t.Setenv("LIVEWORSHIP_REQUEST_TIMEOUT", "2s")
		t.Setenv("LIVEWORSHIP_EVENT_SCOPE", "GLOBAL")
		t.Setenv("LIVEWORSHIP_LOG_LEVEL", "debug")
		t.Setenv("LIVEWORSHIP_TOKEN", "  tok  ")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || !cfg.Observer || cfg.Token != "tok" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.RosterPoll != 30*time.Second || cfg.RequestTimeout != 2*time.Second {
			t.Fatalf("unexpected durations: %s %s", cfg.RosterPoll, cfg.RequestTimeout)
		}
		if cfg.EventScope != authz.ScopeGlobal || cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("unexpected scope or level: %s %s", cfg.EventScope, cfg.LogLevel)
		}
	})

	t.Run("reads the dotenv file under the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "console.env")
		content := strings.Join([]string{
			"LIVEWORSHIP_API_URL=http://localhost:3000",
			"LIVEWORSHIP_SOCKET_URL=ws://localhost:3000/socket",
			"LIVEWORSHIP_BAND_ID=band-from-file",
			"LIVEWORSHIP_EVENT_ID=evt-from-file",
			"LIVEWORSHIP_HTTP_PORT=7000",
		}, "\n")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}
		t.Setenv("LIVEWORSHIP_ENV_FILE", path)
		t.Setenv("LIVEWORSHIP_HTTP_PORT", "7100")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.BandID != "band-from-file" || cfg.EventID != "evt-from-file" || cfg.SocketURL != "ws://localhost:3000/socket" {
			t.Fatalf("file values not applied: %+v", cfg)
		}
		if cfg.HTTPPort != 7100 {
			t.Fatalf("environment should win over the file, got %d", cfg.HTTPPort)
		}
		if _, ok := os.LookupEnv("LIVEWORSHIP_EVENT_ID"); !ok {
			t.Fatalf("clearEnv should have left the key set to empty")
		}
		if os.Getenv("LIVEWORSHIP_EVENT_ID") != "" {
			t.Fatalf("reading the file must not modify the process environment")
		}
	})
}
