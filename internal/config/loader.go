package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/logging"
)

// DefaultEnvFile is read when LIVEWORSHIP_ENV_FILE is unset.
const DefaultEnvFile = ".env"

// Config captures environment driven configuration values for the live console.
type Config struct {
	HTTPPort       int
	APIURL         string
	SocketURL      string
	Token          string
	BandID         string
	EventID        string
	PreferencesDSN string
	Observer       bool
	RosterPoll     time.Duration
	RequestTimeout time.Duration
	EventScope     authz.Scope
	LogLevel       slog.Level
}

// Load parses configuration values from the process environment merged over
// an optional dotenv file. Non-empty variables in the environment win.
//
// Defaults are applied for optional fields. Every missing or invalid
// variable is reported in a single error.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("LIVEWORSHIP_ENV_FILE"))
	if path == "" {
		path = DefaultEnvFile
	}
	file, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return parse(func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(file[key])
	})
}

func parse(get func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:       8090,
		PreferencesDSN: "file:liveworship.db",
		RosterPoll:     15 * time.Second,
		RequestTimeout: 10 * time.Second,
		EventScope:     authz.ScopeBand,
		LogLevel:       slog.LevelInfo,
	}

	missing := make([]string, 0, 4)
	invalid := make([]string, 0, 2)

	if portValue := get("LIVEWORSHIP_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "LIVEWORSHIP_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	for _, v := range []struct {
		key     string
		dst     *string
		schemes []string
	}{
		{key: "LIVEWORSHIP_API_URL", dst: &cfg.APIURL, schemes: []string{"http", "https"}},
		{key: "LIVEWORSHIP_SOCKET_URL", dst: &cfg.SocketURL, schemes: []string{"ws", "wss"}},
	} {
		value := get(v.key)
		switch {
		case value == "":
			missing = append(missing, v.key)
		case !validURL(value, v.schemes...):
			invalid = append(invalid, v.key)
		default:
			*v.dst = strings.TrimRight(value, "/")
		}
	}

	cfg.Token = get("LIVEWORSHIP_TOKEN")

	if cfg.BandID = get("LIVEWORSHIP_BAND_ID"); cfg.BandID == "" {
		missing = append(missing, "LIVEWORSHIP_BAND_ID")
	}
	if cfg.EventID = get("LIVEWORSHIP_EVENT_ID"); cfg.EventID == "" {
		missing = append(missing, "LIVEWORSHIP_EVENT_ID")
	}

	if dsn := get("LIVEWORSHIP_PREFERENCES_DSN"); dsn != "" {
		cfg.PreferencesDSN = dsn
	}

	if observerValue := get("LIVEWORSHIP_OBSERVER"); observerValue != "" {
		observer, err := strconv.ParseBool(observerValue)
		if err != nil {
			invalid = append(invalid, "LIVEWORSHIP_OBSERVER")
		} else {
			cfg.Observer = observer
		}
	}

	for _, v := range []struct {
		key string
		dst *time.Duration
	}{
		{key: "LIVEWORSHIP_ROSTER_POLL", dst: &cfg.RosterPoll},
		{key: "LIVEWORSHIP_REQUEST_TIMEOUT", dst: &cfg.RequestTimeout},
	} {
		value := get(v.key)
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, v.key)
			continue
		}
		*v.dst = d
	}

	if scopeValue := get("LIVEWORSHIP_EVENT_SCOPE"); scopeValue != "" {
		scope, err := authz.ParseScope(scopeValue)
		if err != nil {
			invalid = append(invalid, "LIVEWORSHIP_EVENT_SCOPE")
		} else {
			cfg.EventScope = scope
		}
	}

	if levelValue := get("LIVEWORSHIP_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "LIVEWORSHIP_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// Addr is the listen address of the console HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func validURL(value string, schemes ...string) bool {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return true
		}
	}
	return false
}
