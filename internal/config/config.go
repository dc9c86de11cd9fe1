package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

type Config struct {
	Addr           string
	DBPath         string
	TrustedProxies []string

	BackendMode    string
	BackendURL     string
	BackendAnonKey string
	DatabaseURL    string

	AuthJWTSecret  string
	AuthJWKSURL    string
	AuthCookieName string
	AuthRequired   bool

	LogLevel string
	LogJSON  bool

	StrictChecks     bool
	PingTimeout      time.Duration
	MatchDataTimeout time.Duration
	ScorecardTimeout time.Duration
}

// LoadDotenv loads the first .env file found, if any. Variables already set
// in the environment win.
func LoadDotenv(paths ...string) (string, bool) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	c := Config{
		Addr:           env("ADDR", ":8080"),
		DBPath:         env("DB_PATH", "xcricket.db"),
		TrustedProxies: list(env("TRUSTED_PROXIES", "127.0.0.1,::1")),

		BackendMode:    strings.ToLower(env("BACKEND_MODE", BackendREST)),
		BackendURL:     env("BACKEND_URL", ""),
		BackendAnonKey: env("BACKEND_ANON_KEY", ""),
		DatabaseURL:    env("DATABASE_URL", ""),

		AuthJWTSecret:  env("AUTH_JWT_SECRET", ""),
		AuthJWKSURL:    env("AUTH_JWKS_URL", ""),
		AuthCookieName: env("AUTH_COOKIE_NAME", "session_token"),
		AuthRequired:   flag(env("AUTH_REQUIRED", "")),

		LogLevel: env("LOG_LEVEL", "info"),
		LogJSON:  flag(env("LOG_JSON", "")),

		StrictChecks:     flag(env("SCORECARD_STRICT_CHECKS", "")),
		PingTimeout:      duration(env("PING_TIMEOUT", ""), 8*time.Second),
		MatchDataTimeout: duration(env("MATCH_DATA_TIMEOUT", ""), 20*time.Second),
		ScorecardTimeout: duration(env("SCORECARD_TIMEOUT", ""), 30*time.Second),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.BackendMode {
	case BackendREST:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required when BACKEND_MODE=%s", BackendREST)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when BACKEND_MODE=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown BACKEND_MODE %q (want %s or %s)", c.BackendMode, BackendREST, BackendPostgres)
	}
	if c.AuthRequired && c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_REQUIRED needs AUTH_JWT_SECRET or AUTH_JWKS_URL")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// duration falls back to def on blank, malformed or non-positive values.
func duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
