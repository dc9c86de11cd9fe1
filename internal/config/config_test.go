package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com")
	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":8080" || c.BackendMode != BackendREST || c.StrictChecks {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.PingTimeout != 8*time.Second || c.MatchDataTimeout != 20*time.Second || c.ScorecardTimeout != 30*time.Second {
		t.Fatalf("timeouts = %v %v %v", c.PingTimeout, c.MatchDataTimeout, c.ScorecardTimeout)
	}
	if len(c.TrustedProxies) != 2 {
		t.Fatalf("trusted proxies = %v", c.TrustedProxies)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND_MODE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/cricket")
	t.Setenv("SCORECARD_STRICT_CHECKS", "true")
	t.Setenv("MATCH_DATA_TIMEOUT", "45s")
	t.Setenv("PING_TIMEOUT", "soon")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8 , ,192.168.1.1")
	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.BackendMode != BackendPostgres || !c.StrictChecks {
		t.Fatalf("unexpected %+v", c)
	}
	if c.MatchDataTimeout != 45*time.Second || c.PingTimeout != 8*time.Second {
		t.Fatalf("timeouts = %v %v", c.MatchDataTimeout, c.PingTimeout)
	}
	if len(c.TrustedProxies) != 2 || c.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("trusted proxies = %q", c.TrustedProxies)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		c    Config
		ok   bool
	}{
		{"rest without url", Config{BackendMode: BackendREST}, false},
		{"postgres without dsn", Config{BackendMode: BackendPostgres}, false},
		{"unknown mode", Config{BackendMode: "grpc"}, false},
		{"auth required without keys", Config{BackendMode: BackendREST, BackendURL: "x", AuthRequired: true}, false},
		{"ok", Config{BackendMode: BackendREST, BackendURL: "x", AuthRequired: true, AuthJWTSecret: "s"}, true},
	}
	for _, tc := range cases {
		if err := tc.c.Validate(); (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.name, err)
		}
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("XC_TEST_ONLY_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XC_TEST_ONLY_KEY", "")
	os.Unsetenv("XC_TEST_ONLY_KEY")

	got, ok := LoadDotenv(filepath.Join(dir, "missing.env"), p)
	if !ok || got != p {
		t.Fatalf("LoadDotenv = %q, %v", got, ok)
	}
	if v := os.Getenv("XC_TEST_ONLY_KEY"); v != "from-file" {
		t.Fatalf("value = %q", v)
	}
}
