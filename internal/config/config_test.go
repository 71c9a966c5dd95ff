package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME and the working directory at fresh temp dirs so the
// developer's own config and .env do not leak into a test.
func isolate(t *testing.T) (home, workspace string) {
	t.Helper()
	home = t.TempDir()
	workspace = t.TempDir()

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv(configDirEnvKey, "")
	t.Setenv(trustProjectConfigEnvKey, "")
	t.Setenv(dotEnvFileEnvKey, "")
	t.Setenv(apiURLEnvKey, "")
	t.Setenv(dbPathEnvKey, "")
	t.Setenv(uploadDirEnvKey, "")
	t.Setenv(corsOriginsEnvKey, "")
	t.Setenv(allowedMediaEnvKey, "")
	t.Setenv(rejectMismatchEnvKey, "")
	return home, workspace
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultUploadMaxBytes {
		t.Fatalf("expected upload max default %d, got %d", DefaultUploadMaxBytes, cfg.Uploads.MaxUploadBytes)
	}
	if len(cfg.Uploads.AllowedExtensions) != 1 || cfg.Uploads.AllowedExtensions[0] != "pdf" {
		t.Fatalf("expected pdf only, got %#v", cfg.Uploads.AllowedExtensions)
	}
	if !cfg.Uploads.RejectMediaTypeMismatch {
		t.Fatal("expected reject mismatch default true")
	}
	if cfg.Uploads.ReconcileEvery() != 15*time.Minute {
		t.Fatalf("expected 15m reconcile interval, got %s", cfg.Uploads.ReconcileEvery())
	}
	if cfg.Uploads.OrphanGrace() != time.Hour {
		t.Fatalf("expected 1h grace, got %s", cfg.Uploads.OrphanGrace())
	}
}

func TestUploadDurations(t *testing.T) {
	tests := []struct {
		raw      string
		interval time.Duration
		grace    time.Duration
	}{
		{raw: "30s", interval: 30 * time.Second, grace: 30 * time.Second},
		{raw: "0", interval: 0, grace: 0},
		{raw: "", interval: 0, grace: time.Hour},
		{raw: "soon", interval: 0, grace: time.Hour},
		{raw: "-5m", interval: 0, grace: time.Hour},
	}
	for _, tt := range tests {
		u := UploadConfig{ReconcileInterval: tt.raw, OrphanGracePeriod: tt.raw}
		if got := u.ReconcileEvery(); got != tt.interval {
			t.Fatalf("ReconcileEvery(%q)=%s want %s", tt.raw, got, tt.interval)
		}
		if got := u.OrphanGrace(); got != tt.grace {
			t.Fatalf("OrphanGrace(%q)=%s want %s", tt.raw, got, tt.grace)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[uploads]
dir = "/srv/uploads"
allowed_extensions = ["pdf", "docx"]
reconcile_interval = "5m"
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected top-level values: %#v", cfg)
	}
	if cfg.Uploads.Dir != "/srv/uploads" || len(cfg.Uploads.AllowedExtensions) != 2 {
		t.Fatalf("unexpected uploads: %#v", cfg.Uploads)
	}
	if cfg.Uploads.ReconcileEvery() != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", cfg.Uploads.ReconcileEvery())
	}
	if cfg.Uploads.MaxUploadBytes != DefaultUploadMaxBytes {
		t.Fatal("expected unspecified keys to keep defaults")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/"+ConfigFileName, &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatal("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
		cfg := Default()
		if _, err := cfg.Get(key); err != nil {
			t.Fatalf("expected Get(%q) to succeed: %v", key, err)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:      "http://test:1234",
		DBPath:      "/tmp/test.db",
		LogLevel:    "warn",
		CORSOrigins: []string{"http://a", "http://b"},
		Uploads: UploadConfig{
			Dir:                     "/tmp/up",
			MaxUploadBytes:          123,
			AllowedExtensions:       []string{"pdf", "docx"},
			RejectMediaTypeMismatch: false,
			OrphanGracePeriod:       "2h",
		},
	}

	tests := map[string]string{
		"api_url":                            "http://test:1234",
		"db_path":                            "/tmp/test.db",
		"log_level":                          "warn",
		"cors_origins":                       "http://a,http://b",
		"uploads.dir":                        "/tmp/up",
		"uploads.max_upload_bytes":           "123",
		"uploads.allowed_extensions":         "pdf,docx",
		"uploads.reject_media_type_mismatch": "false",
		"uploads.orphan_grace_period":        "2h",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("Get(%q)=%q (err %v) want %q", key, got, err, want)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "api_url", "http://x:1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://x:1" {
		t.Fatalf("expected 'http://x:1', got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("db_path = \"/old.db\"\napi_url = \"http://keep\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "db_path", "/new.db"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/new.db" {
		t.Fatalf("expected '/new.db', got %q", cfg.DBPath)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetKeyValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	tests := []struct {
		key, value string
	}{
		{key: "invalid_key", value: "value"},
		{key: "log_level", value: "loud"},
		{key: "uploads.max_upload_bytes", value: "-1"},
		{key: "uploads.reject_media_type_mismatch", value: "maybe"},
		{key: "uploads.reconcile_interval", value: "weekly"},
	}
	for _, tt := range tests {
		if err := SetKey(path, tt.key, tt.value); err == nil {
			t.Fatalf("expected error for %s=%s", tt.key, tt.value)
		}
	}
}

func TestSetNestedUploadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads.toml")
	if err := SetKey(path, "uploads.max_upload_bytes", "2048"); err != nil {
		t.Fatalf("set nested key: %v", err)
	}
	if err := SetKey(path, "uploads.allowed_extensions", "pdf, docx"); err != nil {
		t.Fatalf("set list key: %v", err)
	}
	if err := SetKey(path, "uploads.reconcile_interval", "1m"); err != nil {
		t.Fatalf("set duration key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Uploads.MaxUploadBytes != 2048 {
		t.Fatalf("expected 2048, got %d", cfg.Uploads.MaxUploadBytes)
	}
	if len(cfg.Uploads.AllowedExtensions) != 2 || cfg.Uploads.AllowedExtensions[1] != "docx" {
		t.Fatalf("unexpected extensions %#v", cfg.Uploads.AllowedExtensions)
	}
	if cfg.Uploads.ReconcileEvery() != time.Minute {
		t.Fatalf("expected 1m, got %s", cfg.Uploads.ReconcileEvery())
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ConfigFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, ConfigFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadDefaultsPathsToWorkspace(t *testing.T) {
	_, workspace := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
	if cfg.Uploads.Dir != filepath.Join(workspace, DefaultUploadDir) {
		t.Fatalf("expected default workspace upload dir, got %q", cfg.Uploads.Dir)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	_, workspace := isolate(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ConfigFileName), []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0o644); err != nil {
		t.Fatalf("write override config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ConfigFileName), []byte("api_url = \"http://ignored\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	t.Setenv(configDirEnvKey, configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(uploadDirEnvKey, "/tmp/uploads")
	t.Setenv(corsOriginsEnvKey, "http://a, http://b")
	t.Setenv(rejectMismatchEnvKey, "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" || cfg.DBPath != "/tmp/override.db" || cfg.Uploads.Dir != "/tmp/uploads" {
		t.Fatalf("unexpected overrides: %#v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("unexpected cors origins %#v", cfg.CORSOrigins)
	}
	if cfg.Uploads.RejectMediaTypeMismatch {
		t.Fatal("expected reject mismatch override false")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	_, workspace := isolate(t)
	if err := os.WriteFile(filepath.Join(workspace, DefaultDotEnvFile), []byte("CAREERCATALYST_DB=/from/dotenv.db\nCAREERCATALYST_API_URL=http://dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv(apiURLEnvKey, "http://explicit")
	// t.Setenv registers restoration so variables set by the .env file are cleaned up.
	t.Setenv(dbPathEnvKey, "")
	os.Unsetenv(dbPathEnvKey)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/from/dotenv.db" {
		t.Fatalf("expected db path from .env, got %q", cfg.DBPath)
	}
	if cfg.APIURL != "http://explicit" {
		t.Fatalf("expected real env to win over .env, got %q", cfg.APIURL)
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	home, _ := isolate(t)
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte("log_level = \"\"\n[uploads]\nallowed_extensions = []\nmax_upload_bytes = 0\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if len(cfg.Uploads.AllowedExtensions) != 1 || cfg.Uploads.MaxUploadBytes != DefaultUploadMaxBytes {
		t.Fatalf("expected upload defaults, got %#v", cfg.Uploads)
	}
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	for _, body := range []string{
		"[uploads]\nreconcile_interval = \"every 5 minutes\"\n",
		"[uploads]\nreconcile_interval = \"-1m\"\n",
		"[uploads]\norphan_grace_period = \"soon\"\n",
	} {
		home, _ := isolate(t)
		if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(body), 0o644); err != nil {
			t.Fatalf("write home config: %v", err)
		}
		_, err := Load()
		if err == nil {
			t.Fatalf("expected %q to be rejected", body)
		}
		if !strings.Contains(err.Error(), "uploads.") {
			t.Fatalf("expected error to name the key, got %v", err)
		}
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	home, workspace := isolate(t)
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte("api_url = \"http://home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ConfigFileName), []byte("api_url = \"http://project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://home" {
		t.Fatalf("expected home config, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config, got %q", cfg.TrustedProjectConfigPath)
	}

	t.Setenv(trustProjectConfigEnvKey, "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load trusted: %v", err)
	}
	if cfg.APIURL != "http://project" {
		t.Fatalf("expected trusted project config to win, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != filepath.Join(workspace, ConfigFileName) {
		t.Fatalf("unexpected trusted path %q", cfg.TrustedProjectConfigPath)
	}
}
