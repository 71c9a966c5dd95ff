package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:5000"
	DefaultDBFileName  = ".careercatalyst.db"
	DefaultUploadDir   = "uploads"
	DefaultLogLevel    = "info"
	ConfigFileName     = ".careercatalyst.toml"
	DefaultDotEnvFile  = ".env"
	DefaultCORSOrigins = "http://localhost:3000"

	DefaultUploadMaxBytes            int64 = 5 * 1024 * 1024
	DefaultUploadMultipartMemory     int64 = 8 * 1024 * 1024
	DefaultUploadRejectMismatch            = true
	DefaultUploadReconcileInterval         = "15m"
	DefaultUploadOrphanGracePeriod         = "1h"
	defaultUploadAllowedExtension          = "pdf"
	defaultUploadAllowedMediaType          = "application/pdf"

	configDirEnvKey          = "CAREERCATALYST_CONFIG_DIR"
	trustProjectConfigEnvKey = "CAREERCATALYST_TRUST_PROJECT_CONFIG"
	dotEnvFileEnvKey         = "CAREERCATALYST_DOTENV"

	apiURLEnvKey         = "CAREERCATALYST_API_URL"
	dbPathEnvKey         = "CAREERCATALYST_DB"
	uploadDirEnvKey      = "CAREERCATALYST_UPLOAD_DIR"
	corsOriginsEnvKey    = "CAREERCATALYST_CORS_ORIGINS"
	allowedMediaEnvKey   = "CAREERCATALYST_UPLOAD_ALLOWED_MEDIA_TYPES"
	rejectMismatchEnvKey = "CAREERCATALYST_UPLOAD_REJECT_MEDIA_TYPE_MISMATCH"
)

// UploadConfig defines runtime configuration for resume uploads.
type UploadConfig struct {
	Dir                     string   `toml:"dir"`
	MaxUploadBytes          int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory      int64    `toml:"multipart_max_memory"`
	AllowedExtensions       []string `toml:"allowed_extensions"`
	AllowedMediaTypes       []string `toml:"allowed_media_types"`
	RejectMediaTypeMismatch bool     `toml:"reject_media_type_mismatch"`
	ReconcileInterval       string   `toml:"reconcile_interval"`
	OrphanGracePeriod       string   `toml:"orphan_grace_period"`
}

// Config defines runtime configuration for careercatalyst.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	DBPath                   string       `toml:"db_path"`
	LogLevel                 string       `toml:"log_level"`
	CORSOrigins              []string     `toml:"cors_origins"`
	Uploads                  UploadConfig `toml:"uploads"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		DBPath:      "",
		LogLevel:    DefaultLogLevel,
		CORSOrigins: []string{DefaultCORSOrigins},
		Uploads: UploadConfig{
			Dir:                     "",
			MaxUploadBytes:          DefaultUploadMaxBytes,
			MultipartMaxMemory:      DefaultUploadMultipartMemory,
			AllowedExtensions:       []string{defaultUploadAllowedExtension},
			AllowedMediaTypes:       []string{defaultUploadAllowedMediaType},
			RejectMediaTypeMismatch: DefaultUploadRejectMismatch,
			ReconcileInterval:       DefaultUploadReconcileInterval,
			OrphanGracePeriod:       DefaultUploadOrphanGracePeriod,
		},
	}
}

// ReconcileEvery returns the background reconcile interval; zero disables it.
func (u UploadConfig) ReconcileEvery() time.Duration {
	return parseDurationOr(u.ReconcileInterval, 0)
}

// OrphanGrace returns how old an unreferenced blob must be to count as an orphan.
func (u UploadConfig) OrphanGrace() time.Duration {
	return parseDurationOr(u.OrphanGracePeriod, time.Hour)
}

func parseDurationOr(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

type keyAccessor struct {
	key string
	get func(*Config) string
}

func csv(values []string) string { return strings.Join(values, ",") }

// keyAccessors lists the settable keys in display order.
var keyAccessors = []keyAccessor{
	{"api_url", func(c *Config) string { return c.APIURL }},
	{"db_path", func(c *Config) string { return c.DBPath }},
	{"log_level", func(c *Config) string { return c.LogLevel }},
	{"cors_origins", func(c *Config) string { return csv(c.CORSOrigins) }},
	{"uploads.dir", func(c *Config) string { return c.Uploads.Dir }},
	{"uploads.max_upload_bytes", func(c *Config) string { return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10) }},
	{"uploads.multipart_max_memory", func(c *Config) string { return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10) }},
	{"uploads.allowed_extensions", func(c *Config) string { return csv(c.Uploads.AllowedExtensions) }},
	{"uploads.allowed_media_types", func(c *Config) string { return csv(c.Uploads.AllowedMediaTypes) }},
	{"uploads.reject_media_type_mismatch", func(c *Config) string { return strconv.FormatBool(c.Uploads.RejectMediaTypeMismatch) }},
	{"uploads.reconcile_interval", func(c *Config) string { return c.Uploads.ReconcileInterval }},
	{"uploads.orphan_grace_period", func(c *Config) string { return c.Uploads.OrphanGracePeriod }},
}

func lookupKey(key string) (keyAccessor, bool) {
	i := slices.IndexFunc(keyAccessors, func(a keyAccessor) bool { return a.key == key })
	if i < 0 {
		return keyAccessor{}, false
	}
	return keyAccessors[i], true
}

// AllowedKeys returns the valid config keys.
func AllowedKeys() []string {
	keys := make([]string, len(keyAccessors))
	for i, a := range keyAccessors {
		keys[i] = a.key
	}
	return keys
}

func IsAllowedKey(key string) bool {
	_, ok := lookupKey(key)
	return ok
}

// Get returns the effective value of key, formatted the way SetKey accepts it.
func (c *Config) Get(key string) (string, error) {
	a, ok := lookupKey(key)
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	return a.get(c), nil
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// LoadDotEnv exports variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads .env, then config from trusted files, then applies env overrides.
func Load() (*Config, error) {
	dotEnv := strings.TrimSpace(os.Getenv(dotEnvFileEnvKey))
	if dotEnv == "" {
		dotEnv = DefaultDotEnvFile
	}
	if err := LoadDotEnv(dotEnv); err != nil {
		return nil, err
	}

	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if cfg.Uploads.Dir == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.Uploads.Dir = filepath.Join(cwd, DefaultUploadDir)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dir := os.Getenv(uploadDirEnvKey); dir != "" {
		cfg.Uploads.Dir = dir
	}
	if raw := strings.TrimSpace(os.Getenv(corsOriginsEnvKey)); raw != "" {
		cfg.CORSOrigins = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaEnvKey)); raw != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(rejectMismatchEnvKey)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cfg.Uploads.RejectMediaTypeMismatch = parsed
		}
	}

	cfg.normalizeDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects values that would otherwise fall back silently, such as a
// mistyped reconcile interval disabling the background sweep.
func (c *Config) validate() error {
	for _, d := range []struct{ key, raw string }{
		{"uploads.reconcile_interval", c.Uploads.ReconcileInterval},
		{"uploads.orphan_grace_period", c.Uploads.OrphanGracePeriod},
	} {
		raw := strings.TrimSpace(d.raw)
		if raw == "" {
			continue
		}
		if _, err := parseSetValue(d.key, raw); err != nil {
			return fmt.Errorf("invalid config: %w (got %q)", err, raw)
		}
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.reject_media_type_mismatch":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "uploads.reconcile_interval", "uploads.orphan_grace_period":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a duration like 15m", key)
		}
		return value, nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("log_level must be one of debug, info, warn, error")
	case "cors_origins", "uploads.allowed_extensions", "uploads.allowed_media_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultUploadMultipartMemory
	}
	c.Uploads.AllowedExtensions = normalizeExtensions(c.Uploads.AllowedExtensions)
	if len(c.Uploads.AllowedExtensions) == 0 {
		c.Uploads.AllowedExtensions = []string{defaultUploadAllowedExtension}
	}
	c.Uploads.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Uploads.AllowedMediaTypes)
	if len(c.Uploads.AllowedMediaTypes) == 0 {
		c.Uploads.AllowedMediaTypes = []string{defaultUploadAllowedMediaType}
	}
}

func normalizeExtensions(rawValues []string) []string {
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
