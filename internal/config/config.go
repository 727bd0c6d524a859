package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL   = "http://127.0.0.1:8000"
	DefaultLogLevel = "info"

	DefaultMaxUploadBytes          int64 = 32 * 1024 * 1024
	DefaultMultipartMaxMemory      int64 = 8 * 1024 * 1024
	DefaultRejectMediaTypeMismatch       = false

	DefaultLogMaxSizeMB    = 100
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAgeDays   = 28
	DefaultConnectAttempts = 20
	DefaultConnectBackoff  = "1s"

	configFileName  = ".imagetag.toml"
	configDirEnvKey = "IMAGETAG_CONFIG_DIR"

	databaseURLEnvKey       = "DATABASE_URL"
	uploadsPathEnvKey       = "UPLOADS_PATH"
	apiURLEnvKey            = "IMAGETAG_API_URL"
	logLevelEnvKey          = "IMAGETAG_LOG_LEVEL"
	allowedMediaTypesEnvKey = "IMAGETAG_ALLOWED_MEDIA_TYPES"
	rejectMismatchEnvKey    = "IMAGETAG_REJECT_MEDIA_TYPE_MISMATCH"
)

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// UploadConfig defines runtime configuration for image uploads.
type UploadConfig struct {
	MaxUploadBytes          int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory      int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes       []string `toml:"allowed_media_types"`
	RejectMediaTypeMismatch bool     `toml:"reject_media_type_mismatch"`
}

// StartupConfig bounds how long the server waits for the metadata store.
type StartupConfig struct {
	ConnectAttempts int    `toml:"connect_attempts"`
	ConnectBackoff  string `toml:"connect_backoff"`
}

// Config defines runtime configuration for imagetag.
type Config struct {
	APIURL      string        `toml:"api_url"`
	DatabaseURL string        `toml:"database_url"`
	UploadsPath string        `toml:"uploads_path"`
	LogLevel    string        `toml:"log_level"`
	Log         LogConfig     `toml:"log"`
	Uploads     UploadConfig  `toml:"uploads"`
	Startup     StartupConfig `toml:"startup"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Log: LogConfig{
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:          DefaultMaxUploadBytes,
			MultipartMaxMemory:      DefaultMultipartMaxMemory,
			RejectMediaTypeMismatch: DefaultRejectMediaTypeMismatch,
		},
		Startup: StartupConfig{
			ConnectAttempts: DefaultConnectAttempts,
			ConnectBackoff:  DefaultConnectBackoff,
		},
	}
}

func loadFile(path string, cfg *Config) error {
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
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

var allowedKeys = []string{
	"api_url",
	"database_url",
	"uploads_path",
	"log_level",
	"log.file",
	"log.max_size_mb",
	"log.max_backups",
	"log.max_age_days",
	"log.compress",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_media_types",
	"uploads.reject_media_type_mismatch",
	"startup.connect_attempts",
	"startup.connect_backoff",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "database_url":
		return c.DatabaseURL, nil
	case "uploads_path":
		return c.UploadsPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "log.file":
		return c.Log.File, nil
	case "log.max_size_mb":
		return strconv.Itoa(c.Log.MaxSizeMB), nil
	case "log.max_backups":
		return strconv.Itoa(c.Log.MaxBackups), nil
	case "log.max_age_days":
		return strconv.Itoa(c.Log.MaxAgeDays), nil
	case "log.compress":
		return strconv.FormatBool(c.Log.Compress), nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_media_types":
		return strings.Join(c.Uploads.AllowedMediaTypes, ","), nil
	case "uploads.reject_media_type_mismatch":
		return strconv.FormatBool(c.Uploads.RejectMediaTypeMismatch), nil
	case "startup.connect_attempts":
		return strconv.Itoa(c.Startup.ConnectAttempts), nil
	case "startup.connect_backoff":
		return c.Startup.ConnectBackoff, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
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

// LoadDotEnv loads .env files from the working directory and the config
// directory. Variables already present in the environment win.
func LoadDotEnv() error {
	paths := []string{".env"}
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads .env files and the config file, then applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	path, err := GlobalPath()
	if err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv(apiURLEnvKey)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(databaseURLEnvKey)); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(uploadsPathEnvKey)); v != "" {
		cfg.UploadsPath = v
	}
	if v := strings.TrimSpace(os.Getenv(logLevelEnvKey)); v != "" {
		cfg.LogLevel = v
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaTypesEnvKey)); raw != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(rejectMismatchEnvKey)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cfg.Uploads.RejectMediaTypeMismatch = parsed
		}
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

// ValidateServer checks the settings the server cannot start without.
func (c *Config) ValidateServer() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database url is required (set %s or database_url)", databaseURLEnvKey)
	}
	if strings.TrimSpace(c.UploadsPath) == "" {
		return fmt.Errorf("uploads path is required (set %s or uploads_path)", uploadsPathEnvKey)
	}
	if _, err := c.ConnectBackoff(); err != nil {
		return err
	}
	return nil
}

// ConnectBackoff parses startup.connect_backoff.
func (c *Config) ConnectBackoff() (time.Duration, error) {
	raw := strings.TrimSpace(c.Startup.ConnectBackoff)
	if raw == "" {
		raw = DefaultConnectBackoff
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("startup.connect_backoff must be a non-negative duration, got %q", c.Startup.ConnectBackoff)
	}
	return d, nil
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
	case "log.max_size_mb", "log.max_backups", "log.max_age_days", "startup.connect_attempts":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.reject_media_type_mismatch", "log.compress":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "startup.connect_backoff":
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return nil, fmt.Errorf("%s must be a duration such as 1s", key)
		}
		return value, nil
	case "uploads.allowed_media_types":
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
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Startup.ConnectAttempts <= 0 {
		c.Startup.ConnectAttempts = DefaultConnectAttempts
	}
	c.Uploads.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Uploads.AllowedMediaTypes)
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
