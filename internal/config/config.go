// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/offline"
	"github.com/jeranaias/sumer-tui/internal/storage"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sumer configuration.
type Config struct {
	API    APIConfig    `toml:"api" json:"api"`
	Stream StreamConfig `toml:"stream" json:"stream"`
	Auth   AuthConfig   `toml:"auth" json:"auth"`
	Log    LogConfig    `toml:"log" json:"log"`
	UI     UIConfig     `toml:"ui" json:"ui"`
}

// APIConfig locates the chat backend.
type APIConfig struct {
	BaseURL            string  `toml:"base_url" json:"base_url"`
	RequestTimeoutSecs int     `toml:"request_timeout_secs" json:"request_timeout_secs"`
	RequestsPerSecond  float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst              int     `toml:"burst" json:"burst"`
}

// StreamConfig controls reply streaming.
type StreamConfig struct {
	// TimeoutSecs is the longest silence tolerated between increments.
	TimeoutSecs      int `toml:"timeout_secs" json:"timeout_secs"`
	ProbeTimeoutSecs int `toml:"probe_timeout_secs" json:"probe_timeout_secs"`
}

// AuthConfig selects where the anonymous identity is persisted.
type AuthConfig struct {
	Store string `toml:"store" json:"store"`
	// Path overrides the credential file. Empty means a file in Dir().
	Path string `toml:"path" json:"path"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	File   string `toml:"file" json:"file"`
	Pretty bool   `toml:"pretty" json:"pretty"`
}

// UIConfig holds display preferences.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"`
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
}

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeAuto  = "auto"
)

// Default returns a config with all built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:            "http://127.0.0.1:8000",
			RequestTimeoutSecs: 15,
			RequestsPerSecond:  10,
			Burst:              5,
		},
		Stream: StreamConfig{
			TimeoutSecs:      30,
			ProbeTimeoutSecs: 3,
		},
		Auth: AuthConfig{
			Store: string(storage.BackendFile),
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:          ThemeAuto,
			RenderMarkdown: true,
		},
	}
}

// RequestTimeout returns the per-call API timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSecs) * time.Second
}

// StreamTimeout returns the stream silence timeout.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Stream.TimeoutSecs) * time.Second
}

// ProbeTimeout returns the health probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Stream.ProbeTimeoutSecs) * time.Second
}

// CredentialPath resolves where the auth store keeps its data.
func (c *Config) CredentialPath() (string, error) {
	if c.Auth.Path != "" {
		return c.Auth.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if storage.Backend(c.Auth.Store) == storage.BackendSQLite {
		return filepath.Join(dir, "credentials.db"), nil
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// LogPath resolves the log file. An empty Log.File means sumer.log in Dir().
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sumer.log"), nil
}

// Logging converts the log section for logging.New.
func (c *Config) Logging(file string) logging.Config {
	return logging.Config{Level: c.Log.Level, Pretty: c.Log.Pretty, File: file}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// EnvHome overrides the configuration directory.
const EnvHome = "SUMER_HOME"

// Dir returns the sumer configuration directory.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sumer"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions narrows a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads config.toml, then config.json, and falls back to defaults.
// Environment overrides are applied last. The returned path is the file that
// was read, or "" when only defaults were used.
func Load() (*Config, string, error) {
	tomlPath, err := PathTOML()
	if err != nil {
		return nil, "", err
	}
	jsonPath, err := PathJSON()
	if err != nil {
		return nil, "", err
	}

	for _, path := range []string{tomlPath, jsonPath} {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, "", nil
}

// LoadFromPath loads a config file (JSON by extension, TOML otherwise),
// applies environment overrides and validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults restores values a file blanked out explicitly.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.RequestTimeoutSecs == 0 {
		cfg.API.RequestTimeoutSecs = defaults.API.RequestTimeoutSecs
	}
	if cfg.Stream.TimeoutSecs == 0 {
		cfg.Stream.TimeoutSecs = defaults.Stream.TimeoutSecs
	}
	if cfg.Stream.ProbeTimeoutSecs == 0 {
		cfg.Stream.ProbeTimeoutSecs = defaults.Stream.ProbeTimeoutSecs
	}
	if cfg.Auth.Store == "" {
		cfg.Auth.Store = defaults.Auth.Store
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const fileHeader = `# sumer configuration file
# Generated by sumer - edit with care
#
# Environment overrides: SUMER_API_URL, SUMER_LOG_LEVEL, SUMER_AUTH_STORE,
# SUMER_STREAM_TIMEOUT, SUMER_THEME

`

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns all problems at once as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// API
	if err := offline.ValidateURL(c.API.BaseURL); err != nil {
		add("api.base_url", "invalid URL '%s': %v", c.API.BaseURL, err)
	}
	if c.API.RequestTimeoutSecs <= 0 {
		add("api.request_timeout_secs", "must be positive, got %d", c.API.RequestTimeoutSecs)
	}
	if c.API.RequestsPerSecond < 0 {
		add("api.requests_per_second", "must not be negative, got %g", c.API.RequestsPerSecond)
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst <= 0 {
		add("api.burst", "must be positive when rate limiting, got %d", c.API.Burst)
	}

	// Stream
	if c.Stream.TimeoutSecs <= 0 {
		add("stream.timeout_secs", "must be positive, got %d", c.Stream.TimeoutSecs)
	}
	if c.Stream.ProbeTimeoutSecs <= 0 {
		add("stream.probe_timeout_secs", "must be positive, got %d", c.Stream.ProbeTimeoutSecs)
	}

	// Auth
	switch storage.Backend(c.Auth.Store) {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		add("auth.store", "invalid store '%s', must be one of: file, sqlite, memory", c.Auth.Store)
	}

	// Log
	if !logging.ValidLevel(c.Log.Level) {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	// UI
	switch strings.ToLower(c.UI.Theme) {
	case ThemeDark, ThemeLight, ThemeAuto:
	default:
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnvOverrides.
const (
	EnvAPIURL        = "SUMER_API_URL"
	EnvLogLevel      = "SUMER_LOG_LEVEL"
	EnvAuthStore     = "SUMER_AUTH_STORE"
	EnvStreamTimeout = "SUMER_STREAM_TIMEOUT"
	EnvTheme         = "SUMER_THEME"
)

// ApplyEnvOverrides applies SUMER_* environment variables on top of c.
// A malformed SUMER_STREAM_TIMEOUT is ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvAuthStore); v != "" {
		c.Auth.Store = v
	}
	if v := os.Getenv(EnvStreamTimeout); v != "" {
		// Accept "45" or "45s".
		if secs, err := strconv.Atoi(v); err == nil {
			c.Stream.TimeoutSecs = secs
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Stream.TimeoutSecs = int(d / time.Second)
		}
	}
	if v := os.Getenv(EnvTheme); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "stream.timeout_secs").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, sorted.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := tomlName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+tomlName(section.Type.Field(j)))
		}
	}
	sort.Strings(keys)
	return keys
}

func tomlName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("toml"); ok {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(f.Name)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML for display.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
