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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/chatwidget/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHATWIDGET_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chat widget configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Widget identity and message metadata
	Widget WidgetConfig `toml:"widget" json:"widget"`

	// Rendering capabilities and deferred pass timing
	Render RenderConfig `toml:"render" json:"render"`

	// Terminal display
	UI UIConfig `toml:"ui" json:"ui"`

	// Structured logging
	Log LogConfig `toml:"log" json:"log"`

	// Transcript export defaults
	Export ExportConfig `toml:"export" json:"export"`
}

// WidgetConfig contains conversation defaults.
type WidgetConfig struct {
	// Title is the initial conversation title.
	Title string `toml:"title" json:"title"`
	// AuthorName is attached to user messages.
	AuthorName string `toml:"author_name" json:"author_name"`
	// AssistantName is attached to assistant messages.
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
	// SystemName is attached to system messages.
	SystemName string `toml:"system_name" json:"system_name"`
	// TimestampLayout formats message timestamps (Go time layout).
	TimestampLayout string `toml:"timestamp_layout" json:"timestamp_layout"`
}

// RenderConfig contains rendering configuration.
type RenderConfig struct {
	// Markdown enables the Markdown formatter for assistant messages.
	Markdown bool `toml:"markdown" json:"markdown"`
	// Math enables MathML rendering of TeX spans.
	Math bool `toml:"math" json:"math"`
	// HardWraps renders single newlines in assistant Markdown as breaks.
	HardWraps bool `toml:"hard_wraps" json:"hard_wraps"`
	// MathRetryDelayMs delays the single retry of a pending math pass.
	MathRetryDelayMs int `toml:"math_retry_delay_ms" json:"math_retry_delay_ms"`
	// ImportRerenderDelayMs delays the re-render that follows an import.
	ImportRerenderDelayMs int `toml:"import_rerender_delay_ms" json:"import_rerender_delay_ms"`
}

// MathRetryDelay returns the math retry delay as a duration.
func (r RenderConfig) MathRetryDelay() time.Duration {
	return time.Duration(r.MathRetryDelayMs) * time.Millisecond
}

// ImportRerenderDelay returns the post-import re-render delay as a duration.
func (r RenderConfig) ImportRerenderDelay() time.Duration {
	return time.Duration(r.ImportRerenderDelayMs) * time.Millisecond
}

// UIConfig contains terminal display configuration.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the display width in columns (0 = terminal width).
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowTimestamps shows message timestamps.
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" json:"format"`
}

// ExportConfig contains transcript export defaults.
type ExportConfig struct {
	// Format is "json", "md", "html" or "yaml".
	Format string `toml:"format" json:"format"`
	// OutputDir is where exports are written.
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// InlineAttachments embeds attachment data in transcripts.
	InlineAttachments bool `toml:"inline_attachments" json:"inline_attachments"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Widget: WidgetConfig{
			Title:           "Chat",
			AuthorName:      "User",
			AssistantName:   "AI",
			SystemName:      "System",
			TimestampLayout: "15:04:05",
		},
		Render: RenderConfig{
			Markdown:              true,
			Math:                  true,
			HardWraps:             false,
			MathRetryDelayMs:      500,
			ImportRerenderDelayMs: 500,
		},
		UI: UIConfig{
			Theme:          "auto",
			WordWrap:       0,
			ShowTimestamps: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			Format:    "json",
			OutputDir: ".",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory path. CHATWIDGET_HOME
// overrides the default ~/.chatwidget.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatwidget"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. Missing files are skipped and variables
// that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys the file leaves out keep their default values.
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

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults restores defaults for string settings a file set to empty.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Widget.Title == "" {
		cfg.Widget.Title = defaults.Widget.Title
	}
	if cfg.Widget.AssistantName == "" {
		cfg.Widget.AssistantName = defaults.Widget.AssistantName
	}
	if cfg.Widget.SystemName == "" {
		cfg.Widget.SystemName = defaults.Widget.SystemName
	}
	if cfg.Widget.TimestampLayout == "" {
		cfg.Widget.TimestampLayout = defaults.Widget.TimestampLayout
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = defaults.Export.Format
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = defaults.Export.OutputDir
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatwidget configuration file\n")
	buf.WriteString("# Environment variables prefixed with " + EnvPrefix + " override these values\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Widget.TimestampLayout) == "" {
		errs = append(errs, ValidationError{"widget.timestamp_layout", "must not be empty"})
	}

	if c.Render.MathRetryDelayMs < 0 || c.Render.MathRetryDelayMs > 60000 {
		errs = append(errs, ValidationError{"render.math_retry_delay_ms", "must be between 0 and 60000"})
	}
	if c.Render.ImportRerenderDelayMs < 0 || c.Render.ImportRerenderDelayMs > 60000 {
		errs = append(errs, ValidationError{"render.import_rerender_delay_ms", "must be between 0 and 60000"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("invalid theme %q (valid: auto, dark, light)", c.UI.Theme)})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{"ui.word_wrap", "must not be negative"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("invalid level %q (valid: debug, info, warn, error)", c.Log.Level)})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{"log.format", fmt.Sprintf("invalid format %q (valid: text, json)", c.Log.Format)})
	}

	switch strings.ToLower(c.Export.Format) {
	case "json", "md", "markdown", "html", "htm", "yaml", "yml":
	default:
		errs = append(errs, ValidationError{"export.format", fmt.Sprintf("invalid format %q (valid: json, md, html, yaml)", c.Export.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATWIDGET_TITLE: overrides widget.title
//   - CHATWIDGET_AUTHOR: overrides widget.author_name
//   - CHATWIDGET_MARKDOWN: "1"/"true" enables, anything else disables
//   - CHATWIDGET_MATH: "1"/"true" enables, anything else disables
//   - CHATWIDGET_THEME: overrides ui.theme
//   - CHATWIDGET_LOG_LEVEL: overrides log.level
//   - CHATWIDGET_LOG_FORMAT: overrides log.format
//   - CHATWIDGET_EXPORT_DIR: overrides export.output_dir
func (c *Config) ApplyEnvOverrides() {
	if title := os.Getenv(EnvPrefix + "TITLE"); title != "" {
		c.Widget.Title = title
	}
	if author := os.Getenv(EnvPrefix + "AUTHOR"); author != "" {
		c.Widget.AuthorName = author
	}
	if v := os.Getenv(EnvPrefix + "MARKDOWN"); v != "" {
		c.Render.Markdown = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "MATH"); v != "" {
		c.Render.Math = parseBool(v)
	}
	if theme := os.Getenv(EnvPrefix + "THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv(EnvPrefix + "LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
	if dir := os.Getenv(EnvPrefix + "EXPORT_DIR"); dir != "" {
		c.Export.OutputDir = dir
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// String values are converted to the field's type.
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

// lookup resolves a dotted key to a leaf field.
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
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
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
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
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
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if name == "" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, prefix+name+".", keys)
			continue
		}
		*keys = append(*keys, prefix+name)
	}
}

// Clone returns a copy of the config. Config holds only value fields.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
