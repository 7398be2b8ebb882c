/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package config loads the per-user YAML configuration, applies FP_*
// environment overrides and keeps the backend token in the OS keychain.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "floorplan/internal/log"
)

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// ProjectID selects the remote project whose plan is synchronized when
	// the project manifest does not name one.
	// With neither set the remote sink is off. The token lives in the OS keychain.
	ProjectID string `yaml:"project_id"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// LogOptions maps the logging section onto logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// EditorConfig tunes the drawing layer.
type EditorConfig struct {
	// ViewportPollMs is used only when the host canvas cannot push
	// viewport changes.
	ViewportPollMs int     `yaml:"viewport_poll_ms"`
	MinShapeSize   float64 `yaml:"min_shape_size"`
	HitPadding     float64 `yaml:"hit_padding"`
	HandleSizePx   float64 `yaml:"handle_size_px"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
	Editor        EditorConfig  `yaml:"editor"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Editor:        EditorConfig{ViewportPollMs: 100, MinShapeSize: 10, HitPadding: 2, HandleSizePx: 8},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "FP_BACKEND_URL"
	EnvBackendTimeoutMs = "FP_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "FP_TLS_INSECURE"
	EnvProjectID        = "FP_PROJECT_ID"
	EnvTelemetryOptIn   = "FP_TELEMETRY_OPT_IN"
	EnvViewportPollMs   = "FP_VIEWPORT_POLL_MS"
	EnvLogLevel         = "FP_LOG_LEVEL"
	EnvLogFormat        = "FP_LOG_FORMAT"
	EnvLogSource        = "FP_LOG_SOURCE"
	EnvLogFile          = "FP_LOG_FILE"
)

const (
	keyringService = "FloorPlan"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the OS keychain so tests can swap it out.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the keychain backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path. FP_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("FP_CONFIG")); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "FloorPlan")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "FloorPlan")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(dir, "floorplan")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file (if present) over the defaults, applies the
// environment overrides and fetches the backend token from the keychain.
// A missing keychain entry yields an empty token, not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the YAML file and stores a non-empty token in the keychain.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

// ForgetToken removes the backend token from the keychain.
func ForgetToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setStr(&dst.General.Theme, src.General.Theme)
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	setStr(&dst.Backend.BaseURL, src.Backend.BaseURL)
	setStr(&dst.Backend.ProjectID, src.Backend.ProjectID)
	if src.Backend.TimeoutMs > 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

	setStr(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setStr(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	setStr(&dst.Logging.File, src.Logging.File)
	dst.Logging.Source = src.Logging.Source

	if src.Editor.ViewportPollMs > 0 {
		dst.Editor.ViewportPollMs = src.Editor.ViewportPollMs
	}
	if src.Editor.MinShapeSize > 0 {
		dst.Editor.MinShapeSize = src.Editor.MinShapeSize
	}
	if src.Editor.HitPadding > 0 {
		dst.Editor.HitPadding = src.Editor.HitPadding
	}
	if src.Editor.HandleSizePx > 0 {
		dst.Editor.HandleSizePx = src.Editor.HandleSizePx
	}
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// envBinding maps one environment variable onto one config key.
type envBinding struct {
	env   string
	key   string
	apply func(cfg *AppConfig, v string)
}

var envBindings = []envBinding{
	{EnvBackendURL, "backend.base_url", func(c *AppConfig, v string) { c.Backend.BaseURL = v }},
	{EnvBackendTimeoutMs, "backend.timeout_ms", func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Backend.TimeoutMs = n
		}
	}},
	{EnvBackendTLSInsec, "backend.tls_insecure", func(c *AppConfig, v string) { c.Backend.TLSInsecure = truthy(v) }},
	{EnvProjectID, "backend.project_id", func(c *AppConfig, v string) { c.Backend.ProjectID = v }},
	{EnvTelemetryOptIn, "general.telemetry_opt_in", func(c *AppConfig, v string) { c.General.TelemetryOptIn = truthy(v) }},
	{EnvViewportPollMs, "editor.viewport_poll_ms", func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Editor.ViewportPollMs = n
		}
	}},
	{EnvLogLevel, "logging.level", func(c *AppConfig, v string) { c.Logging.Level = strings.ToLower(v) }},
	{EnvLogFormat, "logging.format", func(c *AppConfig, v string) { c.Logging.Format = strings.ToLower(v) }},
	{EnvLogSource, "logging.source", func(c *AppConfig, v string) { c.Logging.Source = truthy(v) }},
	{EnvLogFile, "logging.file", func(c *AppConfig, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.env)); v != "" {
			b.apply(cfg, v)
		}
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor reports which environment variable, if any, currently
// overrides the dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range envBindings {
		if b.key == key && os.Getenv(b.env) != "" {
			return b.env, true
		}
	}
	return "", false
}

// Timeout returns the backend request timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// PollInterval returns the viewport polling interval.
func (e EditorConfig) PollInterval() time.Duration {
	ms := e.ViewportPollMs
	if ms <= 0 {
		ms = Defaults().Editor.ViewportPollMs
	}
	return time.Duration(ms) * time.Millisecond
}
