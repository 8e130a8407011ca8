// Package config resolves runtime settings from SAUCE_* environment
// variables, overlaid on an optional JSON file. Environment always wins.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DriverChrome = "chrome"
	DriverHTTP   = "http"

	DefaultBaseURL = "https://www.saucedemo.com/"

	ViewportWidth  = 1280
	ViewportHeight = 720
)

type RuntimeConfig struct {
	BaseURL          string
	Driver           string
	FixturePath      string
	Headless         bool
	Timeout          time.Duration
	PollInterval     time.Duration
	ScenarioTimeout  time.Duration
	ChromeBinary     string
	ChromeExtraFlags string
	CdpURL           string
	NoAnimations     bool
	BlockTrackers    bool
	Bind             string
	Port             string
	Glitch           time.Duration
	ConfigPath       string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envBoolOr(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func envMillisOr(key string, fallback time.Duration) time.Duration {
	return time.Duration(envIntOr(key, int(fallback/time.Millisecond))) * time.Millisecond
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}

func (c *RuntimeConfig) ListenAddr() string {
	return c.Bind + ":" + c.Port
}

// Validate rejects settings no session could run with.
func (c *RuntimeConfig) Validate() error {
	var errs []error
	if c.Driver != DriverChrome && c.Driver != DriverHTTP {
		errs = append(errs, fmt.Errorf("driver must be %q or %q, got %q", DriverChrome, DriverHTTP, c.Driver))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base url is empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.ScenarioTimeout < c.Timeout {
		errs = append(errs, fmt.Errorf("scenario timeout %v is shorter than element timeout %v", c.ScenarioTimeout, c.Timeout))
	}
	return errors.Join(errs...)
}

type FileConfig struct {
	BaseURL            string `json:"baseUrl,omitempty"`
	Driver             string `json:"driver,omitempty"`
	Fixture            string `json:"fixture,omitempty"`
	Headless           *bool  `json:"headless,omitempty"`
	TimeoutMs          int    `json:"timeoutMs,omitempty"`
	PollMs             int    `json:"pollMs,omitempty"`
	ScenarioTimeoutSec int    `json:"scenarioTimeoutSec,omitempty"`
	CdpURL             string `json:"cdpUrl,omitempty"`
	Port               string `json:"port,omitempty"`
	GlitchMs           *int   `json:"glitchMs,omitempty"`
}

func Load() *RuntimeConfig {
	cfg := &RuntimeConfig{
		BaseURL:          envOr("SAUCE_BASE_URL", DefaultBaseURL),
		Driver:           envOr("SAUCE_DRIVER", DriverChrome),
		FixturePath:      os.Getenv("SAUCE_FIXTURE"),
		Headless:         envBoolOr("SAUCE_HEADLESS", true),
		Timeout:          envMillisOr("SAUCE_TIMEOUT_MS", 4*time.Second),
		PollInterval:     envMillisOr("SAUCE_POLL_MS", 100*time.Millisecond),
		ScenarioTimeout:  envDurationOr("SAUCE_SCENARIO_TIMEOUT", 60*time.Second),
		ChromeBinary:     os.Getenv("CHROME_BINARY"),
		ChromeExtraFlags: os.Getenv("CHROME_FLAGS"),
		CdpURL:           os.Getenv("CDP_URL"),
		NoAnimations:     envBoolOr("SAUCE_NO_ANIMATIONS", true),
		BlockTrackers:    envBoolOr("SAUCE_BLOCK_TRACKERS", true),
		Bind:             envOr("SAUCE_STOREFRONT_BIND", "127.0.0.1"),
		Port:             envOr("SAUCE_STOREFRONT_PORT", "8080"),
		Glitch:           envMillisOr("SAUCE_GLITCH_MS", 2*time.Second),
		ConfigPath:       envOr("SAUCE_CONFIG", filepath.Join(homeDir(), ".saucecheck", "config.json")),
	}

	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return cfg
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg
	}

	if fc.BaseURL != "" && os.Getenv("SAUCE_BASE_URL") == "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.Driver != "" && os.Getenv("SAUCE_DRIVER") == "" {
		cfg.Driver = fc.Driver
	}
	if fc.Fixture != "" && os.Getenv("SAUCE_FIXTURE") == "" {
		cfg.FixturePath = fc.Fixture
	}
	if fc.Headless != nil && os.Getenv("SAUCE_HEADLESS") == "" {
		cfg.Headless = *fc.Headless
	}
	if fc.TimeoutMs > 0 && os.Getenv("SAUCE_TIMEOUT_MS") == "" {
		cfg.Timeout = time.Duration(fc.TimeoutMs) * time.Millisecond
	}
	if fc.PollMs > 0 && os.Getenv("SAUCE_POLL_MS") == "" {
		cfg.PollInterval = time.Duration(fc.PollMs) * time.Millisecond
	}
	if fc.ScenarioTimeoutSec > 0 && os.Getenv("SAUCE_SCENARIO_TIMEOUT") == "" {
		cfg.ScenarioTimeout = time.Duration(fc.ScenarioTimeoutSec) * time.Second
	}
	if fc.CdpURL != "" && os.Getenv("CDP_URL") == "" {
		cfg.CdpURL = fc.CdpURL
	}
	if fc.Port != "" && os.Getenv("SAUCE_STOREFRONT_PORT") == "" {
		cfg.Port = fc.Port
	}
	if fc.GlitchMs != nil && os.Getenv("SAUCE_GLITCH_MS") == "" {
		cfg.Glitch = time.Duration(*fc.GlitchMs) * time.Millisecond
	}

	return cfg
}

func DefaultFileConfig() FileConfig {
	h := true
	return FileConfig{
		BaseURL:            DefaultBaseURL,
		Driver:             DriverChrome,
		Headless:           &h,
		TimeoutMs:          4000,
		PollMs:             100,
		ScenarioTimeoutSec: 60,
		Port:               "8080",
	}
}

// WriteDefault creates a default config file at path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(DefaultFileConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Show prints the effective configuration.
func (c *RuntimeConfig) Show(w io.Writer) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintf(w, "  Base URL:   %s\n", c.BaseURL)
	fmt.Fprintf(w, "  Driver:     %s\n", c.Driver)
	fmt.Fprintf(w, "  Fixture:    %s\n", orNone(c.FixturePath, "(embedded)"))
	fmt.Fprintf(w, "  Headless:   %v\n", c.Headless)
	fmt.Fprintf(w, "  CDP URL:    %s\n", orNone(c.CdpURL, "(launch)"))
	fmt.Fprintf(w, "  Timeouts:   element=%v poll=%v scenario=%v\n", c.Timeout, c.PollInterval, c.ScenarioTimeout)
	fmt.Fprintf(w, "  Storefront: %s (glitch %v)\n", c.ListenAddr(), c.Glitch)
	fmt.Fprintf(w, "  Config:     %s\n", c.ConfigPath)
}

func orNone(v, none string) string {
	if v == "" {
		return none
	}
	return v
}
