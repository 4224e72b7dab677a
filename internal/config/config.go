// Package config loads GuidedCook settings from defaults, an optional YAML
// file, a .env file, and GUIDEDCOOK_* environment variables, in that order.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GUIDEDCOOK_"

// Config holds every tunable of the CLI and the dev backend.
type Config struct {
	APIBaseURL string `yaml:"api_base_url"`
	Token      string `yaml:"token"`
	UserID     string `yaml:"user_id"`

	TickInterval     time.Duration `yaml:"tick_interval"`
	SecondPulseDelay time.Duration `yaml:"second_pulse_delay"`
	LookupTimeout    time.Duration `yaml:"lookup_timeout"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`

	UploadAttempts int           `yaml:"upload_attempts"`
	UploadBackoff  time.Duration `yaml:"upload_backoff"`
	MaxPhotoEdge   int           `yaml:"max_photo_edge"`
	PhotoQuality   int           `yaml:"photo_quality"`

	Sound    bool   `yaml:"sound"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	ListenAddr  string            `yaml:"listen_addr"`
	MetricsAddr string            `yaml:"metrics_addr"`
	RecipesFile string            `yaml:"recipes_file"`
	Tokens      map[string]string `yaml:"tokens"` // bearer token -> user id, dev backend only
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		APIBaseURL:       "http://localhost:8080",
		TickInterval:     time.Second,
		SecondPulseDelay: 3 * time.Second,
		LookupTimeout:    5 * time.Second,
		HTTPTimeout:      15 * time.Second,
		UploadAttempts:   3,
		UploadBackoff:    500 * time.Millisecond,
		MaxPhotoEdge:     1600,
		PhotoQuality:     75,
		Sound:            true,
		LogLevel:         "normal",
		LogFile:          ".guidedcook/guidedcook.log",
		ListenAddr:       ":8080",
		Tokens: map[string]string{
			"dev-token": "demo",
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env is ignored. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		// A tokens table in the file replaces the built-in one rather than
		// adding to it.
		var overrides struct {
			Tokens map[string]string `yaml:"tokens"`
		}
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if overrides.Tokens != nil {
			cfg.Tokens = nil
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// .env only fills variables the environment does not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tick_interval must be positive"))
	}
	if c.SecondPulseDelay < 0 {
		errs = append(errs, errors.New("second_pulse_delay must not be negative"))
	}
	if c.LookupTimeout <= 0 {
		errs = append(errs, errors.New("lookup_timeout must be positive"))
	}
	if c.UploadAttempts < 1 {
		errs = append(errs, errors.New("upload_attempts must be at least 1"))
	}
	if c.UploadBackoff < 0 {
		errs = append(errs, errors.New("upload_backoff must not be negative"))
	}
	if c.MaxPhotoEdge < 1 {
		errs = append(errs, errors.New("max_photo_edge must be positive"))
	}
	if c.PhotoQuality < 1 || c.PhotoQuality > 100 {
		errs = append(errs, fmt.Errorf("photo_quality %d out of range 1..100", c.PhotoQuality))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() logger.Level {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	str("API_BASE_URL", &c.APIBaseURL)
	str("TOKEN", &c.Token)
	str("USER_ID", &c.UserID)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("RECIPES_FILE", &c.RecipesFile)
	dur("TICK_INTERVAL", &c.TickInterval)
	dur("SECOND_PULSE_DELAY", &c.SecondPulseDelay)
	dur("LOOKUP_TIMEOUT", &c.LookupTimeout)
	dur("HTTP_TIMEOUT", &c.HTTPTimeout)
	dur("UPLOAD_BACKOFF", &c.UploadBackoff)
	num("UPLOAD_ATTEMPTS", &c.UploadAttempts)
	num("MAX_PHOTO_EDGE", &c.MaxPhotoEdge)
	num("PHOTO_QUALITY", &c.PhotoQuality)

	if v, ok := lookup(EnvPrefix + "SOUND"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSOUND: %w", EnvPrefix, err))
		} else {
			c.Sound = b
		}
	}

	// GUIDEDCOOK_TOKENS=tok-a:alice,tok-b:bob
	if v, ok := lookup(EnvPrefix + "TOKENS"); ok {
		tokens := make(map[string]string)
		for _, pair := range strings.Split(v, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			tok, user, found := strings.Cut(pair, ":")
			if !found || tok == "" || user == "" {
				errs = append(errs, fmt.Errorf("%sTOKENS: bad pair %q", EnvPrefix, pair))
				continue
			}
			tokens[tok] = user
		}
		c.Tokens = tokens
	}

	return errors.Join(errs...)
}
