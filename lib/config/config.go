// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/trickle/lib/llm"
	"github.com/bureau-foundation/trickle/lib/pacing"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "TRICKLE_CONFIG"

// Config is the complete trickle configuration.
type Config struct {
	// Endpoint is the chat completions URL.
	Endpoint string `yaml:"endpoint"`

	// Model is the provider model identifier.
	Model string `yaml:"model"`

	// Referer and Title identify this application to the provider.
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`

	// SystemPrompt is sent as the first message of every request.
	SystemPrompt string `yaml:"system_prompt"`

	// Sampling holds the generation parameters.
	Sampling llm.Sampling `yaml:"sampling"`

	// Request configures timeouts and retries.
	Request RequestConfig `yaml:"request"`

	// Pacing configures the reveal cadence.
	Pacing PacingConfig `yaml:"pacing"`

	// CredentialFile is read for the API key. Empty means prompt on
	// the terminal; "-" means read standard input.
	CredentialFile string `yaml:"credential_file"`

	// Transcript is where completed turns are recorded. Empty
	// disables recording.
	Transcript string `yaml:"transcript"`

	// Relay configures the HTTP relay mode.
	Relay RelayConfig `yaml:"relay"`
}

// RequestConfig configures the streaming client.
type RequestConfig struct {
	// AttemptTimeout bounds each attempt, start to end of body.
	// Default: 30s. Fixed regardless of the expected reply length.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxAttempts counts the first attempt. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffBase and BackoffMax shape retry waits. Default: 1s, 8s.
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`

	// ContextBudget is the estimated prompt size, in tokens, above
	// which the oldest exchanges are left out of a request. Zero sends
	// the whole history.
	ContextBudget int `yaml:"context_budget"`
}

// PacingConfig configures the reveal scheduler.
type PacingConfig struct {
	// BaseDelay is the per-chunk delay before scaling. Default: 20ms.
	BaseDelay time.Duration `yaml:"base_delay"`

	// Jitter is the half-width of the random delay factor. Default: 0.02.
	Jitter float64 `yaml:"jitter"`
}

// RelayConfig configures the HTTP relay.
type RelayConfig struct {
	// Listen is the address served by --serve when the flag gives none.
	Listen string `yaml:"listen"`

	// AllowedOrigins lists browser origins allowed to call the relay.
	// Empty allows same-origin requests only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used for every field a file does
// not set.
func Default() *Config {
	return &Config{
		Endpoint:     llm.DefaultEndpoint,
		Model:        llm.DefaultModel,
		Referer:      "https://github.com/bureau-foundation/trickle",
		Title:        "trickle",
		SystemPrompt: "You are a helpful assistant. Answer clearly and concisely.",
		Sampling:     llm.DefaultSampling(),
		Request: RequestConfig{
			AttemptTimeout: llm.DefaultAttemptTimeout,
			MaxAttempts:    llm.DefaultMaxAttempts,
			BackoffBase:    llm.DefaultBackoffBase,
			BackoffMax:     llm.DefaultBackoffMax,
		},
		Pacing: PacingConfig{
			BaseDelay: pacing.DefaultBaseDelay,
			Jitter:    pacing.DefaultJitter,
		},
		Relay: RelayConfig{
			Listen: "127.0.0.1:8787",
		},
	}
}

// Load loads configuration from the file named by TRICKLE_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your trickle config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges one file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.CredentialFile = expandVars(c.CredentialFile, vars)
	c.Transcript = expandVars(c.Transcript, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if endpoint, err := url.Parse(c.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("endpoint: %w", err))
	} else if endpoint.Scheme != "http" && endpoint.Scheme != "https" || endpoint.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint must be an absolute http(s) URL, got %q", c.Endpoint))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}

	sampling := c.Sampling
	if sampling.Temperature < 0 || sampling.Temperature > 2 {
		errs = append(errs, fmt.Errorf("sampling.temperature must be in [0, 2], got %v", sampling.Temperature))
	}
	if sampling.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("sampling.max_tokens must be positive, got %d", sampling.MaxTokens))
	}
	if sampling.TopP <= 0 || sampling.TopP > 1 {
		errs = append(errs, fmt.Errorf("sampling.top_p must be in (0, 1], got %v", sampling.TopP))
	}
	if sampling.FrequencyPenalty < -2 || sampling.FrequencyPenalty > 2 {
		errs = append(errs, fmt.Errorf("sampling.frequency_penalty must be in [-2, 2], got %v", sampling.FrequencyPenalty))
	}
	if sampling.PresencePenalty < -2 || sampling.PresencePenalty > 2 {
		errs = append(errs, fmt.Errorf("sampling.presence_penalty must be in [-2, 2], got %v", sampling.PresencePenalty))
	}

	if c.Request.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("request.attempt_timeout must be positive"))
	}
	if c.Request.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("request.max_attempts must be at least 1, got %d", c.Request.MaxAttempts))
	}
	if c.Request.BackoffBase <= 0 {
		errs = append(errs, errors.New("request.backoff_base must be positive"))
	}
	if c.Request.BackoffMax < c.Request.BackoffBase {
		errs = append(errs, fmt.Errorf("request.backoff_max (%s) must not be less than request.backoff_base (%s)",
			c.Request.BackoffMax, c.Request.BackoffBase))
	}

	if c.Request.ContextBudget < 0 {
		errs = append(errs, fmt.Errorf("request.context_budget must not be negative, got %d", c.Request.ContextBudget))
	}

	if c.Pacing.BaseDelay <= 0 {
		errs = append(errs, errors.New("pacing.base_delay must be positive"))
	}
	if c.Pacing.Jitter < 0 || c.Pacing.Jitter >= 1 {
		errs = append(errs, fmt.Errorf("pacing.jitter must be in [0, 1), got %v", c.Pacing.Jitter))
	}

	return errors.Join(errs...)
}

// ClientOptions returns the streaming client options this
// configuration describes. Clock, logger and HTTP client are left for
// the caller.
func (c *Config) ClientOptions() llm.Options {
	return llm.Options{
		Endpoint:       c.Endpoint,
		Model:          c.Model,
		Referer:        c.Referer,
		Title:          c.Title,
		SystemPrompt:   c.SystemPrompt,
		Sampling:       c.Sampling,
		AttemptTimeout: c.Request.AttemptTimeout,
		MaxAttempts:    c.Request.MaxAttempts,
		BackoffBase:    c.Request.BackoffBase,
		BackoffMax:     c.Request.BackoffMax,
	}
}

// PacingOptions returns the scheduler options this configuration
// describes. A configured jitter of zero disables jitter.
func (c *Config) PacingOptions() pacing.Options {
	jitter := c.Pacing.Jitter
	if jitter == 0 {
		jitter = -1
	}
	return pacing.Options{
		BaseDelay: c.Pacing.BaseDelay,
		Jitter:    jitter,
	}
}
