// Copyright 2025 Demandcast Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package language

import (
	"errors"
	"os"
	"strings"
	"time"
)

// APIKeyEnv names the environment variable holding the annotation service
// credential. Credentials never live in the configuration file.
const APIKeyEnv = "DEMANDCAST_LANGUAGE_API_KEY"

// Config holds configuration for annotation service backends.
type Config struct {
	// Endpoint is the base URL of the annotation service.
	// Example: "https://language.googleapis.com" for the hosted API,
	// "http://localhost:11434" for a local OpenAI-compatible server.
	Endpoint string

	// Backend selects the analyzer implementation: "google" or "openai".
	Backend string

	// Model is the model identifier used by the openai backend.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// Timeout bounds each analysis call.
	// Default: 30s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEndpoint sets the annotation service base URL.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithBackend selects the analyzer implementation.
func WithBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithModel sets the model identifier for the openai backend.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config pointed at the hosted annotation API.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "https://language.googleapis.com",
		Backend:  "google",
		Model:    "qwen2.5:3b",
		Timeout:  30 * time.Second,
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form: trailing
// slashes are stripped, and the openai backend gets the /v1 suffix that
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc) require.
func (c *Config) Normalize() {
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	if c.Backend == "openai" && c.Endpoint != "" && !strings.HasSuffix(c.Endpoint, "/v1") {
		c.Endpoint = c.Endpoint + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Endpoint == "" {
		return errors.New("language config: Endpoint is required")
	}
	if c.Backend != "google" && c.Backend != "openai" {
		return errors.New("language config: Backend must be google or openai")
	}
	if c.Backend == "openai" && c.Model == "" {
		return errors.New("language config: Model is required for the openai backend")
	}
	if c.Timeout <= 0 {
		return errors.New("language config: Timeout must be positive")
	}
	return nil
}

// APIKeyFromEnv reads the service credential from the environment. An empty
// string means unauthenticated access (local servers, test fakes).
func APIKeyFromEnv() string {
	return os.Getenv(APIKeyEnv)
}
