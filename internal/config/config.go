// Package config loads the connector configuration from a file, a .env
// file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the config file.
const (
	EnvAPIKey       = "TAP_NEON_API_KEY"
	EnvStartDate    = "TAP_NEON_START_DATE"
	EnvBaseURL      = "TAP_NEON_BASE_URL"
	EnvSchemaSource = "TAP_NEON_SCHEMA_SOURCE"
)

type Config struct {
	APIKey       string `json:"api_key" yaml:"api_key" hcl:"api_key,optional" jsonschema:"title=API Key,description=Neon API key sent as a bearer token"`
	StartDate    string `json:"start_date,omitempty" yaml:"start_date" hcl:"start_date,optional" jsonschema:"title=Start Date,format=date-time,description=Earliest record to sync"`
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url" hcl:"base_url,optional" jsonschema:"title=Base URL,format=uri,description=Neon API root"`
	SchemaSource string `json:"schema_source,omitempty" yaml:"schema_source" hcl:"schema_source,optional" jsonschema:"title=Schema Source,description=bundled or live or an OpenAPI document path"`
}

// Load reads the config file at path (if any) and overlays the environment.
// Values from a .env file in the working directory count as environment.
// The result is not validated.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Missing .env is fine; existing environment variables win.
	_ = godotenv.Load()

	cfg.ApplyEnv(os.LookupEnv)
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl", ".json":
		if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// ApplyEnv overrides fields with the non-empty TAP_NEON_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for env, field := range map[string]*string{
		EnvAPIKey:       &c.APIKey,
		EnvStartDate:    &c.StartDate,
		EnvBaseURL:      &c.BaseURL,
		EnvSchemaSource: &c.SchemaSource,
	} {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.StartDate != "" {
		if _, err := time.Parse(time.RFC3339, c.StartDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidStartDate, c.StartDate)
		}
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
		}
	}
	return nil
}

// StartTime returns the parsed start_date. The second value is false when
// start_date is unset or invalid.
func (c *Config) StartTime() (time.Time, bool) {
	if c.StartDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// JSONSchema describes the accepted configuration.
func JSONSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	s := reflector.Reflect(&Config{})
	if s.Version == "" {
		s.Version = jsonschema.Version
	}
	return s
}
