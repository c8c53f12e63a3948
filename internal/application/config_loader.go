package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// EnvPrefix is the prefix of every environment override, e.g.
// TALLY_POLICY_WINDOW_END.
const EnvPrefix = "TALLY_"

// ConfigLoader provides YAML configuration parsing, environment overrides
// and validation, turning a declarative file into a validated Config.
type ConfigLoader struct {
	// validator performs struct field validation and the custom rules
	// registered by registerCustomValidators.
	validator *validator.Validate
	// environ replaces the process environment when non-nil.
	environ map[string]string
}

// NewConfigLoader creates a loader with custom validators registered.
// NewConfigLoader returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// WithEnvironment makes the loader read overrides from environ instead of
// the process environment.
func (cl *ConfigLoader) WithEnvironment(environ map[string]string) *ConfigLoader {
	cl.environ = environ
	return cl
}

// Load returns the configuration for path. An empty path yields the
// defaults with environment overrides applied.
func (cl *ConfigLoader) Load(path string) (*Config, error) {
	if path == "" {
		return cl.load(nil)
	}
	return cl.LoadFromFile(path)
}

// LoadFromFile loads and validates a configuration file.
func (cl *ConfigLoader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data)
}

// LoadFromReader loads and validates a configuration from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data)
}

// load layers data and the environment over DefaultConfig and validates
// the result.
func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := cl.parseYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cl.applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cl.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseYAML decodes data over cfg using strict decoding so that typos in
// keys are reported instead of silently ignored. Empty input leaves cfg
// untouched.
func (cl *ConfigLoader) parseYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

// applyEnv overlays TALLY_* environment variables onto cfg.
func (cl *ConfigLoader) applyEnv(cfg *Config) error {
	opts := env.Options{Prefix: EnvPrefix}
	if cl.environ != nil {
		opts.Environment = cl.environ
	}
	return env.ParseWithOptions(cfg, opts)
}

// Validate performs struct validation followed by the domain policy
// checks. Failures are reported as a *domain.ValidationError listing every
// offending field.
func (cl *ConfigLoader) Validate(cfg *Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("struct validation failed: %w", err)
		}
		ve := domain.NewValidationError("config")
		for _, fe := range verrs {
			ve.AddError(describeFieldError(fe))
		}
		return ve
	}

	if err := cfg.Policy.Policy().Validate(); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}
