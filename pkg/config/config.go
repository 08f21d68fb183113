// Package config loads the command-line tool's settings from YAML, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvProcess  = "DFM_PROCESS"
	EnvLogLevel = "DFM_LOG_LEVEL"
)

// Config is the tool configuration.
type Config struct {
	// Process is a name accepted by dfm.ParseProcess.
	Process string `yaml:"process" json:"process" validate:"required,process"`
	// Density is in g/cm³.
	Density float64 `yaml:"density" json:"density" validate:"gt=0"`
	// Timeout bounds model script evaluation. Zero disables it.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	Format  string        `yaml:"format" json:"format" validate:"oneof=text json"`
	Logging Logging       `yaml:"logging" json:"logging"`
	Rules   dfm.Config    `yaml:"rules" json:"rules"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the built-in configuration: CNC machining of aluminium
// (2.7 g/cm³) with the default rule thresholds.
func Default() Config {
	return Config{
		Process: string(dfm.CNCMachining),
		Density: 2.7,
		Timeout: 10 * time.Second,
		Format:  "text",
		Logging: Logging{Level: "warn"},
		Rules:   dfm.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvProcess)); v != "" {
		c.Process = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// ProcessValue returns the parsed process.
func (c Config) ProcessValue() (dfm.Process, error) {
	return dfm.ParseProcess(c.Process)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("process", validateProcess)
	validate.RegisterStructValidation(validateDirections, dfm.Config{})
}

func validateProcess(fl validator.FieldLevel) bool {
	_, err := dfm.ParseProcess(fl.Field().String())
	return err == nil
}

// validateDirections rejects zero or non-finite pull and build directions.
func validateDirections(sl validator.StructLevel) {
	c := sl.Current().Interface().(dfm.Config)
	if c.PullDirection.IsZero() || !c.PullDirection.IsFinite() {
		sl.ReportError(c.PullDirection, "PullDirection", "pull_direction", "direction", "")
	}
	if c.BuildDirection.IsZero() || !c.BuildDirection.IsFinite() {
		sl.ReportError(c.BuildDirection, "BuildDirection", "build_direction", "direction", "")
	}
}

// Validate checks every field, including the rule thresholds.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Logger builds a zap logger from the logging settings. verbose forces
// debug level.
func (c Config) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
