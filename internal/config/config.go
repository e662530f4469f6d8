package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bootstrap settings shared by the CLI and the runner.
type Config struct {
	// Python is the interpreter used to drive pip (invoked as "<python> -m pip").
	Python string `yaml:"python"`
	// Requirements is the path to the dependency manifest handed verbatim to pip.
	Requirements string `yaml:"requirements"`
	// Package is the named package spec installed after the manifest,
	// optionally carrying a bracketed extra (e.g. "python-telegram-bot[webhooks]").
	Package string `yaml:"package"`
	// SkipUpgrade disables the leading pip self-upgrade step.
	SkipUpgrade bool `yaml:"skip_upgrade"`
	// Quiet suppresses the plain-text progress markers on stdout.
	Quiet bool `yaml:"quiet"`
	// StepTimeout bounds each pip invocation.
	StepTimeout time.Duration `yaml:"step_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for bootstrap settings.
	DefaultConfigFilename = "env-bootstrap-settings.yaml"

	// DefaultPython is the interpreter used when none is configured.
	DefaultPython = "python3"

	// DefaultRequirementsFilename is the conventional dependency manifest name.
	DefaultRequirementsFilename = "requirements.txt"

	// DefaultPackage is the named package installed after the manifest.
	DefaultPackage = "python-telegram-bot[webhooks]"

	// DefaultStepTimeout bounds a single pip invocation.
	DefaultStepTimeout = 15 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPythonHasSpaces is returned when the interpreter name contains whitespace.
	errPythonHasSpaces = errors.New("python executable must not contain whitespace")
)

// Default returns a configuration populated with the conventional values.
// It is used when no settings file is present; the original scripts ran
// without any configuration at all.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate applies defaults to unset fields and checks the rest for sanity.
// Manifest contents are never inspected here: the file is owned by pip.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if strings.ContainsAny(cfg.Python, " \t") {
		return errPythonHasSpaces
	}

	return nil
}

// applyDefaults fills zero values with the conventional settings.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Python) == "" {
		cfg.Python = DefaultPython
	}

	if strings.TrimSpace(cfg.Requirements) == "" {
		cfg.Requirements = DefaultRequirementsFilename
	}

	if strings.TrimSpace(cfg.Package) == "" {
		cfg.Package = DefaultPackage
	}

	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
}
