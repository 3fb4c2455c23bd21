// Package config holds the immutable run configuration and the optional
// keyprunk.yml defaults file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/keyprunk/keyprunk/internal/keygen"
	"github.com/keyprunk/keyprunk/internal/match"
	"gopkg.in/yaml.v3"
)

// StatusMode controls whether the live status display runs.
type StatusMode string

const (
	// StatusAuto enables the display only when stderr is a terminal and
	// stdout is not. The latter prevents found keys printed to stdout from
	// being overwritten by status output.
	StatusAuto StatusMode = "auto"

	StatusAlways StatusMode = "always"
	StatusNever  StatusMode = "never"
)

// ParseStatusMode validates a user-supplied status mode string.
func ParseStatusMode(s string) (StatusMode, error) {
	switch StatusMode(s) {
	case StatusAuto, StatusAlways, StatusNever:
		return StatusMode(s), nil
	default:
		return "", fmt.Errorf("invalid status mode %q (expected: auto, always or never)", s)
	}
}

// Enabled resolves the tri-state against the actual terminal attachment.
func (m StatusMode) Enabled(stderrTerminal, stdoutTerminal bool) bool {
	switch m {
	case StatusAlways:
		return true
	case StatusNever:
		return false
	default:
		return stderrTerminal && !stdoutTerminal
	}
}

// Config is the immutable configuration for a single search run. It is
// constructed once by the CLI layer and read-only afterwards.
type Config struct {
	Pattern       *match.Pattern
	StatusEnabled bool
	StopAfter     uint64 // 0 = keep searching until externally stopped
	Passphrase    []byte // nil = found keys are written unencrypted
	Workers       int
	UserID        keygen.UserID
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Pattern == nil {
		return fmt.Errorf("no pattern configured")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	return nil
}

// DefaultWorkers is the worker count used when none is configured: the
// available parallel execution capacity of the host.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// FileConfig is the optional keyprunk.yml defaults file. Explicit flags
// always win over values from the file.
type FileConfig struct {
	Workers      int           `yaml:"workers,omitempty"`
	Status       string        `yaml:"status,omitempty"`
	MatchTimeout string        `yaml:"match_timeout,omitempty"` // e.g. "10s"
	UserID       *UserIDConfig `yaml:"uid,omitempty"`
}

// ResolveMatchTimeout parses the match_timeout value. Zero means "use the
// built-in default". Call only after Validate.
func (fc *FileConfig) ResolveMatchTimeout() time.Duration {
	if fc.MatchTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(fc.MatchTimeout)
	if err != nil {
		return 0
	}
	return d
}

// UserIDConfig is the identity section of the defaults file.
type UserIDConfig struct {
	Name    string `yaml:"name,omitempty"`
	Comment string `yaml:"comment,omitempty"`
	Email   string `yaml:"email,omitempty"`
}

// LoadFile reads and validates a keyprunk.yml defaults file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate performs strict validation on the defaults file.
func (fc *FileConfig) Validate() error {
	if fc.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got %d)", fc.Workers)
	}
	if fc.Status != "" {
		if _, err := ParseStatusMode(fc.Status); err != nil {
			return err
		}
	}
	if fc.MatchTimeout != "" {
		d, err := time.ParseDuration(fc.MatchTimeout)
		if err != nil {
			return fmt.Errorf("invalid match_timeout %q: %w", fc.MatchTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("match_timeout must be positive (got %s)", fc.MatchTimeout)
		}
	}
	return nil
}
