package recall

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the convenience file form of Options, for programs that want
// cache behavior controlled by deployment configuration rather than code.
// The core itself never reads a settings file; callers load one explicitly
// and pass the resulting options to New.
type Settings struct {
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled"`

	// Strict propagates storage and contention errors instead of degrading.
	Strict bool `yaml:"strict"`

	// Dir is the directory cache databases live in. Empty means DefaultDir.
	Dir string `yaml:"dir"`

	// LockWait is a duration string, e.g. "2s".
	LockWait string `yaml:"lock_wait"`

	// StaleWriterAfter is a duration string, e.g. "30m".
	StaleWriterAfter string `yaml:"stale_writer_after"`
}

// LoadSettings reads a YAML settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Options converts the settings into construction options.
func (s Settings) Options() ([]Option, error) {
	opts := []Option{WithStrict(s.Strict)}
	if s.Enabled != nil {
		opts = append(opts, WithEnabled(*s.Enabled))
	}
	if s.LockWait != "" {
		d, err := time.ParseDuration(s.LockWait)
		if err != nil {
			return nil, fmt.Errorf("settings lock_wait: %w", err)
		}
		opts = append(opts, WithLockWait(d))
	}
	if s.StaleWriterAfter != "" {
		d, err := time.ParseDuration(s.StaleWriterAfter)
		if err != nil {
			return nil, fmt.Errorf("settings stale_writer_after: %w", err)
		}
		opts = append(opts, WithStaleWriterAfter(d))
	}
	return opts, nil
}

// CachePath resolves the database path for a named target under the
// configured directory, creating the directory if needed.
func (s Settings) CachePath(name string) (string, error) {
	dir := s.Dir
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return filepath.Join(dir, name+".db"), nil
}
