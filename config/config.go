// Package config holds host-binary configuration. The core timer
// subsystem is configuration-free; everything here tunes the embedding:
// which script to load, how often the runloop polls, logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "1.5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the host binary configuration.
type Config struct {
	// Script is the Lua file to load on startup.
	Script string `yaml:"script"`

	// Poll is the runloop cadence. Wake-up resolution is bounded below
	// by this value; handlers fire no earlier than their target time.
	Poll Duration `yaml:"poll"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Watch reloads the script when it changes on disk.
	Watch bool `yaml:"watch"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Poll:     Duration(10 * time.Millisecond),
		LogLevel: "info",
	}
}

// Load reads a YAML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Poll <= 0 {
		cfg.Poll = Default().Poll
	}
	return cfg, nil
}

// Dir returns the chime configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "chime")
}

// File returns the path to config.yaml inside Dir.
func File() string {
	return filepath.Join(Dir(), "config.yaml")
}
