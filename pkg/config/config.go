// Package config holds the engine's on-disk configuration: where
// sessions and recordings live, the default grid size, and the HTTP
// transport settings, loaded from YAML and overridable by CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the engine's persisted configuration.
type Config struct {
	ControlPath string     `yaml:"control_path"`
	Terminal    Terminal   `yaml:"terminal"`
	Server      Server     `yaml:"server"`
	Recording   Recording  `yaml:"recording"`
	Advanced    Advanced   `yaml:"advanced"`
}

// Terminal configures the default emulated grid size and shell.
type Terminal struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	DefaultTerm  string `yaml:"default_term"`
	DefaultShell string `yaml:"default_shell"`
}

// Server configures the HTTP/WebSocket transport.
type Server struct {
	Port       string `yaml:"port"`
	AccessMode string `yaml:"access_mode"` // "localhost" or "network"
}

// Recording configures where and whether sessions get persisted.
type Recording struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Advanced holds options less commonly changed day-to-day.
type Advanced struct {
	DebugMode      bool `yaml:"debug_mode"`
	CleanupStartup bool `yaml:"cleanup_startup"`
}

// DefaultConfig returns a configuration with this engine's defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		ControlPath: filepath.Join(homeDir, ".termengine", "control"),
		Terminal: Terminal{
			Width:       50,
			Height:      16,
			DefaultTerm: "xterm-256color",
		},
		// DefaultShell is left empty: termsession falls back to $SHELL
		// (or /bin/bash) when no shell is configured or given on the
		// command line.
		Server: Server{
			Port:       "4021",
			AccessMode: "localhost",
		},
		Recording: Recording{
			Enabled: false,
			Dir:     "recordings",
		},
		Advanced: Advanced{
			DebugMode:      false,
			CleanupStartup: false,
		},
	}
}

// LoadConfig loads configuration from filename, writing out the default
// if the file doesn't exist yet.
func LoadConfig(filename string) *Config {
	cfg := DefaultConfig()

	if filename == "" {
		return cfg
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		fmt.Printf("Warning: failed to create config directory: %v\n", err)
		return cfg
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to read config file: %v\n", err)
		}
		if err := cfg.Save(filename); err != nil {
			fmt.Printf("Warning: failed to save default config: %v\n", err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		fmt.Printf("Warning: failed to parse config file: %v\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Save writes the configuration to filename as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// MergeFlags overlays any CLI flags the user actually set onto c.
func (c *Config) MergeFlags(flags *pflag.FlagSet) {
	if flags.Changed("port") {
		if val, err := flags.GetString("port"); err == nil {
			c.Server.Port = val
		}
	}
	if flags.Changed("localhost") {
		if val, err := flags.GetBool("localhost"); err == nil && val {
			c.Server.AccessMode = "localhost"
		}
	}
	if flags.Changed("network") {
		if val, err := flags.GetBool("network"); err == nil && val {
			c.Server.AccessMode = "network"
		}
	}
	if flags.Changed("cols") {
		if val, err := flags.GetInt("cols"); err == nil {
			c.Terminal.Width = val
		}
	}
	if flags.Changed("rows") {
		if val, err := flags.GetInt("rows"); err == nil {
			c.Terminal.Height = val
		}
	}
	if flags.Changed("shell") {
		if val, err := flags.GetString("shell"); err == nil {
			c.Terminal.DefaultShell = val
		}
	}
	if flags.Changed("record") {
		if val, err := flags.GetBool("record"); err == nil {
			c.Recording.Enabled = val
		}
	}
	if flags.Changed("recording-path") {
		if val, err := flags.GetString("recording-path"); err == nil && val != "" {
			c.Recording.Dir = val
		}
	}
	if flags.Changed("debug") {
		if val, err := flags.GetBool("debug"); err == nil {
			c.Advanced.DebugMode = val
		}
	}
	if flags.Changed("control-path") {
		if val, err := flags.GetString("control-path"); err == nil {
			c.ControlPath = val
		}
	}
}

// Print displays the current configuration.
func (c *Config) Print() {
	fmt.Println("termengine configuration:")
	fmt.Printf("  Control Path: %s\n", c.ControlPath)
	fmt.Println("\nTerminal:")
	fmt.Printf("  Width: %d\n", c.Terminal.Width)
	fmt.Printf("  Height: %d\n", c.Terminal.Height)
	fmt.Printf("  Default Term: %s\n", c.Terminal.DefaultTerm)
	fmt.Printf("  Default Shell: %s\n", c.Terminal.DefaultShell)
	fmt.Println("\nServer:")
	fmt.Printf("  Port: %s\n", c.Server.Port)
	fmt.Printf("  Access Mode: %s\n", c.Server.AccessMode)
	fmt.Println("\nRecording:")
	fmt.Printf("  Enabled: %t\n", c.Recording.Enabled)
	fmt.Printf("  Dir: %s\n", c.Recording.Dir)
	fmt.Println("\nAdvanced:")
	fmt.Printf("  Debug Mode: %t\n", c.Advanced.DebugMode)
	fmt.Printf("  Cleanup on Startup: %t\n", c.Advanced.CleanupStartup)
}
