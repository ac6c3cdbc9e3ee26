// Package config loads Velo's settings: TOML file under the user config
// directory, overridden by VELO_* environment variables, plus the
// credential store for provider API keys.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DatabaseConfig selects the database the assistant's tools connect to.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ProviderEntry is one configured provider in settings.toml.
type ProviderEntry struct {
	ID      string `toml:"id"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
	Enabled bool   `toml:"enabled"`
}

// MCPServerEntry is one external tool server launched over stdio.
type MCPServerEntry struct {
	ID      string   `toml:"id"`
	Command string   `toml:"command"`
	Args    []string `toml:"args,omitempty"`
	Env     []string `toml:"env,omitempty"`
}

// Config is the resolved application configuration.
type Config struct {
	DataDirectory   string          `toml:"data_directory"`
	DefaultProvider string          `toml:"default_provider"`
	Mode            string          `toml:"mode"` // "chat" or "agent"
	AutoAccept      bool            `toml:"auto_accept"`
	SystemPrompt    string          `toml:"system_prompt,omitempty"`
	Database        DatabaseConfig  `toml:"database"`
	Providers       []ProviderEntry `toml:"providers"`

	MCPServers []MCPServerEntry `toml:"mcp_servers,omitempty"`

	Security SecurityConfig `toml:"security"`
}

// SecurityConfig selects how credentials are stored at rest.
type SecurityConfig struct {
	Method     string `toml:"method"` // "plaintext" or "ssh_key"
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

var Debug = false
var DebugLog *log.Logger

// DataDir returns the expanded data directory path.
func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the entry for a provider ID, or nil.
func (c *Config) Provider(id string) *ProviderEntry {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i]
		}
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		DataDirectory:   "~/.local/share/velo",
		DefaultProvider: "anthropic",
		Mode:            "agent",
		Database:        DatabaseConfig{Path: "velo.db"},
		Security:        SecurityConfig{Method: "plaintext"},
		Providers: []ProviderEntry{
			{ID: "anthropic", Enabled: true},
			{ID: "openai", Enabled: true},
			{ID: "openrouter", Enabled: true},
			{ID: "ollama", BaseURL: "http://localhost:11434", Enabled: true},
		},
	}
}

func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("VELO_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if mode := os.Getenv("VELO_MODE"); mode != "" {
		c.Mode = mode
	}
	if dbPath := os.Getenv("VELO_DB"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if dataDir := os.Getenv("VELO_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if os.Getenv("VELO_AUTO_ACCEPT") == "true" || os.Getenv("VELO_AUTO_ACCEPT") == "1" {
		c.AutoAccept = true
	}
}

// Load reads settings.toml, creating it with defaults on first run, and
// applies environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()
	settingsPath := GetSettingsFilePath()

	if FileExists(settingsPath) {
		if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", settingsPath, err)
		}
	} else {
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := EnsureDir(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration with secure permissions.
func Save(cfg *Config) error {
	if err := EnsureDir(GetConfigDir()); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the settings file names the database and providers in use.
	f, err := os.OpenFile(GetSettingsFilePath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// CheckDebug reports whether debug logging is requested.
func CheckDebug() bool {
	debug := os.Getenv("VELO_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens the debug log in the data directory when VELO_DEBUG
// is set.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started ===")
}
