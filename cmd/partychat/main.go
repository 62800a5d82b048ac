package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.partychat/config.toml.
type Config struct {
	Default ConfigDefault `toml:"default"`
	Storage ConfigStorage `toml:"storage"`
}

// ConfigDefault holds the server and identity settings.
type ConfigDefault struct {
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Session   string `toml:"session"`
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
}

// ConfigStorage selects where conversation logs are kept.
type ConfigStorage struct {
	Backend string `toml:"backend"` // memory, file, pebble or sqlite
	Path    string `toml:"path"`
}

// envOverrides maps environment variables to config keys.
var envOverrides = map[string]string{
	"PARTYCHAT_SERVER_URL":      "default.server_url",
	"PARTYCHAT_USERNAME":        "default.username",
	"PARTYCHAT_SESSION":         "default.session",
	"PARTYCHAT_ENV":             "default.env",
	"PARTYCHAT_LOG_LEVEL":       "default.log_level",
	"PARTYCHAT_STORAGE_BACKEND": "storage.backend",
	"PARTYCHAT_STORAGE_PATH":    "storage.path",
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns the path to ~/.partychat (or $PARTYCHAT_HOME), creating
// it if needed.
func configDir() (string, error) {
	dir := os.Getenv("PARTYCHAT_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".partychat")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the full path to the config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// readConfigFile parses the config file alone.
// If the file does not exist, it returns a zero-value Config.
func readConfigFile() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// loadConfig reads the config file and applies .env and PARTYCHAT_*
// overrides on top. The result is for running commands, never for saving.
func loadConfig() (*Config, error) {
	cfg, err := readConfigFile()
	if err != nil {
		return nil, err
	}
	_ = godotenv.Load(".env")
	for env, key := range envOverrides {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := setConfigValue(cfg, key, v); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "default.username").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. default.username)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "server_url":
			cfg.Default.ServerURL = value
		case "username":
			cfg.Default.Username = value
		case "session":
			cfg.Default.Session = value
		case "env":
			cfg.Default.Env = value
		case "log_level":
			cfg.Default.LogLevel = value
		default:
			return fmt.Errorf("unknown field %q in section [default]", field)
		}
	case "storage":
		switch field {
		case "backend":
			switch value {
			case "memory", "file", "pebble", "sqlite":
			default:
				return fmt.Errorf("unknown storage backend %q (valid: memory, file, pebble, sqlite)", value)
			}
			cfg.Storage.Backend = value
		case "path":
			cfg.Storage.Path = value
		default:
			return fmt.Errorf("unknown field %q in section [storage]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: default, storage)", section)
	}
	return nil
}

// ============================================================================
// Root command
// ============================================================================

var rootCmd = &cobra.Command{
	Use:   "partychat",
	Short: "PartyChat terminal client",
	Long:  "Command-line client for PartyChat.\nChat in rooms and private conversations, browse threads and inspect the local message store.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
