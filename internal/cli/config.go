package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8080/remote.php/dav"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	// ServerURL is the DAV root, e.g. http://localhost:8080/remote.php/dav.
	ServerURL string `yaml:"server_url,omitempty"`
	User      string `yaml:"user,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fc", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// fromEnvOrConfig returns the env var if set, else the config value from pick.
func fromEnvOrConfig(key string, pick func(CLIConfig) string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return pick(cfg)
	}
	return ""
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := fromEnvOrConfig("FC_SERVER_URL", func(c CLIConfig) string { return c.ServerURL }); v != "" {
		return v
	}
	return defaultServerURL
}

// getUser returns the user id from env var or config.
func getUser() string {
	return fromEnvOrConfig("FC_USER", func(c CLIConfig) string { return c.User })
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	return fromEnvOrConfig("FC_API_KEY", func(c CLIConfig) string { return c.APIKey })
}
