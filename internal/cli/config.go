package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Key       string
	KeyFile   string
	Output    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("SPORE_SERVER", "http://localhost:3000"),
		Key:       os.Getenv("SPORE_KEY"),
		KeyFile:   getEnvOrDefault("SPORE_KEY_FILE", defaultKeyFile()),
		Output:    "text",
	}
}

// LoadKey loads the session key from file if not already set
func (c *Config) LoadKey() error {
	if c.Key != "" {
		return nil
	}

	data, err := os.ReadFile(c.KeyFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No key file is fine
		}
		return err
	}

	c.Key = strings.TrimSpace(string(data))
	return nil
}

// SaveKey saves the session key to the key file
func (c *Config) SaveKey(key string) error {
	c.Key = key

	dir := filepath.Dir(c.KeyFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.KeyFile, []byte(key), 0600)
}

func defaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sporeverse/key"
	}
	return filepath.Join(home, ".sporeverse", "key")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
