package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// loadDotEnv loads a .env file sitting next to the config file. Variables
// already present in the process environment win.
func loadDotEnv(configPath string) error {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load %s: %w", envPath, err)
	}
	return nil
}

// applyEnv applies the plain environment overrides the deployment platform
// sets directly.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT %q: %w", v, err)
		}
		cfg.Server.HTTPPort = port
	}
	return nil
}
