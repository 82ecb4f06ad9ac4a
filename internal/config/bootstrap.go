package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// EnsureUserConfig returns the path of the editable config inside the
// data dir, seeding it from the shipped defaults on first run.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	b, err := os.ReadFile(defaultPath)
	if err != nil {
		return "", fmt.Errorf("read default config: %w", err)
	}
	if err := os.WriteFile(userPath, b, 0o644); err != nil {
		return "", fmt.Errorf("seed user config: %w", err)
	}
	log.Printf("[config] created %s from defaults", userPath)
	return userPath, nil
}
