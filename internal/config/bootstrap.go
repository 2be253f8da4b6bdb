package config

import (
	"errors"
	"os"
	"path/filepath"
)

// ResolveDataDir returns the engine's data directory and makes sure it
// exists: JOBLIST_DATA_DIR when set, the working directory otherwise.
// The lock file, the user config, and the default SQLite database all
// live under it.
func ResolveDataDir() (string, error) {
	dir := os.Getenv("JOBLIST_DATA_DIR")
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureUserConfig gives the data dir an editable config.yml, seeding
// it from the shipped default on first start. An existing copy is left
// alone, whatever its content.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	switch _, err := os.Stat(userPath); {
	case err == nil:
		return userPath, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	b, err := os.ReadFile(defaultPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, b, 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
