package config

import (
	"os"
	"path/filepath"
)

const defaultRuntimeDir = ".tuskmem"

// GetRuntimePath resolves TUSK_RUNTIME_PATH, relative paths are rooted at the user's home.
func GetRuntimePath() string {
	path := os.Getenv("TUSK_RUNTIME_PATH")
	if path == "" {
		path = defaultRuntimeDir
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
