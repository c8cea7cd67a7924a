package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Init loads app.yml from CONFIG_DIR (default: the working directory).
func Init() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "."
	}
	return LoadConfig(filepath.Join(dir, "app.yml"))
}

// Load reads path, or falls back to Init when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Init()
	}
	return LoadConfig(path)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
