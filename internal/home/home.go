package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the papercast home directory.
	DefaultDirName = ".papercast"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// EnvFileName holds API keys loaded before the config is read.
	EnvFileName = ".env"
)

// Dir represents the papercast home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.papercast).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnvPath returns the path to the home .env file.
func (d *Dir) EnvPath() string {
	return filepath.Join(d.path, EnvFileName)
}

// BlobsPath returns the root of the artifact store.
func (d *Dir) BlobsPath() string {
	return filepath.Join(d.path, "blobs")
}

// StatusDBPath returns the path of the SQLite run status database.
func (d *Dir) StatusDBPath() string {
	return filepath.Join(d.path, "status.db")
}

// PromptsPath returns the directory searched for prompt overrides.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, "prompts")
}

// InboxPath returns the default directory the watch command monitors.
func (d *Dir) InboxPath() string {
	return filepath.Join(d.path, "inbox")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.BlobsPath(), d.PromptsPath(), d.InboxPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
