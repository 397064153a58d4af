// Package home resolves and lays out hasp's per-user state directory:
// the two catalog databases, the event journal database, a download
// cache, and the installs/ tree itself.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Home is the resolved and fully-created hasp home directory layout.
type Home struct {
	Dir         string // HASP_HOME, or ~/.hasp
	CacheDir    string // Dir/cache
	InstallsDir string // Dir/installs
}

// Discover resolves the hasp home directory: the HASP_HOME environment
// variable if set (must be absolute), otherwise ~/.hasp. It then creates
// the cache and installs subdirectories if absent. Discover is idempotent.
func Discover() (*Home, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	return newAt(dir)
}

func resolveDir() (string, error) {
	if env, ok := os.LookupEnv("HASP_HOME"); ok {
		if !filepath.IsAbs(env) {
			return "", fmt.Errorf("HASP_HOME must be an absolute path, got %q", env)
		}
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".hasp"), nil
}

func newAt(dir string) (*Home, error) {
	h := &Home{
		Dir:         dir,
		CacheDir:    filepath.Join(dir, "cache"),
		InstallsDir: filepath.Join(dir, "installs"),
	}
	if err := os.MkdirAll(h.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.MkdirAll(h.InstallsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create installs dir: %w", err)
	}
	return h, nil
}

// InstallPath returns (creating its parent directories) the install path
// for a given namespace, name, and directory hash:
// installs/<namespace>/<name>/<hash>.
func (h *Home) InstallPath(namespace, name, hash string) (string, error) {
	dir := filepath.Join(h.InstallsDir, namespace, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create install parent dir: %w", err)
	}
	return filepath.Join(dir, hash), nil
}

// MainDBPath, PackagesDBPath, and EventsDBPath return the three catalog
// database file paths under Dir.
func (h *Home) MainDBPath() string     { return filepath.Join(h.Dir, "db.sqlite") }
func (h *Home) PackagesDBPath() string { return filepath.Join(h.Dir, "packages.sqlite") }
func (h *Home) EventsDBPath() string   { return filepath.Join(h.Dir, "events.sqlite") }
