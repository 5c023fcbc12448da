// Package dotdir resolves the .thoughtstream directory and reads and writes
// the TOML files kept in it: config.toml, credentials.toml and state.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".thoughtstream"

// HomeEnv names a .thoughtstream directory to use when no override is given.
const HomeEnv = "THOUGHTSTREAM_HOME"

type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{getwd: os.Getwd, homeDir: os.UserHomeDir}
}

// Target returns the absolute path of the .thoughtstream/ directory,
// creating it when missing. Order of precedence:
//  1. Provided override
//  2. $THOUGHTSTREAM_HOME
//  3. Local ./.thoughtstream/ dir, when it already exists
//  4. Home ~/.thoughtstream/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating thoughtstream directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Path returns the path of the named file inside the resolved directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
