// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "storagereport"

// CWD-relative data directory name.
const DefaultDataDirName = ".storagereport"

// Subdirectory of the data directory holding dated snapshot files.
const SnapshotDirName = "snapshots"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "STORAGEREPORT_CONFIG_DIR"
	EnvDataDir   = "STORAGEREPORT_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/storagereport (fallback ~/.config/storagereport)
// macOS:   ~/Library/Application Support/storagereport
// Windows: %APPDATA%/storagereport
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > STORAGEREPORT_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > STORAGEREPORT_DATA_DIR env > $(CWD)/.storagereport.
//
// The CWD default keeps snapshots next to wherever the batch scheduler
// starts the job, which is its initial directory.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// SnapshotDir returns the snapshot directory inside dataDir.
func SnapshotDir(dataDir string) string {
	return filepath.Join(dataDir, SnapshotDirName)
}

// ResolveRelative anchors a relative path at base. Absolute and empty
// paths are returned unchanged.
func ResolveRelative(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
