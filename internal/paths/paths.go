// Package paths resolves configuration and state directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".tablekit"
	DefaultStateDirName  = ".tablekit-state"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "TABLEKIT_CONFIG_DIR"
	EnvStateDir  = "TABLEKIT_STATE_DIR"
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
// Linux:   $XDG_CONFIG_HOME/tablekit (fallback ~/.config/tablekit)
// macOS:   ~/Library/Application Support/tablekit
// Windows: %APPDATA%/tablekit
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "tablekit"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "tablekit"), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "tablekit"), nil
	}
}

// DefaultStateDir returns the platform-specific default state directory,
// where the snapshot store database lives.
//
// Linux:   $XDG_DATA_HOME/tablekit (fallback ~/.local/share/tablekit)
// macOS:   ~/Library/Application Support/tablekit
// Windows: %APPDATA%/tablekit
func DefaultStateDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "tablekit"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "tablekit"), nil
	default:
		// macOS and Windows: same as config dir.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "tablekit"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > TABLEKIT_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveStateDir returns the state directory following the precedence chain:
// flag > configYAMLValue > TABLEKIT_STATE_DIR env > $(CWD)/.tablekit-state.
//
// The CWD-relative default keeps snapshot history next to the project whose
// schema it tracks when no override is active.
func ResolveStateDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvStateDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultStateDirName), nil
}
