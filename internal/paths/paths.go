// Package paths resolves configuration and data directory locations.
//
// A project keeps its tracker in a .chainlink directory, found by walking up
// from the working directory the way git finds .git. Flags and environment
// variables override the search.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// ProjectDirName is the per-project directory holding config.yaml and the
// database.
const ProjectDirName = ".chainlink"

// appName names the platform-level config directory.
const appName = "chainlink"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CHAINLINK_CONFIG_DIR"
	EnvDataDir   = "CHAINLINK_DATA_DIR"
)

// ErrNoProject means no .chainlink directory exists at or above the start
// directory.
var ErrNoProject = errors.New("not a chainlink project (no " + ProjectDirName + " directory found)")

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific user configuration
// directory, used for settings shared by every project.
//
// Linux:   $XDG_CONFIG_HOME/chainlink (fallback ~/.config/chainlink)
// macOS:   ~/Library/Application Support/chainlink
// Windows: %APPDATA%/chainlink
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// FindProjectDir walks up from start looking for a .chainlink directory and
// returns its absolute path, or ErrNoProject.
func FindProjectDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// projectDirOrCWD returns the nearest project directory, or .chainlink in
// the working directory when there is none yet.
func projectDirOrCWD() (string, error) {
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	dir, err := FindProjectDir(cwd)
	if errors.Is(err, ErrNoProject) {
		return filepath.Join(cwd, ProjectDirName), nil
	}
	return dir, err
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > CHAINLINK_CONFIG_DIR env > nearest project
// directory > ./.chainlink.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return projectDirOrCWD()
}

// ResolveDataDir returns the directory holding issues.db following the
// precedence chain: flag > config.yaml data_dir > CHAINLINK_DATA_DIR env >
// nearest project directory > ./.chainlink.
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
	return projectDirOrCWD()
}
