package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "polychat"

// GetConfigDir returns the directory holding config.toml, following the
// platform convention reported by os.UserConfigDir (XDG on Linux).
func GetConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetConfigFilePath returns the path to config.toml.
func GetConfigFilePath() string {
	return filepath.Join(GetConfigDir(), "config.toml")
}

// GetDefaultDataDir returns where chat history and credentials live when the
// config file does not say otherwise.
func GetDefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
}

// GetHomeDir returns the user's home directory, falling back to the
// filesystem root when it cannot be determined.
func GetHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/"
}

// ExpandPath expands a leading ~ and any environment variables in a path.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~":
		path = GetHomeDir()
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(GetHomeDir(), path[2:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates a directory with user-only access if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists reports whether a file exists at path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
