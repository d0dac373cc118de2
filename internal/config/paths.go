// Package config holds mlxlm's directory layout and user settings.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// HubCacheDir returns the shared model hub cache directory.
// Default: ~/.cache/huggingface/hub
func HubCacheDir() string {
	if dir := os.Getenv("MLXLM_CACHE_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "huggingface", "hub")
}

// DataDir returns the mlxlm data directory.
// Windows: %LOCALAPPDATA%\mlxlm
// Linux/Mac: ~/.local/share/mlxlm
func DataDir() string {
	if dir := os.Getenv("MLXLM_DATA_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "mlxlm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mlxlm")
}

// AliasFile returns the path of the alias bookkeeping file.
func AliasFile() string {
	return filepath.Join(DataDir(), "aliases.json")
}

// ConfigFile returns the path of the user settings file.
func ConfigFile() string {
	return filepath.Join(DataDir(), "config.json")
}

// SessionsDir returns the directory holding saved chat sessions.
func SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

// RecallDir returns the directory holding the recall vector store.
func RecallDir() string {
	return filepath.Join(DataDir(), "recall")
}

// EnsureDirs creates the required directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{DataDir(), SessionsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Offline reports whether network access to the hub is disabled.
func Offline() bool {
	return os.Getenv("MLXLM_OFFLINE") == "1"
}

// Debug reports whether verbose diagnostics are enabled.
func Debug() bool {
	return os.Getenv("MLXLM_DEBUG") == "1"
}
