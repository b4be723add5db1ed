// Package paths provides XDG-compliant path resolution for traceport.
//
// Resolution order:
// 1. TRACEPORT_HOME (portable root) → $TRACEPORT_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/traceport
// 3. Platform defaults → ~/.config/traceport, ~/.local/state/traceport, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "traceport"

// base resolves one XDG base directory. sub is the directory name used under
// TRACEPORT_HOME, env the XDG variable, and def the path under $HOME.
func base(sub, env string, def ...string) string {
	if home := os.Getenv("TRACEPORT_HOME"); home != "" {
		return filepath.Join(home, sub)
	}
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, def...), appName)...)
	}
	return ""
}

// ConfigDir returns the directory holding the global traceport.yml.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the directory for persisted preferences and logs.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the directory for regenerable data such as encoder scratch files.
func CacheDir() string {
	return base("cache", "XDG_CACHE_HOME", ".cache")
}

// GlobalConfigFile returns the path of the user-wide configuration file.
func GlobalConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traceport.yml")
}

// EnsureDirs creates all traceport directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
