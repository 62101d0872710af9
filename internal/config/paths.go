package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigDir returns ~/.parley, or a relative .parley when the home
// directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultConfigDirName
	}
	return filepath.Join(home, DefaultConfigDirName)
}

func inConfigDir(elem ...string) string {
	return filepath.Join(append([]string{DefaultConfigDir()}, elem...)...)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string { return inConfigDir(DefaultConfigFileName) }

// DefaultAuthPath returns the multi-account auth file path.
func DefaultAuthPath() string { return inConfigDir(DefaultAuthFileName) }

// DefaultLogPath returns the client log file path.
func DefaultLogPath() string { return inConfigDir(DefaultLogFileName) }

// DefaultTLSCacheDir returns the ACME certificate cache directory.
func DefaultTLSCacheDir() string { return inConfigDir(DefaultTLSDirName, DefaultTLSCacheDirName) }

// DefaultUsersPath returns the dev server users file path.
func DefaultUsersPath() string { return inConfigDir(DefaultUsersFileName) }
