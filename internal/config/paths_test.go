package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, DefaultConfigDirName)

	cases := []struct {
		name string
		got  func() string
		want string
	}{
		{"config dir", DefaultConfigDir, dir},
		{"config", DefaultConfigPath, filepath.Join(dir, "config.yaml")},
		{"auth", DefaultAuthPath, filepath.Join(dir, "auth.json")},
		{"log", DefaultLogPath, filepath.Join(dir, "parley.log")},
		{"users", DefaultUsersPath, filepath.Join(dir, "users.json")},
		{"acme cache", DefaultTLSCacheDir, filepath.Join(dir, "tls", "cache")},
	}
	for _, tc := range cases {
		if got := tc.got(); got != tc.want {
			t.Fatalf("%s path = %q, want %q", tc.name, got, tc.want)
		}
	}
}
