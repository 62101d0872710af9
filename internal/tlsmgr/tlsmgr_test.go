package tlsmgr

import (
	"path/filepath"
	"testing"
)

func TestResolveMode(t *testing.T) {
	cases := []struct {
		cfg  Config
		want Mode
	}{
		{Config{}, ModeOff},
		{Config{BundleFiles: []string{"a.pem"}}, ModeBundle},
		{Config{Mode: " ACME "}, ModeACME},
		{Config{Mode: ModeOff, BundleFiles: []string{"a.pem"}}, ModeOff},
	}
	for _, tc := range cases {
		got, err := ResolveMode(tc.cfg)
		if err != nil {
			t.Fatalf("ResolveMode(%+v): %v", tc.cfg, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveMode(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
	if _, err := ResolveMode(Config{Mode: "auto"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestBuildServerTLSConfigOff(t *testing.T) {
	cfg, err := BuildServerTLSConfig(Config{Mode: ModeOff}, nil)
	if err != nil {
		t.Fatalf("BuildServerTLSConfig: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config in off mode")
	}
}

func TestBuildServerTLSConfigBundle(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)
	cfg, err := BuildServerTLSConfig(Config{BundleFiles: []string{certPath, keyPath}}, nil)
	if err != nil {
		t.Fatalf("BuildServerTLSConfig: %v", err)
	}
	if cfg == nil || len(cfg.Certificates) != 1 {
		t.Fatalf("expected TLS config with certificate")
	}
}

func TestBuildServerTLSConfigBundleRequiresFiles(t *testing.T) {
	if _, err := BuildServerTLSConfig(Config{Mode: ModeBundle}, nil); err == nil {
		t.Fatalf("expected error for empty bundle")
	}
}

func TestBuildServerTLSConfigACME(t *testing.T) {
	if _, err := BuildServerTLSConfig(Config{Mode: ModeACME, CacheDir: t.TempDir()}, nil); err == nil {
		t.Fatalf("expected error for missing hostname")
	}
	cacheDir := filepath.Join(t.TempDir(), "acme")
	cfg, err := BuildServerTLSConfig(Config{Mode: ModeACME, Hostname: "chat.example.org", CacheDir: cacheDir}, nil)
	if err != nil {
		t.Fatalf("BuildServerTLSConfig: %v", err)
	}
	if cfg.GetCertificate == nil {
		t.Fatalf("expected GetCertificate in acme mode")
	}
}
