package parley

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/parley/internal/devserver"
)

func TestBootstrapWritesConfigAndSeedsUsers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg.Server.UsersFile = filepath.Join(dir, "users.json")

	res, err := Bootstrap(t.Context(), cfg, path, quietLogger())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if res.ConfigPath != path || res.SeededUser != devserver.DefaultTestUsername {
		t.Fatalf("result = %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "endpoint: "+DefaultClientEndpoint) {
		t.Fatalf("config missing endpoint:\n%s", data)
	}
	users, err := devserver.LoadUserStore(cfg.Server.UsersFile)
	if err != nil {
		t.Fatalf("LoadUserStore: %v", err)
	}
	if _, ok := users.Get(devserver.DefaultTestUsername); !ok {
		t.Fatalf("expected seeded test user")
	}

	if _, err := Bootstrap(t.Context(), cfg, path, quietLogger()); err == nil {
		t.Fatalf("expected error when config exists")
	}
}

func TestLoaderReadsBootstrappedConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Client.Endpoint = "https://chat.example.org/api"
	cfg.Server.UsersFile = ""
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := Bootstrap(t.Context(), cfg, path, quietLogger()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	loader := NewLoader()
	loader.SetConfigFile(path)
	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Client.Endpoint != cfg.Client.Endpoint {
		t.Fatalf("Client.Endpoint = %q, want %q", loaded.Client.Endpoint, cfg.Client.Endpoint)
	}
}
