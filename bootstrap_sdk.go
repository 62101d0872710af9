package parley

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"pkt.systems/parley/internal/devserver"
	"pkt.systems/pslog"
)

// BootstrapResult lists what Bootstrap wrote.
type BootstrapResult struct {
	ConfigPath string
	UsersFile  string
	// SeededUser is set when a users file was created with the test user.
	SeededUser string
}

// Bootstrap writes cfg to path (the default config path when empty) and
// creates the dev server users file with the test user when it is missing.
func Bootstrap(ctx context.Context, cfg Config, path string, logger pslog.Logger) (BootstrapResult, error) {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return BootstrapResult{}, fmt.Errorf("config already exists at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return BootstrapResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return BootstrapResult{}, err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return BootstrapResult{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return BootstrapResult{}, err
	}
	res := BootstrapResult{ConfigPath: path, UsersFile: cfg.Server.UsersFile}
	logger.Info("bootstrapped config", "path", path)

	if cfg.Server.UsersFile == "" {
		return res, nil
	}
	if _, err := os.Stat(cfg.Server.UsersFile); err == nil {
		return res, nil
	}
	users := devserver.NewUserStore()
	user, err := devserver.SeedTestUser(users)
	if err != nil {
		return res, err
	}
	if err := users.Save(cfg.Server.UsersFile); err != nil {
		return res, err
	}
	res.SeededUser = user.Username
	logger.Info("seeded test user", "users_file", cfg.Server.UsersFile, "username", user.Username)
	return res, nil
}
