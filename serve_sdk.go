package parley

import (
	"context"
	"time"

	"pkt.systems/parley/internal/devserver"
	"pkt.systems/parley/internal/server"
	"pkt.systems/parley/internal/tlsmgr"
	"pkt.systems/pslog"
)

// ServeOptions configures the development chat server run.
type ServeOptions struct {
	Config Config
	// SeedTestUser adds the test/test account when it is missing.
	SeedTestUser bool
	// OnListen receives the bound address once the listener is up.
	OnListen func(addr string)
	Logger   pslog.Logger
}

// Serve runs the development chat API server until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}

	base, err := server.NormalizeBasePath(cfg.Server.BasePath)
	if err != nil {
		return err
	}

	tlsCfg, err := tlsmgr.BuildServerTLSConfig(
		tlsmgr.Config{
			Mode:        tlsmgr.Mode(cfg.Server.TLS.Mode),
			BundleFiles: cfg.Server.TLS.Bundle,
			Hostname:    cfg.Server.TLS.Hostname,
			CacheDir:    cfg.Server.TLS.CacheDir,
		},
		logger.With("component", "tls"),
	)
	if err != nil {
		return err
	}

	store, err := devserver.LoadStore(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	users, err := devserver.LoadUserStore(cfg.Server.UsersFile)
	if err != nil {
		return err
	}
	if opts.SeedTestUser {
		user, err := devserver.SeedTestUser(users)
		if err != nil {
			return err
		}
		if cfg.Server.UsersFile != "" {
			if err := users.Save(cfg.Server.UsersFile); err != nil {
				return err
			}
		}
		if err := devserver.SeedMessages(store, user.ID); err != nil {
			return err
		}
		logger.Info("test user ready", "username", user.Username, "user_id", user.ID)
	}

	auth := devserver.NewAuthenticator(users)
	hub := devserver.NewHub(logger.With("component", "hub"))
	chat := devserver.NewHTTPServer(store, users, auth, logger.With("component", "devserver"), hub)
	chat.DataDir = cfg.Server.DataDir
	chat.UsersFile = cfg.Server.UsersFile
	chat.BasePath = base
	if cfg.Server.UsersFile != "" {
		if err := devserver.WatchUsersFile(ctx, cfg.Server.UsersFile, users, logger.With("component", "user-watch"), devserver.UserReloadInterval); err != nil {
			logger.Warn("user reload loop disabled", "err", err)
		}
	}

	handler := server.Mount(base, chat.Handler())
	handler = server.AccessLog(logger.With("component", "access"), handler)
	srv := server.New(server.Config{
		ListenAddr:        cfg.Server.Listen,
		TLSConfig:         tlsCfg,
		Logger:            logger.With("component", "http"),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}, handler)
	if err := srv.Listen(); err != nil {
		return err
	}

	addr := srv.Addr().String()
	mode, _ := tlsmgr.ResolveMode(tlsmgr.Config{Mode: tlsmgr.Mode(cfg.Server.TLS.Mode), BundleFiles: cfg.Server.TLS.Bundle})
	logger.Info("starting server", "listen", addr, "base", base, "tls_mode", string(mode))
	if opts.OnListen != nil {
		opts.OnListen(addr)
	}
	return srv.Serve(ctx)
}
