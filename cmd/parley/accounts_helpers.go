package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/parley/internal/modal"
	"pkt.systems/pslog"
)

// clientSession is an opened account set plus the resources backing it.
type clientSession struct {
	accounts *parley.Accounts
	ctx      context.Context
	logger   pslog.Logger
	closer   io.Closer
}

func (s *clientSession) Close() {
	s.accounts.Close()
	_ = s.closer.Close()
}

// openAccounts loads config, opens the client log and the account file.
// With restore set, stored accounts are brought online first.
func openAccounts(cmd *cobra.Command, loader *parley.Loader, component string, restore bool) (*clientSession, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Client.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	logger, closer, err := openClientLogger(cfg.Client, component)
	if err != nil {
		return nil, err
	}
	accounts, err := parley.OpenAccounts(parley.AccountsOptions{
		Config: cfg.Client,
		Modals: &modal.Terminal{In: os.Stdin, Out: cmd.ErrOrStderr()},
		Logger: logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	ctx := pslog.ContextWithLogger(cmd.Context(), logger)
	if restore {
		n := accounts.Restore(ctx)
		logger.Info("accounts restored", "online", n)
	}
	return &clientSession{accounts: accounts, ctx: ctx, logger: logger, closer: closer}, nil
}
