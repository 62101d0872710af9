package devserver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pkt.systems/pslog"
)

// UserReloadInterval is how often the users file is polled.
const UserReloadInterval = time.Second

// WatchUsersFile polls path and swaps reloaded users into store whenever the
// file content changes, so `parley users` edits apply to a running server.
// It returns once the first read is done; polling continues until ctx ends.
func WatchUsersFile(ctx context.Context, path string, store *UserStore, logger pslog.Logger, interval time.Duration) error {
	if store == nil {
		return fmt.Errorf("user store is nil")
	}
	if path == "" {
		return fmt.Errorf("users file is required")
	}
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	if interval <= 0 {
		interval = UserReloadInterval
	}
	path = filepath.Clean(path)

	var last []byte
	if data, err := os.ReadFile(path); err == nil {
		last = digest(data)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			sum := digest(data)
			if bytes.Equal(sum, last) {
				continue
			}
			loaded, err := LoadUserStoreFromBytes(data)
			if err != nil {
				logger.Warn("failed to parse users file for reload", "path", path, "err", err)
				continue
			}
			store.ReplaceUsers(loaded.Users)
			last = sum
			logger.Info("users reloaded", "path", path, "count", len(loaded.Users))
		}
	}()
	return nil
}

func digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
