package main

import (
	"io"
	"os"
	"path/filepath"

	"pkt.systems/parley"
	"pkt.systems/pslog"
)

// openClientLogger sends client logs to cfg.LogFile (or the default log
// path) so they do not interleave with prompts. Entries carry the command
// component, the endpoint and the process id, since several CLI invocations
// append to the same file.
func openClientLogger(cfg parley.ClientConfig, component string) (pslog.Logger, io.Closer, error) {
	path := cfg.LogFile
	if path == "" {
		path = parley.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	logger := pslog.LoggerFromEnv(pslog.WithEnvWriter(file)).With(
		"component", component,
		"endpoint", cfg.Endpoint,
		"pid", os.Getpid(),
	)
	return logger, file, nil
}
