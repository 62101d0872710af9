package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/parley"
)

func TestRunExitStatus(t *testing.T) {
	if got := run([]string{"--help"}); got != 0 {
		t.Fatalf("run(--help) = %d, want 0", got)
	}
	if got := run([]string{"no-such-command"}); got != 1 {
		t.Fatalf("run(no-such-command) = %d, want 1", got)
	}
}

func TestOpenClientLoggerTagsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")
	logger, closer, err := openClientLogger(parley.ClientConfig{
		Endpoint: "http://chat.example",
		LogFile:  path,
	}, "login")
	if err != nil {
		t.Fatalf("openClientLogger: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{"hello", "login", "http://chat.example", "pid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
}
