package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pkt.systems/parley"
	"pkt.systems/pslog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree until it returns or the process is
// interrupted, and reports the exit status.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := pslog.LoggerFromEnv(pslog.WithEnvWriter(os.Stdout))
	root := NewRootCommand(parley.NewLoader())
	root.SetArgs(args)
	if err := root.ExecuteContext(pslog.ContextWithLogger(ctx, logger)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
