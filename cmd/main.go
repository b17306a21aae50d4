package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MimeLyc/trxsrt/internal/service"
	"github.com/joho/godotenv"
)

// errRunFailed reports a run whose summary was already printed.
var errRunFailed = errors.New("one or more languages failed")

func main() {
	// a missing .env is normal
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, errRunFailed) {
		return 1
	}

	var transErr *service.TransError
	if errors.As(err, &transErr) {
		fmt.Fprintf(stderr, "Error: %s\n", transErr.Reason())
		if available, ok := transErr.Context["available"]; ok {
			fmt.Fprintf(stderr, "Available languages: %v\n", available)
		}
		if advice := service.NewDefaultErrorHandler().GetAdvice(transErr); advice != "" {
			fmt.Fprintf(stderr, "  %s\n", advice)
		}
		return 1
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}
