package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/entities/internal/injector"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the sandbox config (defaults to $ENTITIES_CONFIG)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := injector.InitializeApp(*configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.Run(ctx)
}
