package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/querystudio/querystudio/internal/app"
	"github.com/querystudio/querystudio/internal/cli/studio"
	"github.com/querystudio/querystudio/internal/config"
	"github.com/querystudio/querystudio/internal/observability"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := studio.Options{
		Build:  buildServices,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	code := studio.Run(ctx, os.Args[1:], options)
	stop()
	os.Exit(code)
}

func buildServices(ctx context.Context) (studio.Services, func() error, error) {
	cfg, err := config.LoadFromEnv("querystudio")
	if err != nil {
		return studio.Services{}, nil, err
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return studio.Services{}, nil, err
	}
	return studio.Services{
		Generator: a.Generator,
		Agent:     a.Agent,
		Pipeline:  a.Pipeline,
	}, a.Close, nil
}
