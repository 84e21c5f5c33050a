package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/katalvlaran/fastmarch/fastmarch"
	"github.com/katalvlaran/fastmarch/internal/cli"
	"github.com/katalvlaran/fastmarch/internal/ctxlog"
	"github.com/katalvlaran/fastmarch/scenario"
)

// main is the entrypoint for the fastmarch command.
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run loads the scenario, propagates the front and prints the report to outW.
// Logs go to outW as well.
func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := cli.NewLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	sc, err := scenario.Load(ctx, cfg.ScenarioPath, cfg.Vars)
	if err != nil {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}

	eng, err := sc.Engine(fastmarch.WithLogger(logger))
	if err != nil {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}

	start := time.Now()
	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Propagation finished.", "reason", res.StopReason.String(), "elapsed", time.Since(start))

	return report(outW, sc, res, cfg.Dump)
}
