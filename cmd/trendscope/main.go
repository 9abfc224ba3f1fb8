package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var version = "dev"

func main() {
	setupLogging(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("trendscope failed")
		stop()
		os.Exit(1)
	}
}

// setupLogging uses a console writer on a terminal and JSON otherwise.
func setupLogging(out *os.File) {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(out.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func setLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
