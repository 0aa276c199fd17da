package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// handleGracefulExit exits immediately on the next SIGINT or SIGTERM.
func handleGracefulExit() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGINT,
		syscall.SIGTERM)

	go func() {
		s := <-sigc
		log.Warn().Msgf("got %s during shutdown, exiting", s)
		os.Exit(1)
	}()
}
