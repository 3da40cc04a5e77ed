// Command sivem preprocesses the incident monitoring spreadsheet, trains the
// incident classifier, and serves predictions over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/sivem-incident-service/internal/config"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// Command failures are already logged; flag and usage errors are not.
		var logged *loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sivem",
		Short:         "Incident preprocessing, training, and prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return &loggedError{msg: "load config", err: err}
			}
			a.cfg = cfg
			a.logger = newLogger(cmd, cfg)
			return nil
		},
	}
	root.AddCommand(
		newPreprocessCmd(a),
		newTrainCmd(a),
		newPredictCmd(a),
		newServeCmd(a),
	)
	return root
}

// newLogger returns the shared service logger for serve. The other commands
// print their result on stdout and log to stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	if cmd.Name() == "serve" {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	return observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

// loggedError is a command failure that has already been logged.
type loggedError struct {
	msg string
	err error
}

func (e *loggedError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *loggedError) Unwrap() error { return e.err }

// fail logs a command error with the configured logger and returns it so
// the process exits non-zero.
func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, "error", err)
	return &loggedError{msg: msg, err: err}
}
