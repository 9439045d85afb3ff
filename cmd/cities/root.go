package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/go-worldwise/app/logger"
	"github.com/FACorreiaa/go-worldwise/internal/client"
	"github.com/FACorreiaa/go-worldwise/internal/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var validFormats = []string{formatText, formatJSON}

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	BaseURL string
	Timeout time.Duration
	Verbose bool
	Format  string
}

// reportedError marks a failure the user has already been alerted about.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func newRootCommand(defaults rootOptions) *cobra.Command {
	opts := &defaults

	cmd := &cobra.Command{
		Use:   "cities",
		Short: "Track the cities you have visited",
		Long: `Keep a list of the cities you have visited.

Talks to the WorldWise city API. Every command loads the full city list
first, then runs its operation against the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", opts.BaseURL, "city API base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "request timeout (0 disables it)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", opts.Format, "output format (text|json)")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newCountriesCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))

	return cmd
}

// session is one command's store, already loaded.
type session struct {
	store   *store.Store
	printer *printer
}

func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := appLogger.NewWithLevel(os.Getenv("APP_ENV"), cmd.ErrOrStderr(), level)

	c, err := client.New(opts.BaseURL, client.WithTimeout(opts.Timeout), client.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	st := store.New(c, logger)
	st.Subscribe(alertOnWriteFailure(cmd.ErrOrStderr()))

	if err := st.LoadAll(cmd.Context()); err != nil {
		return nil, err
	}

	return &session{
		store:   st,
		printer: &printer{format: opts.Format, w: cmd.OutOrStdout()},
	}, nil
}

// alertOnWriteFailure interrupts the user when a create or delete fails.
// Read failures are only returned as errors.
func alertOnWriteFailure(w io.Writer) store.Listener {
	return func(ev store.Event) {
		if ev.Phase != store.PhaseSettled || ev.Err == nil {
			return
		}
		switch ev.Op {
		case store.OpCreateCity:
			fmt.Fprintf(w, "ALERT: could not add city: %v\n", ev.Err)
		case store.OpDeleteCity:
			fmt.Fprintf(w, "ALERT: could not delete city: %v\n", ev.Err)
		}
	}
}
