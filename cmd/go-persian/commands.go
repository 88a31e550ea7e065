package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	persian "github.com/tartampluch/go-persian"
	"github.com/tartampluch/go-persian/internal/cliconfig"
	"github.com/tartampluch/go-persian/internal/config"
	"github.com/tartampluch/go-persian/internal/feed"
	"github.com/tartampluch/go-persian/internal/server"
)

// newConvertCmd builds the one-shot conversion command.
func newConvertCmd(opts *rootOptions) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var at string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a Gregorian timestamp to the Persian calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd, &cfg, opts); err != nil {
				return err
			}
			return runConvert(cmd.OutOrStdout(), cfg.Kind, at)
		},
	}

	cmd.Flags().StringVar(&at, config.FlagAt, "", config.FlagDescAt)
	cmd.Flags().StringVar(&cfg.Kind, config.FlagKind, cfg.Kind, config.FlagDescKind)
	cmd.Flags().StringVar(&cfg.LogLevel, config.FlagLogLevel, cfg.LogLevel, config.FlagDescLogLevel)

	return cmd
}

// newServeCmd builds the HTTP server command.
func newServeCmd(opts *rootOptions) *cobra.Command {
	cfg := cliconfig.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API and the annotated feed over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd, &cfg, opts); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.Port, config.FlagPort, cfg.Port, config.FlagDescPort)
	cmd.Flags().StringVar(&cfg.Kind, config.FlagKind, cfg.Kind, config.FlagDescKind)
	cmd.Flags().StringVar(&cfg.Feed, config.FlagFeed, cfg.Feed, config.FlagDescFeed)
	cmd.Flags().StringVar(&cfg.LogLevel, config.FlagLogLevel, cfg.LogLevel, config.FlagDescLogLevel)

	return cmd
}

// newAnnotateCmd builds the iCalendar annotation command.
func newAnnotateCmd(opts *rootOptions) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var in, out string

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Copy an iCalendar stream, stamping X-PERSIAN-DATE on every event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd, &cfg, opts); err != nil {
				return err
			}
			return runAnnotate(cmd.Context(), cfg, in, out, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&in, config.FlagIn, config.SourceStdin, config.FlagDescIn)
	cmd.Flags().StringVar(&out, config.FlagOut, config.SourceStdin, config.FlagDescOut)
	cmd.Flags().StringVar(&cfg.LogLevel, config.FlagLogLevel, cfg.LogLevel, config.FlagDescLogLevel)

	return cmd
}

// newBirthdaysCmd builds the vCard listing command.
func newBirthdaysCmd(opts *rootOptions) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var in string

	cmd := &cobra.Command{
		Use:   "birthdays",
		Short: "List vCard birthdays with their Persian dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd, &cfg, opts); err != nil {
				return err
			}
			return runBirthdays(cmd.Context(), cfg, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&in, config.FlagIn, config.SourceStdin, config.FlagDescIn)
	cmd.Flags().StringVar(&cfg.LogLevel, config.FlagLogLevel, cfg.LogLevel, config.FlagDescLogLevel)

	return cmd
}

// runConvert translates at according to kind and prints the rendered result.
// An empty at converts the current moment.
func runConvert(w io.Writer, kind, at string) error {
	var text string
	var err error
	if at == "" {
		text, err = convertNowText(kind, time.Now())
	} else {
		text, err = convertText(kind, at)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

// convertNowText renders the current moment according to kind. The civil kind
// uses the reference timezone wall clock as the naive reading of now.
func convertNowText(kind string, now time.Time) (string, error) {
	switch kind {
	case config.KindUTC:
		pt, ok := persian.FromUTC(now)
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return pt.String(), nil

	case config.KindLocal:
		pt, ok := persian.FromLocal(now)
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return pt.String(), nil

	default: // config.KindCivil, vetted by Validate
		dt, ok := persian.FromDateTime(persian.DateTimeOf(now.In(persian.Reference())))
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return dt.String(), nil
	}
}

// convertText parses at according to kind and renders the Persian value.
func convertText(kind, at string) (string, error) {
	switch kind {
	case config.KindUTC:
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrTimestampParse, err)
		}
		pt, ok := persian.FromUTC(t)
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return pt.String(), nil

	case config.KindLocal:
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrTimestampParse, err)
		}
		pt, ok := persian.FromLocal(t)
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return pt.String(), nil

	default: // config.KindCivil, vetted by Validate
		var parsed time.Time
		var err error
		for _, layout := range []string{config.LayoutCivil, config.DateFormatFullDash} {
			if parsed, err = time.Parse(layout, at); err == nil {
				break
			}
		}
		if err != nil {
			return "", errors.New(config.ErrTimestampParse)
		}
		dt, ok := persian.FromDateTime(persian.DateTimeOf(parsed))
		if !ok {
			return "", errors.New(config.ErrNotConvertible)
		}
		return dt.String(), nil
	}
}

// runServe starts the HTTP server, plus the background refresh worker when a
// feed source is configured.
func runServe(ctx context.Context, cfg cliconfig.Config) error {
	srv := server.New(cfg.Port, cfg.Kind)

	if cfg.Feed != "" {
		srv.Feed = true
		annotator := &feed.Annotator{Fetcher: feed.NewHTTPFetcher(cfg.HTTPTimeout)}
		go refreshLoop(ctx, annotator, srv, cfg.Feed)
	}

	return srv.Start(ctx)
}

// refreshLoop keeps the served feed current: one refresh immediately, then
// one per interval until the context ends.
func refreshLoop(ctx context.Context, a *feed.Annotator, srv *server.Server, source string) {
	slog.Info(config.MsgWorkerStart,
		config.LogKeyComponent, config.CompWorker,
		config.LogKeySource, source,
		config.LogKeyInterval, config.DefaultFeedRefresh.String(),
	)

	refreshFeed(ctx, a, srv, source)

	// Stdin can only be consumed once.
	if source == config.SourceStdin {
		slog.Info(config.MsgWorkerStop, config.LogKeyComponent, config.CompWorker)
		return
	}

	ticker := time.NewTicker(config.DefaultFeedRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info(config.MsgWorkerStop, config.LogKeyComponent, config.CompWorker)
			return
		case <-ticker.C:
			refreshFeed(ctx, a, srv, source)
		}
	}
}

// refreshFeed annotates the source once and publishes the result. Failures
// are logged and the previously served content stays up.
func refreshFeed(ctx context.Context, a *feed.Annotator, srv *server.Server, source string) {
	slog.Debug(config.MsgFeedRefresh,
		config.LogKeyComponent, config.CompWorker,
		config.LogKeySource, source,
	)

	var buf bytes.Buffer
	if _, err := a.AnnotateICS(ctx, source, &buf); err != nil {
		slog.Error(config.MsgFeedRefreshErr,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err,
		)
		return
	}

	srv.Update(buf.Bytes())
}

// runAnnotate streams the annotated calendar from in to out.
func runAnnotate(ctx context.Context, cfg cliconfig.Config, in, out string, stdout io.Writer) error {
	annotator := &feed.Annotator{Fetcher: feed.NewHTTPFetcher(cfg.HTTPTimeout)}

	w, closer, err := openOutput(out, stdout)
	if err != nil {
		return err
	}

	if _, err := annotator.AnnotateICS(ctx, in, w); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}

	// A failed close on a file destination loses data, so report it.
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
		}
	}
	return nil
}

// openOutput returns the destination writer; the closer is nil for stdout.
func openOutput(out string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if out == "" || out == config.SourceStdin {
		return stdout, nil, nil
	}

	f, err := os.OpenFile(out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.ErrOpenOutput, err)
	}
	return f, f, nil
}

// runBirthdays prints one line per contact that carries a birthday.
func runBirthdays(ctx context.Context, cfg cliconfig.Config, in string, w io.Writer) error {
	annotator := &feed.Annotator{Fetcher: feed.NewHTTPFetcher(cfg.HTTPTimeout)}

	entries, err := annotator.Birthdays(ctx, in)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := printBirthday(w, e); err != nil {
			return err
		}
	}
	return nil
}

// printBirthday renders one listing line. Year-less birthdays have no fixed
// Persian equivalent, so only the recurring month and day are shown.
func printBirthday(w io.Writer, e feed.BirthdayEntry) error {
	if !e.YearKnown {
		_, err := fmt.Fprintf(w, config.FormatYearlessBirthdayLine,
			e.Name, int(e.DateOfBirth.Month()), e.DateOfBirth.Day())
		return err
	}

	persianDate := fmt.Sprintf(config.FormatPersianDate,
		e.Persian.Year, e.Persian.Month, e.Persian.Day)
	_, err := fmt.Fprintf(w, config.FormatBirthdayLine,
		e.Name, e.DateOfBirth.Format(config.DateFormatFullDash), persianDate)
	return err
}
