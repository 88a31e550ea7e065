package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	// Embedded zone database so TZID lookups in iCalendar feeds work on
	// hosts without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tartampluch/go-persian/internal/cliconfig"
	"github.com/tartampluch/go-persian/internal/config"
)

var longHelp = strings.TrimSpace(`
go-persian converts Gregorian timestamps to the Persian (Solar Hijri) calendar.

Conversions preserve the time of day and come in three kinds:
  utc    read the instant in the +03:30 reference timezone, keep the UTC label
  local  read the instant in the +03:30 reference timezone, label it +00:00
  civil  convert a timezone-naive reading field by field

Beyond one-shot conversion, annotate stamps X-PERSIAN-DATE on iCalendar
events, birthdays lists vCard birthdays with their Persian dates, and serve
exposes the conversion API plus the annotated feed over HTTP.
`)

var exampleUsage = strings.TrimSpace(`
  go-persian convert --at 2024-11-09T22:38:28Z --kind utc
  go-persian convert --at 2024-03-20 --kind civil
  go-persian annotate --in calendar.ics --out persian.ics
  go-persian birthdays --in contacts.vcf
  go-persian serve --port 18030 --feed https://example.org/feed.ics
`)

// rootOptions carries the persistent flag values and the logging state shared
// by all subcommands.
type rootOptions struct {
	cfgPath   string
	debug     bool
	logCloser io.Closer
	logReady  bool
}

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	opts := &rootOptions{}
	root := newRootCmd(opts)

	defer func() {
		if opts.logCloser != nil {
			_ = opts.logCloser.Close() // Best effort close
		}
	}()

	// Root context cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	// Help and version runs never configure logging; stay quiet for them.
	if opts.logReady {
		slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	}
	return config.ExitCodeSuccess
}

// newRootCmd assembles the command tree and the persistent flags.
func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "go-persian",
		Short:         "Gregorian to Persian (Solar Hijri) calendar conversion toolkit",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf(config.MsgVersionOutput,
		config.AppName, config.Version, runtime.GOOS, runtime.GOARCH))

	root.PersistentFlags().StringVar(&opts.cfgPath, config.FlagConfig, "", config.FlagDescConfig)
	root.PersistentFlags().BoolVar(&opts.debug, config.FlagDebug, false, config.FlagDescDebug)

	root.AddCommand(
		newConvertCmd(opts),
		newServeCmd(opts),
		newAnnotateCmd(opts),
		newBirthdaysCmd(opts),
	)

	return root
}

// setup resolves the effective configuration and switches the process to the
// configured logger. It must run first in every RunE.
func setup(cmd *cobra.Command, cfg *cliconfig.Config, opts *rootOptions) error {
	if err := loadConfig(cmd, cfg, opts.cfgPath); err != nil {
		return err
	}

	opts.logCloser = setupLogging(cfg.LogLevel, opts.debug)
	opts.logReady = true
	logStartupInfo()
	return nil
}

// loadConfig layers the configuration sources onto cfg: flag values are
// already bound, the file fills unchanged fields, the environment overrides
// the file, and explicit flags win over both.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrConfigLoad, err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger. Logs go to stderr so
// conversion output on stdout stays clean.
func setupLogging(levelName string, debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stderr)

	// Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		// Use centralized permission constants for security.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := parseLevel(levelName)
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// parseLevel maps the configured name to a slog level. Validate vets the
// name beforehand, so the info fallback only covers the zero value.
func parseLevel(name string) slog.Level {
	switch name {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
