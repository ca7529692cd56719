package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"archlens/internal/config"
	"archlens/internal/slogutil"
	"archlens/internal/version"
)

// Process exit codes.
const (
	exitOK          = 0
	exitViolations  = 1
	exitUnavailable = 2
	exitUsage       = 3
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

var (
	verbosity    int
	quiet        bool
	logFile      string
	logFormat    string
	settingsFile string

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "archlens",
	Short: "archlens - dependency graph architecture checks",
	Long: `archlens runs a dependency analyzer over a project, checks the resulting
module graph against architecture rules (import cycles, forbidden layer
crossings, oversized entry points) and reports one warning per module and
rule type.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.SetVersionTemplate("archlens version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Console log format (human, json)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "archlens settings file (default: <root>/.archlens/config.*)")
}

// loadConfig reads settings for root and builds the command logger from them.
func loadConfig(root string) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if settingsFile != "" {
		cfg, err = config.LoadConfigFromPath(settingsFile)
	} else {
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newLogger builds the logger from flags, falling back to cfg.Logging.
// Only the first call installs a logger; later calls reuse it.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	if logCloser != nil {
		return slog.Default(), nil
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	format := slogutil.Format(cfg.Logging.Format)
	if logFormat != "" {
		format = slogutil.Format(logFormat)
	}
	file := cfg.Logging.File
	if logFile != "" {
		file = logFile
	}

	logger, closer, err := slogutil.Setup(slogutil.Options{
		Stderr:    os.Stderr,
		Level:     level,
		Format:    format,
		FilePath:  file,
		FileLevel: slogutil.LevelFromVerbosity(max(verbosity, 1), false),
		MaxSize:   cfg.Logging.MaxSize,
		MaxBackup: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, err
	}
	logCloser = closer
	slog.SetDefault(logger)
	return logger, nil
}

func closeLogger() {
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// newContext returns a context canceled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// rootArg returns the absolute project root named by args[i], or the
// working directory.
func rootArg(args []string, i int) (string, error) {
	root := "."
	if len(args) > i {
		root = args[i]
	}
	return filepath.Abs(root)
}
