// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared setup for the chatwidget CLI.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/server"
	"github.com/jeranaias/chatwidget/internal/telemetry"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP STATE
// =============================================================================

// app carries the global flags and everything PersistentPreRunE sets up.
type app struct {
	// Global flags
	configPath  string
	envFile     string
	logLevel    string
	logFormat   string
	logSink     string
	metricsAddr string
	quiet       bool

	// Streams
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Set up before every command
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	server  *server.Server
	closers []func() error

	// live is the most recently created widget, served at /conversation
	live atomic.Pointer[widget.Widget]
}

// NewRootCommand builds the command tree writing to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "chatwidget",
		Short: "A single-conversation chat widget for the terminal",
		Long: `chatwidget keeps one conversation: an ordered message log with editing,
reactions and export/import of the whole conversation.

Quick Start:
  chatwidget chat                          # interactive chat
  chatwidget chat --import chat.json       # continue an exported chat
  chatwidget render chat.json -o chat.html # render an export as HTML
  chatwidget export chat.json --format md  # convert an export to Markdown`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.chatwidget/config.toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (overrides config)")
	flags.StringVar(&a.logSink, "log-sink", "stderr", "Log destination: stderr, stdout or file:PATH")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve metrics, health and the live conversation on this address (e.g. :9090)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Minimal output")

	root.AddCommand(
		newChatCommand(a),
		newRenderCommand(a),
		newExportCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SETUP
// =============================================================================

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromPath(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	config.SetGlobal(a.cfg)

	sink, closeSink, err := logging.OpenSink(a.logSink)
	if err != nil {
		return NewUsageError("log-sink", a.logSink, err.Error())
	}
	a.closers = append(a.closers, closeSink)
	a.logger = logging.New(sink, a.cfg.Log.Level, a.cfg.Log.Format)
	a.metrics = telemetry.NewMetrics()

	if a.metricsAddr != "" {
		srv := server.New(a.metricsAddr, server.Options{
			Metrics:      a.metrics,
			Logger:       a.logger,
			Conversation: a.liveConversation,
			Version:      Version,
		})
		if err := srv.Start(); err != nil {
			a.teardown()
			return NewUsageError("metrics-addr", a.metricsAddr, err.Error())
		}
		a.server = srv
	}

	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, a.server.Shutdown(ctx))
		cancel()
		a.server = nil
	}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newWidget creates a widget wired to the app's config, logger and metrics.
func (a *app) newWidget(opts widget.Options) *widget.Widget {
	opts.Config = a.cfg
	opts.Logger = a.logger
	opts.Metrics = a.metrics
	w := widget.New(opts)
	a.live.Store(w)
	return w
}

// liveConversation exports the current widget's conversation.
func (a *app) liveConversation() (string, error) {
	w := a.live.Load()
	if w == nil {
		return "", errors.New("no conversation yet")
	}
	return w.ExportConversation()
}

// say prints a status line to stderr unless --quiet is set.
func (a *app) say(format string, args ...any) {
	if a.quiet {
		return
	}
	fmt.Fprintf(a.stderr, format+"\n", args...)
}

// inlineScheduler runs deferred passes immediately. Batch commands use it
// so that output is written after every pass has run.
type inlineScheduler struct{}

func (inlineScheduler) AfterFunc(_ time.Duration, fn func()) {
	fn()
}
