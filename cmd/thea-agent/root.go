// Copyright 2025 Joseph Cumines

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeycumines/thea-agent/internal/automation"
	"github.com/joeycumines/thea-agent/internal/config"
	"github.com/joeycumines/thea-agent/internal/osascript"
	"github.com/joeycumines/thea-agent/internal/server"
	"github.com/joeycumines/thea-agent/internal/transport"
)

type rootFlags struct {
	configPath string
	address    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "thea-agent",
		Short: "Local HTTP agent that drives the Thea app via System Events",
		Long: `thea-agent listens on the loopback interface and turns small JSON
requests into AppleScript run through osascript: typing, clicking buttons,
sending keystrokes and chat messages, activating the app and opening
thea:// URLs. The terminal running it needs Accessibility permission.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVarP(&flags.address, "address", "a", "", "address to listen on (overrides config)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "thea-agent", version)
		},
	}
}

// loadConfig reads file and environment configuration, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, flags rootFlags) (*config.Config, error) {
	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("address") {
		cfg.HTTPAddress = flags.address
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = flags.debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// run wires the agent together and serves until a signal arrives or a
// listener fails.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	shutdownTracing, err := transport.InitTracing("thea-agent", cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	audit, err := server.NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	var metrics *transport.Metrics
	invokerOpts := []osascript.Option{osascript.WithBinary(cfg.OSAScriptPath)}
	httpOpts := []transport.HTTPOption{transport.WithLogger(logger)}
	if cfg.MetricsAddress != "" {
		metrics = transport.NewMetrics()
		invokerOpts = append(invokerOpts, osascript.WithObserver(metrics))
		httpOpts = append(httpOpts, transport.WithMetrics(metrics))
	}

	invoker := osascript.NewInvoker(cfg.ScriptTimeout, invokerOpts...)
	lib := automation.New(invoker, automation.Options{
		Logger:        logger,
		AppName:       cfg.AppName,
		URLScheme:     cfg.URLScheme,
		ActivateDelay: cfg.ActivateDelay,
		FocusDelay:    cfg.FocusDelay,
		KeyDelay:      cfg.KeyDelay,
		Serialize:     cfg.Serialize,
		StrictKeys:    cfg.StrictKeys,
	})

	srv := server.New(lib, server.WithAuditLogger(audit), server.WithLogger(logger))
	tr := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}, httpOpts...)
	srv.Register(tr)

	// Bind before printing the banner so a busy port fails fast.
	addr, err := tr.Listen()
	if err != nil {
		return err
	}

	var (
		wg      sync.WaitGroup
		errChan = make(chan error, 3)
	)
	serve := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	serve("http", tr.Serve)

	var metricsServer *http.Server
	if metrics != nil {
		metricsServer = metrics.NewServer(cfg.MetricsAddress)
		serve("metrics", func() error {
			logger.Info("metrics listening", "address", cfg.MetricsAddress)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	var health *transport.HealthServer
	if cfg.HealthAddress != "" {
		health = transport.NewHealthServer()
		health.SetServing(true)
		serve("health", func() error {
			logger.Info("health listening", "address", cfg.HealthAddress)
			return health.ListenAndServe(cfg.HealthAddress)
		})
	}

	printBanner(out, addr.String(), bannerTarget{
		app:     lib.AppName(),
		scheme:  lib.URLScheme(),
		timeout: invoker.Timeout(),
	}, srv.Endpoints())

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errChan:
		logger.Error("server error", "error", runErr)
	}

	if health != nil {
		health.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}
	if err := tr.Close(); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("forced shutdown")
	}

	return runErr
}

// bannerTarget describes the automated application for the startup banner.
type bannerTarget struct {
	app     string
	scheme  string
	timeout time.Duration
}

func printBanner(w io.Writer, addr string, target bannerTarget, endpoints []string) {
	fmt.Fprintf(w, "Thea agent listening on %s\n", addr)
	fmt.Fprintf(w, "Target: %s (%s), script timeout %v\n", target.app, target.scheme, target.timeout)
	fmt.Fprintf(w, "Endpoints: %s\n", strings.Join(endpoints, ", "))
	fmt.Fprintln(w, "Run from a terminal with Accessibility permission")
}
