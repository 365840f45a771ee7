// foremand runs a foreman pool behind a TCP line-echo service, with an
// operator console on stdin and prometheus metrics on a side listener.
// Typing "exit" on the console, a SIGINT/SIGTERM, or a hard listener
// failure all stop the daemon; only the last one is an error exit.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mwhitt/foreman"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "foremand:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // optional .env, read before the environment overlay

	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		addr        = flag.String("addr", "", "listen address (overrides config)")
		metricsAddr = flag.String("metrics-addr", "", "prometheus listen address (overrides config)")
		workers     = flag.Int("workers", 0, "worker count (overrides config)")
		logDir      = flag.String("log-dir", "", "directory for events/fatal/ips logs (overrides config)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("foremand", version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.applyEnv()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	pollInterval, err := cfg.pollInterval()
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.shutdownTimeout()
	if err != nil {
		return err
	}

	logger, access, closeLogs, err := buildLoggers(cfg)
	if err != nil {
		return err
	}
	defer closeLogs()

	logger.Info("foremand starting",
		zap.String("version", version),
		zap.String("addr", cfg.Addr),
		zap.Int("workers", cfg.Workers),
	)

	reg := prometheus.NewRegistry()
	metrics := foreman.NewPrometheusMetrics(reg)

	pool := foreman.NewWithOptions(foreman.Options{
		Workers:      cfg.Workers,
		QueueSize:    cfg.QueueSize,
		PollInterval: pollInterval,
		Logger:       logger,
		Metrics:      metrics,
	})
	pool.ServeConsole(os.Stdin, os.Stdout)

	srv := foreman.NewServer(pool, echoHandler(logger), foreman.ServerOptions{
		Logger:    logger,
		AccessLog: access,
	})

	var msrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		msrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server failed", zap.Error(err))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(cfg.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
		select {
		case <-serveErr:
		case <-time.After(shutdownTimeout):
			logger.Warn("serve loop did not stop in time")
		}

	case err := <-serveErr:
		if err != nil && !errors.Is(err, foreman.ErrServerClosed) {
			runErr = err
		} else {
			logger.Info("server closed")
		}
		// the pool is dead or dying; make sure every worker is joined
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(ctx); err != nil && !errors.Is(err, foreman.ErrAlreadyDead) {
			logger.Warn("pool shutdown", zap.Error(err))
		}
	}

	if msrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = msrv.Shutdown(ctx)
	}
	logger.Info("foremand stopped")
	return runErr
}

// echoHandler answers each line with itself. It stands in for real work:
// one connection, one job, one worker at a time.
func echoHandler(log *zap.Logger) foreman.ConnHandler {
	return func(conn net.Conn) {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			if _, err := fmt.Fprintln(conn, sc.Text()); err != nil {
				log.Debug("echo write failed", zap.Error(err))
				return
			}
		}
	}
}
