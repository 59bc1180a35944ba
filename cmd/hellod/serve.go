package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/jobpool"
	"github.com/ygrebnov/jobpool/internal/config"
	"github.com/ygrebnov/jobpool/internal/server"
	"github.com/ygrebnov/jobpool/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// serveFlags mirrors the config values that can be set on the command line.
// Only flags that were explicitly set override the file and environment.
type serveFlags struct {
	configFile     string
	addr           string
	root           string
	maxConnections int
	sleepDelay     time.Duration
	readTimeout    time.Duration
	workers        uint
	queueCapacity  uint
	metricsAddr    string
	logLevel       string
	logFormat      string
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "accept connections and answer them on the worker pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringVarP(&f.configFile, "config", "c", "", "config file path (YAML)")
	fs.StringVar(&f.addr, "addr", def.Server.Addr, "listen address")
	fs.StringVar(&f.root, "root", def.Server.Root, "directory to read hello.html and 404.html from")
	fs.IntVar(&f.maxConnections, "max-connections", def.Server.MaxConnections, "stop after accepting this many connections, 0 for no limit")
	fs.DurationVar(&f.sleepDelay, "sleep-delay", def.Server.SleepDelay, "how long GET /sleep waits before answering")
	fs.DurationVar(&f.readTimeout, "read-timeout", def.Server.ReadTimeout, "deadline for reading a request line, 0 for none")
	fs.UintVar(&f.workers, "workers", def.Pool.Workers, "number of pool workers")
	fs.UintVar(&f.queueCapacity, "queue-capacity", def.Pool.QueueCapacity, "bound on queued connections, 0 for unbounded")
	fs.StringVar(&f.metricsAddr, "metrics-addr", def.Metrics.Addr, "Prometheus /metrics listen address, empty to disable")
	fs.StringVar(&f.logLevel, "log-level", def.Log.Level, "log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", def.Log.Format, "log format (text, json)")
}

// resolve builds the effective configuration: defaults, config file,
// HELLOD_* environment, then explicitly set flags.
func (f *serveFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)

	if fs.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if fs.Changed("root") {
		cfg.Server.Root = f.root
	}
	if fs.Changed("max-connections") {
		cfg.Server.MaxConnections = f.maxConnections
	}
	if fs.Changed("sleep-delay") {
		cfg.Server.SleepDelay = f.sleepDelay
	}
	if fs.Changed("read-timeout") {
		cfg.Server.ReadTimeout = f.readTimeout
	}
	if fs.Changed("workers") {
		cfg.Pool.Workers = f.workers
	}
	if fs.Changed("queue-capacity") {
		cfg.Pool.QueueCapacity = f.queueCapacity
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(c config.LogConfig) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	switch c.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// run starts the pool, the hello server and the optional metrics endpoint.
// It returns when the server stops; the pool is shut down after every
// accepted connection has been answered.
func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	logger.WithFields(log.Fields{"version": version, "commit": commit}).Info("hellod bootstrap")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool, err := jobpool.New(cfg.Pool.Workers,
		jobpool.WithName("hellod"),
		jobpool.WithQueueCapacity(cfg.Pool.QueueCapacity),
		jobpool.WithLogger(logger),
		jobpool.WithMetrics(metrics.NewPrometheusProvider(reg)),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, pool, logger)
	g.Go(func() error {
		// the metrics endpoint lives as long as the hello server
		defer cancel()
		return srv.ListenAndServe(gctx)
	})

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		httpSrv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("serving metrics on %s", cfg.Metrics.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer scancel()
			return httpSrv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	pool.Shutdown()
	st := pool.Stats()
	logger.WithFields(log.Fields{
		"connections": srv.Accepted(),
		"served":      srv.Served(),
		"jobs_failed": st.Failed,
	}).Info("hellod stopped")
	return err
}
