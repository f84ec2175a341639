package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	httpadapter "github.com/couchcryptid/weather-etl-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-etl-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-etl-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/weather-etl-service/internal/config"
	"github.com/couchcryptid/weather-etl-service/internal/observability"
	"github.com/couchcryptid/weather-etl-service/internal/pipeline"
	"github.com/couchcryptid/weather-etl-service/internal/scheduler"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "weather-etl",
		Usage: "Fetch current weather and append it to a relational table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "dotenv file loaded before reading configuration (default .env when present)",
				EnvVars: []string{"WEATHER_ETL_ENV_FILE"},
			},
		},
		Before: loadEnvFile,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the pipeline once and exit; non-zero exit status on failure",
				Action: runCommand,
			},
			{
				Name:  "serve",
				Usage: "Run the pipeline on SCHEDULE and expose health and metrics endpoints",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "run-on-start",
						Usage: "Run the pipeline once immediately after startup",
					},
				},
				Action: serveCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Create the destination table if it does not exist",
				Action: migrateCommand,
			},
		},
	}
}

func loadEnvFile(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// service holds everything a command needs, built from one config load.
type service struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	conn      *sqlstore.Connection
	loader    *sqlstore.Loader
	publisher *kafkaadapter.Publisher // nil when KAFKA_BROKERS is unset
	pipeline  *pipeline.Pipeline
}

func newService(ctx context.Context) (*service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	conn, err := sqlstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connected", "dialect", conn.Dialect, "table", cfg.Table)

	s := &service{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		conn:     conn,
		loader:   sqlstore.NewLoader(conn, cfg.Table, logger),
	}

	var opts []pipeline.Option
	if cfg.KafkaPublisherEnabled() {
		s.publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(s.publisher))
		logger.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publisher disabled")
	}

	client := openmeteo.NewClient(cfg, metrics, logger)
	logger.Info("forecast endpoint configured", "url", client.Endpoint(), "breaker", cfg.WeatherBreakerEnabled)

	s.pipeline = pipeline.New(client, pipeline.NewTransformer(), s.loader, logger, metrics, opts...)
	return s, nil
}

func (s *service) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}
}

func runCommand(c *cli.Context) error {
	s, err := newService(c.Context)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(c.Context, s.cfg.RunTimeout)
	defer cancel()

	if _, err := s.pipeline.RunOnce(ctx); err != nil {
		return err
	}

	if n, err := s.loader.Count(ctx); err != nil {
		s.logger.Warn("count rows failed", "error", err)
	} else {
		s.logger.Info("table row count", "table", s.cfg.Table, "rows", n)
	}
	return nil
}

func migrateCommand(c *cli.Context) error {
	s, err := newService(c.Context)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.loader.EnsureTable(c.Context); err != nil {
		return err
	}
	s.logger.Info("table ready", "table", s.cfg.Table)
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx := c.Context
	s, err := newService(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sched, err := scheduler.New(s.cfg.Schedule, s.cfg.RunTimeout, s.pipeline, s.metrics, s.logger)
	if err != nil {
		return err
	}

	srv := httpadapter.NewServer(s.cfg.HTTPAddr, s.pipeline, s.pipeline, s.cfg.RunTimeout, s.registry, s.logger)

	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	if c.Bool("run-on-start") {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		if _, err := s.pipeline.RunOnce(runCtx); err != nil {
			s.logger.Error("startup run failed", "error", err)
		}
		cancel()
	}

	schedCtx, stopSched := context.WithCancel(ctx)
	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(schedCtx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
		s.logger.Error("http server error", "error", runErr)
	}

	s.logger.Info("shutting down")
	stopSched()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		s.logger.Warn("scheduler did not stop before shutdown timeout")
	}

	s.logger.Info("shutdown complete")
	return runErr
}
