package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/cachestore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/countstore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/engine"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/hasher"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "bailiff",
		Usage:   "account risk and trust & safety daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "max-metadb-connections",
			EnvVars: []string{"MAX_METADB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		migrateCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/bailiff/trust.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3995",
			EnvVars: []string{"BAILIFF_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3994",
			EnvVars: []string{"BAILIFF_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; when empty, counters and caches are in-process",
			EnvVars: []string{"BAILIFF_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "hash-secret-key",
			Usage:   "HMAC key for hashing IP addresses and device fingerprints",
			Value:   "dummy-value-for-development",
			EnvVars: []string{"BAILIFF_HASH_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "bearer token protecting the /admin API surface; unset disables it",
			EnvVars: []string{"BAILIFF_ADMIN_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "admin-webhook-url",
			Usage:   "incoming webhook URL for automatic-restriction alerts",
			EnvVars: []string{"BAILIFF_ADMIN_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "report-rate-limit",
			Usage:   "max report submissions per second from a single remote IP",
			Value:   2,
			EnvVars: []string{"BAILIFF_REPORT_RATE_LIMIT"},
		},
		&cli.BoolFlag{
			Name:    "enable-db-tracing",
			Usage:   "enables OTEL tracing of database queries",
			EnvVars: []string{"BAILIFF_ENABLE_DB_TRACING"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("bailiff"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-metadb-connections"))
		if err != nil {
			return err
		}
		if cctx.Bool("enable-db-tracing") {
			if err := db.Use(tracing.NewPlugin()); err != nil {
				return err
			}
		}

		var counters countstore.CountStore
		var cache cachestore.CacheStore
		if redisURL := cctx.String("redis-url"); redisURL != "" {
			cnt, err := countstore.NewRedisCountStore(redisURL)
			if err != nil {
				return fmt.Errorf("initializing redis countstore: %w", err)
			}
			counters = cnt

			csh, err := cachestore.NewRedisCacheStore(redisURL, 30*time.Second)
			if err != nil {
				return fmt.Errorf("initializing redis cachestore: %w", err)
			}
			cache = csh
		} else {
			counters = countstore.NewMemCountStore()
			cache = cachestore.NewMemCacheStore(5_000, 30*time.Second)
		}

		eng := &engine.Engine{
			Logger:   logger,
			DB:       db,
			Hasher:   hasher.New(cctx.String("hash-secret-key")),
			Counters: counters,
			Cache:    cache,
		}
		if url := cctx.String("admin-webhook-url"); url != "" {
			eng.Notifier = &engine.WebhookNotifier{WebhookURL: url}
		}

		if err := eng.MigrateDatabase(); err != nil {
			return fmt.Errorf("database migration: %w", err)
		}

		srv, err := NewServer(eng, Config{
			Logger:          logger,
			Bind:            cctx.String("bind"),
			AdminToken:      cctx.String("admin-token"),
			ReportRateLimit: cctx.Int("report-rate-limit"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.RunAPI(ctx); err != nil {
			return fmt.Errorf("failed to run trust service: %w", err)
		}
		return nil
	},
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "create or update database tables, then exit",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/bailiff/trust.db",
			EnvVars: []string{"DATABASE_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-metadb-connections"))
		if err != nil {
			return err
		}
		eng := &engine.Engine{Logger: logger, DB: db}
		if err := eng.MigrateDatabase(); err != nil {
			return err
		}
		logger.Info("migration complete")
		return nil
	},
}
