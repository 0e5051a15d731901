package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/pressline/pressline/pkg/cmd"
	"github.com/pressline/pressline/pkg/config"
	"github.com/pressline/pressline/pkg/dispatcher"
	"github.com/pressline/pressline/pkg/generator"
	"github.com/pressline/pressline/pkg/log"
	"github.com/pressline/pressline/pkg/otelhelper"
	"github.com/pressline/pressline/pkg/retry"
	"github.com/pressline/pressline/pkg/scheduler"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "pressline-api",
		Usage:                 "Submit and track content publishing workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Workflow store URL (redis://, file://, memory://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "content-service-url",
				Usage:    "Base URL of the content generation service",
				Required: true,
				Sources:  cli.EnvVars("CONTENT_SERVICE_URL"),
			},
			&cli.IntFlag{
				Name:    "worker-limit",
				Usage:   "Maximum concurrent publish sub-tasks per workflow",
				Value:   dispatcher.DefaultWorkerLimit,
				Sources: cli.EnvVars("WORKER_LIMIT"),
			},
			&cli.IntFlag{
				Name:    "retry-max-attempts",
				Usage:   "Maximum publish attempts per target",
				Value:   retry.DefaultMaxAttempts,
				Sources: cli.EnvVars("RETRY_MAX_ATTEMPTS"),
			},
			&cli.DurationFlag{
				Name:    "retry-base-delay",
				Usage:   "Base delay before the first publish retry",
				Value:   retry.DefaultBaseDelay,
				Sources: cli.EnvVars("RETRY_BASE_DELAY"),
			},
			&cli.StringFlag{
				Name:    "schedules",
				Usage:   "Path to a YAML calendar of recurring workflows",
				Sources: cli.EnvVars("SCHEDULES_PATH"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Pressline API")

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "pressline-api")
				if err != nil {
					return err
				}
			}

			registry := cmd.NewRegistry(logger)

			persistence := cmd.MustNewPersistence(command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			contentClient := generator.NewHTTPClient(command.String("content-service-url"), nil, 0, logger)

			policy := retry.DefaultPolicy()
			policy.MaxAttempts = command.Int("retry-max-attempts")
			policy.BaseDelay = command.Duration("retry-base-delay")

			d := dispatcher.NewDispatcher(logger, persistence, registry, contentClient, eventBus, tracer, dispatcher.Config{
				WorkerLimit: command.Int("worker-limit"),
				RetryPolicy: policy,
			})

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := d.Shutdown(shutdownCtx); err != nil {
					logger.Error("Dispatcher shutdown incomplete", "error", err)
				}
			}()

			if schedulesPath := command.String("schedules"); schedulesPath != "" {
				entries, err := config.LoadScheduleCalendar(schedulesPath)
				if err != nil {
					return err
				}

				sched := scheduler.NewScheduler(d, logger, entries)
				if err := sched.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := sched.Stop(ctx); err != nil {
						logger.Error("Failed to stop scheduler", "error", err)
					}
				}()
			}

			api := NewAPI(logger, d, persistence, registry)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
