package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dataorch/internal/agent"
	"dataorch/internal/config"
	"dataorch/internal/db"
	"dataorch/internal/dispatch"
	"dataorch/internal/lock"
	"dataorch/internal/logging"
	"dataorch/internal/queue"
	"dataorch/internal/runner"
	"dataorch/internal/scheduler"
	"dataorch/internal/settings"
	"dataorch/internal/store"
	"dataorch/internal/store/postgres"
	"dataorch/internal/webhook"
)

func main() {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "dataorch",
		Short:         "Distributed job orchestration: scheduler, agents, webhook trigger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		migrateCmd(&configPath, &verbose),
		schedulerCmd(&configPath, &verbose),
		agentCmd(&configPath, &verbose),
		webhookCmd(&configPath, &verbose),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(configPath string, verbose bool) (*config.Config, *zap.SugaredLogger, error) {
	logger, err := logging.New(verbose)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PostgresURL == "" {
		return nil, nil, errors.New("postgres_url is not configured (config file or DATAORCH_POSTGRES_URL)")
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func migrateCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(conn, cfg.MigrationsDir, logger); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func schedulerCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the schedule evaluation loop and stuck-instance sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			transport, dispatcher, err := buildDispatcher(cfg, logger)
			if err != nil {
				return err
			}
			defer transport.Close()

			// Single scheduler across replicas; standbys block here.
			lockManager := lock.NewPostgresLockManager(conn)
			if err := lockManager.Acquire(lock.SchedulerLock); err != nil {
				return err
			}
			defer lockManager.Release(lock.SchedulerLock)

			sched := scheduler.New(
				postgres.NewJobStore(conn),
				postgres.NewScheduleStore(conn),
				postgres.NewInstanceStore(conn),
				dispatcher,
				cfg.SchedulerInterval(),
				cfg.StuckTimeout(),
				logger,
			)

			ctx, stop := signalContext()
			defer stop()
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func agentCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run a worker that executes dispatched job instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if cfg.AMQPURL == "" {
				return errors.New("amqp_url is not configured (config file or DATAORCH_AMQP_URL)")
			}
			transport, err := queue.NewRabbitMQ(cfg.AMQPURL)
			if err != nil {
				return err
			}
			defer transport.Close()

			agentID := cfg.Agent.ID
			if agentID == "" {
				hostname, _ := os.Hostname()
				agentID = fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
			}

			queueName := cfg.Agent.Queue
			if queueName == "" {
				queueName = dispatch.ResolveQueueName(cfg.Agent.Environment)
			}

			runners := runner.NewRegistry()
			runners.Register("python", runner.NewPythonRunner(cfg.RunnerTimeout()))
			runners.Register("node", runner.NewNodeRunner(cfg.RunnerTimeout()))
			runners.Register("shell", runner.NewShellRunner(cfg.RunnerTimeout()))

			settingsCache := settings.NewCache([]settings.Source{
				settings.NewStoreSource(conn),
				settings.NewFileSource(cfg.Settings.File),
				settings.NewStaticSource(cfg.Settings.Default),
			}, cfg.SettingsTTL(), logger)

			worker := agent.NewWorker(
				agentID,
				queueName,
				transport,
				postgres.NewJobStore(conn),
				postgres.NewScheduleStore(conn),
				postgres.NewInstanceStore(conn),
				postgres.NewDatumStore(conn),
				runners,
				settingsCache,
				cfg.Agent.MaxConcurrent,
				logger,
			)

			ctx, stop := signalContext()
			defer stop()
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func webhookCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "webhook",
		Short: "Serve the webhook trigger endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			transport, dispatcher, err := buildDispatcher(cfg, logger)
			if err != nil {
				return err
			}
			defer transport.Close()

			jobs := postgres.NewJobStore(conn)
			server := webhook.NewServer(
				jobs,
				postgres.NewScheduleStore(conn),
				postgres.NewInstanceStore(conn),
				dispatcher,
				queueResolver(jobs),
				logger,
			)

			httpServer := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Webhook.Port),
				Handler: server.Router(),
			}

			ctx, stop := signalContext()
			defer stop()
			go func() {
				<-ctx.Done()
				httpServer.Shutdown(context.Background())
			}()

			logger.Infow("webhook server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func buildDispatcher(cfg *config.Config, logger *zap.SugaredLogger) (queue.Transport, *dispatch.Dispatcher, error) {
	if cfg.AMQPURL == "" {
		return nil, nil, errors.New("amqp_url is not configured (config file or DATAORCH_AMQP_URL)")
	}
	transport, err := queue.NewRabbitMQ(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	dispatcher := dispatch.NewDispatcher(transport, cfg.Dispatch.RetryCount, cfg.RetryDelay(), logger)
	return transport, dispatcher, nil
}

// queueResolver mirrors the scheduler's destination resolution for webhook
// triggers: an explicitly assigned queue wins, otherwise the environment tag.
func queueResolver(jobs store.JobStore) webhook.QueueResolver {
	return func(ctx context.Context, jobID int64) (string, error) {
		job, err := jobs.FindByID(ctx, jobID)
		if err != nil {
			return "", err
		}
		if job.JobQueueID != nil {
			if name, err := jobs.QueueNameByID(ctx, *job.JobQueueID); err == nil && name != "" {
				return name, nil
			}
		}
		return dispatch.ResolveQueueName(job.Environment), nil
	}
}
