package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/switchman/internal/config"
	"github.com/zulandar/switchman/internal/db"
	"github.com/zulandar/switchman/internal/jira"
	"github.com/zulandar/switchman/internal/notify"
	"github.com/zulandar/switchman/internal/runlog"
	"github.com/zulandar/switchman/internal/scheduler"
	"github.com/zulandar/switchman/internal/server"
	"github.com/zulandar/switchman/internal/sync"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Switchman HTTP server",
		Long:  "Serves the ticket API, runs bot workflows on demand and on schedule, and appends every bot run to the shared run log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchman.yaml", "path to Switchman config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if port > 0 {
		cfg.Port = port
	}

	// The bearer token never comes from config or source, only from
	// the environment.
	token := os.Getenv("JIRA_API_TOKEN")
	if token == "" {
		return fmt.Errorf("JIRA_API_TOKEN is required")
	}

	client := jira.NewClient(cfg.Jira.BaseURL, token)

	sink, err := openSink(cfg.Log)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	registry := sync.NewRegistry(sync.Opts{
		Client:    client,
		Sink:      sink,
		Notifier:  notifier,
		PageSize:  cfg.Jira.PageSize,
		MaxIssues: cfg.Jira.MaxIssues,
	}, cfg.Fields)

	sched, err := scheduler.New(registry, cfg.Schedules)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	sched.Start()
	defer sched.Stop()
	if n := sched.Jobs(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running %d job(s)\n", n)
	}

	return server.Start(ctx, server.StartOpts{
		Client:    client,
		Sink:      sink,
		Registry:  registry,
		Fields:    cfg.Fields,
		PageSize:  cfg.Jira.PageSize,
		MaxIssues: cfg.Jira.MaxIssues,
		Port:      cfg.Port,
		Out:       cmd.OutOrStdout(),
	})
}

// openSink builds the configured run-log backend.
func openSink(cfg config.LogConfig) (runlog.Sink, error) {
	switch cfg.Backend {
	case "file":
		return runlog.NewFileSink(cfg.Path), nil
	case "sqlite", "mysql":
		conn, err := db.Open(cfg.Backend, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(conn); err != nil {
			return nil, err
		}
		return runlog.NewStoreSink(conn), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}

// buildNotifier assembles the configured run-summary notifiers.
func buildNotifier(cfg config.NotifyConfig) (sync.Notifier, error) {
	var notifiers notify.Multi
	if cfg.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.SlackWebhook))
	}
	if cfg.DiscordWebhook != "" {
		d, err := notify.NewDiscord(cfg.DiscordWebhook)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	}
	if len(notifiers) == 0 {
		return notify.Noop{}, nil
	}
	return notifiers, nil
}
