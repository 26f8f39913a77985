// Command notifier consumes leave events from SQS and emails the people
// involved.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"hrleave/internal/app/server"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/platform/awsclient"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/email"
	"hrleave/internal/platform/telemetry"
	"hrleave/internal/worker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if cfg.EventsQueueURL == "" {
		slog.Error("EVENTS_QUEUE_URL is required for the notifier")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName+"-notifier", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("telemetry init", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	cfg.RunMigrations = false
	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	awsCfg, err := awsclient.Load(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		slog.Error("aws config", "err", err)
		os.Exit(1)
	}

	var mailer notifications.Mailer = email.Log{}
	if cfg.EmailEnabled {
		mailer = email.NewSES(ses.NewFromConfig(awsCfg))
	}
	notifier := notifications.New(mailer, store, cfg.EmailFrom)

	w := worker.New(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL, worker.NotifyProcessor{Notifier: notifier})
	w.Start(ctx)
	slog.Info("notifier exited")
}
