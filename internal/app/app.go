// Package app builds the worker's components from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/logbook"
	"github.com/hamed0406/uptimeworker/internal/monitor"
	"github.com/hamed0406/uptimeworker/internal/notify"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/repo/file"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
	"github.com/hamed0406/uptimeworker/internal/repo/postgres"
	rstore "github.com/hamed0406/uptimeworker/internal/repo/redis"
	"github.com/hamed0406/uptimeworker/internal/storage"
)

// OpenStore returns the check store selected by STORE_BACKEND and a func
// that releases it.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.CheckStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		client, err := rstore.Connect(rstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, err
		}
		return rstore.New(client), func() { _ = client.Close() }, nil
	case "file", "":
		s, err := file.New(cfg.DataDir, "checks")
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("app.OpenStore: unknown backend %q", cfg.StoreBackend)
	}
}

// Senders builds every configured alert sender. With none configured, alerts
// go to the service log.
func Senders(cfg config.Config, log *zap.Logger) (notify.Sender, func()) {
	var out notify.Multi
	closers := []func(){}

	if cfg.TwilioEnabled() {
		out = append(out, notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From))
	}
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		out = append(out, s)
	}
	if cfg.SMTPEnabled() {
		out = append(out, notify.NewMail(cfg.SMTP.From, cfg.SMTP.Password, cfg.SMTP.Host, cfg.SMTP.Port))
	}
	if k := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic); k != nil {
		out = append(out, k)
		closers = append(closers, func() {
			if err := k.Close(); err != nil {
				log.Warn("kafka_close_error", zap.Error(err))
			}
		})
	}
	if len(out) == 0 {
		out = append(out, notify.Log{Logger: log})
	}
	return out, func() {
		for _, c := range closers {
			c()
		}
	}
}

func Recipients(cfg config.Config) (notify.Directory, error) {
	table, err := notify.ParseTable(cfg.Alerts.Recipients)
	if err != nil {
		return notify.Directory{}, err
	}
	return notify.Directory{Table: table, Prefix: cfg.Alerts.Prefix, Passthrough: cfg.Alerts.Passthrough}, nil
}

// Book opens the outcome log directory, offloading archives to S3 when configured.
func Book(ctx context.Context, cfg config.Config, log *zap.Logger) (*logbook.Book, error) {
	var opts []logbook.Option
	if cfg.ArchiveEnabled() {
		sink, err := storage.NewS3Sink(storage.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			Prefix:    cfg.Archive.Prefix,
			UseSSL:    cfg.Archive.UseSSL,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureBucket(ctx, ""); err != nil {
			log.Warn("archive_bucket_unavailable", zap.Error(err))
		}
		opts = append(opts, logbook.WithSink(sink))
	}
	return logbook.New(cfg.OutcomeLogDir, log, opts...)
}

// Engine assembles the gather engine around store, sender and book.
func Engine(cfg config.Config, log *zap.Logger, store repo.CheckStore, sender notify.Sender, book *logbook.Book) (*monitor.Engine, error) {
	dir, err := Recipients(cfg)
	if err != nil {
		return nil, err
	}
	checker := probe.NewHTTPChecker()
	if cfg.DNSDiagnostics {
		checker.WithDNSDiagnostics()
	}
	alerter := notify.NewAlerter(log, sender, dir)
	return monitor.NewEngine(log, store, checker, alerter, book, cfg.Limits(), cfg.MaxInFlightProbes), nil
}
