package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/novostroy/novostroy-api/internal/api"
	"github.com/novostroy/novostroy-api/internal/auth"
	"github.com/novostroy/novostroy-api/internal/config"
	"github.com/novostroy/novostroy-api/internal/database"
	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/mail"
	"github.com/novostroy/novostroy-api/internal/notify"
	"github.com/novostroy/novostroy-api/internal/ratelimit"
	"github.com/novostroy/novostroy-api/internal/storage"
	"github.com/novostroy/novostroy-api/internal/store"
	"github.com/redis/go-redis/v9"
)

const version = "0.1.0"

const cleanupInterval = time.Hour

type application struct {
	api     *api.Api
	auth    *auth.Service
	log     *logger.Logger
	closers []func() error
}

func (a *application) Close() {
	if a.api != nil {
		a.api.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("error during shutdown", "error", err)
		}
	}
}

func newAuthService(cfg *config.Config, db *sql.DB, log *logger.Logger) (*auth.Service, error) {
	st := store.New(db, cfg.Database.Type)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:     cfg.JWT.Secret,
		TTL:        time.Duration(cfg.JWT.TTL) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshTTL) * time.Minute,
		Issuer:     cfg.JWT.Issuer,
	}, st)
	return auth.NewService(st, st, tokens, auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		time.Duration(cfg.Auth.ResetTokenTTL)*time.Minute, log)
}

func newMailSender(cfg config.Mail, log *logger.Logger) mail.Sender {
	if cfg.Driver == "smtp" {
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	return mail.NewLogSender(log)
}

func newNotifier(ctx context.Context, cfg *config.Config, log *logger.Logger) (*notify.Service, error) {
	loc, err := time.LoadLocation(cfg.Mail.Timezone)
	if err != nil {
		return nil, fmt.Errorf("mail timezone: %w", err)
	}

	var archiver notify.Archiver
	if cfg.Archive.Bucket != "" {
		s3, err := storage.NewS3Archiver(ctx, storage.S3Config{
			Endpoint:        cfg.Archive.Endpoint,
			Region:          cfg.Archive.Region,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Prefix:          cfg.Archive.Prefix,
		})
		if err != nil {
			return nil, err
		}
		archiver = s3
		log.Info("archiving service request mail", "bucket", cfg.Archive.Bucket)
	}

	return notify.NewService(newMailSender(cfg.Mail, log), archiver, notify.Config{
		AdminEmail: cfg.Mail.AdminEmail,
		From:       cfg.Mail.From,
		Location:   loc,
	}, log), nil
}

// newLimiterFactory returns nil for the in-memory backend.
func newLimiterFactory(ctx context.Context, cfg config.Throttle) (func(string, int, time.Duration) ratelimit.Limiter, func() error, error) {
	if cfg.Backend != "redis" {
		return nil, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	factory := func(_ string, rate int, window time.Duration) ratelimit.Limiter {
		return ratelimit.NewRedisLimiter(client, "", rate, window)
	}
	return factory, client.Close, nil
}

func initializeAPI(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log.Logger)
	app := &application{log: log}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	app.auth, err = newAuthService(cfg, db, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	limiter, closeLimiter, err := newLimiterFactory(ctx, cfg.Throttle)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeLimiter)

	app.api, err = api.NewApi(*cfg, api.Deps{
		Auth:     app.auth,
		Notifier: notifier,
		Logger:   log,
		Limiter:  limiter,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeAPI(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.auth.RunCleanup(ctx, cleanupInterval)

	if err := app.api.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.log.Info("server stopped")
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default $CONFIG_DIR/app.yml)")
	flag.Parse()

	slog.Info("starting Novostroy API", "version", version, "config", *configPath)

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
