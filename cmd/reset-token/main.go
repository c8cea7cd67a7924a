// Command reset-token issues a password reset token for an existing account
// and prints it, so support staff can hand it to the user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/novostroy/novostroy-api/internal/auth"
	"github.com/novostroy/novostroy-api/internal/config"
	"github.com/novostroy/novostroy-api/internal/database"
	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/store"
)

func issue(ctx context.Context, cfg *config.Config, log *logger.Logger, email string, out io.Writer) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, cfg.Database.Type)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:     cfg.JWT.Secret,
		TTL:        time.Duration(cfg.JWT.TTL) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshTTL) * time.Minute,
		Issuer:     cfg.JWT.Issuer,
	}, st)
	ttl := time.Duration(cfg.Auth.ResetTokenTTL) * time.Minute
	svc, err := auth.NewService(st, st, tokens, auth.NewBcryptHasher(cfg.Auth.BcryptCost), ttl, log)
	if err != nil {
		return err
	}

	token, err := svc.CreatePasswordReset(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return fmt.Errorf("no account for %s", auth.NormalizeEmail(email))
		}
		return err
	}

	fmt.Fprintf(out, "email:   %s\n", auth.NormalizeEmail(email))
	fmt.Fprintf(out, "token:   %s\n", token)
	fmt.Fprintf(out, "expires: %s\n", time.Now().Add(ttl).Format(time.RFC3339))
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default $CONFIG_DIR/app.yml)")
	email := flag.String("email", "", "Account email")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: reset-token -email user@example.com [-config app.yml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("error", "text").Fatal("failed to load config", "error", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = issue(ctx, cfg, log, *email, os.Stdout)
	cancel()
	if err != nil {
		log.Fatal("failed to issue reset token", "error", err)
	}
}
