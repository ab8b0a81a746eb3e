package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gorilla/securecookie"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/studyhallhq/studyhall/config"
	"github.com/studyhallhq/studyhall/postgres"
	"github.com/studyhallhq/studyhall/postgres/migrator"
	"github.com/studyhallhq/studyhall/presence"
	"github.com/studyhallhq/studyhall/push"
	"github.com/studyhallhq/studyhall/realtime"
	"github.com/studyhallhq/studyhall/service"
	"github.com/studyhallhq/studyhall/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	errLogger := slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	}))
	infoLogger := slog.New(charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("open postgres connection pool: %w", err)
	}

	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	migrationStart := time.Now()
	infoLogger.Info("starting postgres migrations")

	if err := migrator.New(dbPool, postgres.MigrationsFS).Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}

	infoLogger.Info("finished postgres migrations", "took", time.Since(migrationStart))

	broker, err := newBroker(cfg, infoLogger)
	if err != nil {
		return err
	}

	store := postgres.New(dbPool)

	svc := service.New(&service.Config{
		Postgres: store,
		Broker:   broker,
		Presence: presence.NewTracker(),
		Push: &push.Webpush{
			Logger:          errLogger,
			Store:           store,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.PushSubscriber,
		},
		Logger:            errLogger,
		BaseCtx:           context.Background(),
		BackgroundTimeout: cfg.BackgroundTimeout,
	})

	go func() {
		for err := range svc.Errs() {
			errLogger.Error("service error", "error", err)
		}
	}()

	cookies, err := newCookies(cfg)
	if err != nil {
		return err
	}

	handler := &web.Handler{
		Service: svc,
		Logger:  errLogger,
		Cookies: cookies,
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	infoLogger.Info("starting studyhall chat server", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start studyhall chat server: %w", err)
	}

	return svc.Close()
}

func newBroker(cfg config.Config, logger *slog.Logger) (realtime.Broker, error) {
	if cfg.NatsURL == "" {
		logger.Info("no nats url configured, using in-process broker")
		return realtime.NewMemory(), nil
	}

	conn, err := nats.Connect(cfg.NatsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("connected to nats", "url", cfg.NatsURL)
	return realtime.NewNATS(conn), nil
}

func newCookies(cfg config.Config) (*securecookie.SecureCookie, error) {
	if cfg.CookieHashKey == "" {
		// Ephemeral keys; sessions do not survive restarts. Fine for
		// local development, set real keys in production.
		return securecookie.New(securecookie.GenerateRandomKey(64), nil), nil
	}

	hashKey, err := hex.DecodeString(cfg.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}

	var blockKey []byte
	if cfg.CookieBlockKey != "" {
		blockKey, err = hex.DecodeString(cfg.CookieBlockKey)
		if err != nil {
			return nil, fmt.Errorf("decode cookie block key: %w", err)
		}
	}

	return securecookie.New(hashKey, blockKey), nil
}
