package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmorataya/tipica-pos/internal/config"
	"github.com/jmorataya/tipica-pos/internal/domain/catalog"
	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/reports"
	"github.com/jmorataya/tipica-pos/internal/domain/sales"
	"github.com/jmorataya/tipica-pos/internal/domain/users"
	"github.com/jmorataya/tipica-pos/internal/infra/db"
	httpx "github.com/jmorataya/tipica-pos/internal/infra/http"
	"github.com/jmorataya/tipica-pos/internal/infra/logger"
	"github.com/jmorataya/tipica-pos/internal/infra/notify"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	svc := sales.NewService(sales.NewPgStore(pool), sales.SystemClock(), log)

	if cfg.Telegram.Token != "" && cfg.Telegram.AdminChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Error("telegram init failed", "err", err)
		} else {
			svc.SetNotifier(tg)
			log.Info("low stock alerts enabled", "chat_id", cfg.Telegram.AdminChatID)
		}
	}

	api := httpx.NewAPI(log, svc, reports.NewRepo(pool))
	catalogAPI := httpx.NewCatalogAPI(products.NewRepo(pool), catalog.NewRepo(pool), users.NewRepo(pool))
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, api, catalogAPI)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
