package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaycrm/campaign-engine/internal/api"
	"github.com/relaycrm/campaign-engine/internal/audit"
	"github.com/relaycrm/campaign-engine/internal/config"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/queue"
	"github.com/relaycrm/campaign-engine/internal/repository/postgres"
	"github.com/relaycrm/campaign-engine/internal/sending"
	"github.com/relaycrm/campaign-engine/internal/service/campaign"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	logger.SetLevelFromEnv()

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		logger.Error("connect database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("parse redis url", "error", err.Error())
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	svc := campaign.NewService(
		postgres.NewCampaignRepo(db),
		postgres.NewDeliveryLogRepo(db),
		sending.NewResolver(postgres.NewMailSettingsRepo(db)),
		queue.NewDispatchQueue(rdb),
		audit.NewPostgresSink(db),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("api server listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

func openDB(dc config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dc.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(dc.MaxOpenConns)
	db.SetMaxIdleConns(dc.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
