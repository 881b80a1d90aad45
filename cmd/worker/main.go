package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaycrm/campaign-engine/internal/audit"
	"github.com/relaycrm/campaign-engine/internal/config"
	"github.com/relaycrm/campaign-engine/internal/dispatch"
	"github.com/relaycrm/campaign-engine/internal/pkg/distlock"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/queue"
	"github.com/relaycrm/campaign-engine/internal/render"
	"github.com/relaycrm/campaign-engine/internal/repository/postgres"
	"github.com/relaycrm/campaign-engine/internal/sending"
	"github.com/relaycrm/campaign-engine/internal/tracking"
	"github.com/relaycrm/campaign-engine/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	logger.SetLevelFromEnv()

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("connect database", "error", err.Error())
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("parse redis url", "error", err.Error())
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	campaigns := postgres.NewCampaignRepo(db)
	jobs := queue.NewDispatchQueue(rdb)
	transport := sending.NewResolver(postgres.NewMailSettingsRepo(db))

	engine := dispatch.NewEngine(dispatch.Config{
		Campaigns:   campaigns,
		Recipients:  postgres.NewContactRepo(db),
		Transport:   transport,
		Logs:        postgres.NewDeliveryLogRepo(db),
		Sender:      sending.NewSMTPSender(10 * time.Second),
		Renderer:    render.NewRenderer(),
		Codec:       tracking.NewCodec(cfg.Tracking.SigningKey),
		TrackingURL: cfg.Tracking.PublicURL,
		SendTimeout: cfg.Dispatch.SendTimeout(),
		Audit:       audit.NewPostgresSink(db),
	})

	dispatcher := worker.NewDispatcher(jobs, engine, cfg.Dispatch.Workers)
	scheduler := worker.NewScheduler(campaigns, transport, jobs, func() distlock.DistLock {
		return distlock.NewLock(rdb, db, "campaign_scheduler", time.Minute)
	})
	scheduler.SetPollInterval(cfg.Dispatch.SchedulerPoll())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()
	go scheduler.Run(ctx)

	logger.Info("dispatch worker started", "workers", cfg.Dispatch.Workers)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down worker")
	cancel()

	// Give in-flight batches a chance to record their delivery logs.
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("worker shutdown timed out")
	}
}
