package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/evex-campus/backend/config"
	"github.com/evex-campus/backend/internal/worker"
	"github.com/evex-campus/backend/pkg/queue"
	redispkg "github.com/evex-campus/backend/pkg/redis"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redispkg.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connecting to redis", zap.Error(err))
	}
	defer rdb.Close()

	q := queue.NewQueue(rdb.Client, logger)
	sender := worker.NewSMTPSender(cfg.Email)

	worker.New(q, sender, logger).Run(ctx)
}
