package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/exchange-core/config"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
	postgres_wrapper "github.com/joripage/exchange-core/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/exchange-core/pkg/infra/redis"
	kafkawrapper "github.com/joripage/exchange-core/pkg/kafka_wrapper"
	"github.com/joripage/exchange-core/pkg/logging"
	"github.com/joripage/exchange-core/pkg/marketdata"
)

// The worker consumes the trade feed and maintains the redis trade tape.
func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	logger := logging.NewLogger(logging.INFO)
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger.Zap())

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.ExchangeDB)
	exchangeRepo := repo.NewRepo(db)

	redisClient, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		panic(err)
	}

	md := marketdata.NewService(exchangeRepo, redisClient, marketdata.Config{
		SnapshotTTL: time.Duration(cfg.Market.SnapshotTTLSeconds) * time.Second,
		TapeLength:  cfg.Market.TapeLength,
	}, logger.Zap())

	consumer, err := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.ConsumerGroup,
		Topic:   cfg.Kafka.TradeTopic,
	})
	if err != nil {
		panic(err)
	}
	defer consumer.Close() // nolint

	go func() {
		if err := consumer.Run(ctx, md.ApplyFeedBatch); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "trade tape consumer stopped", zap.Error(err))
			sigs <- syscall.SIGTERM
		}
	}()

	fmt.Println("Trade tape worker started. Press Ctrl+C to exit.")
	<-sigs
	fmt.Println("Shutting down...")

	cancel()

	fmt.Println("Exited cleanly.")
}
