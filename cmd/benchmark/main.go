package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joripage/exchange-core/config"
	"github.com/joripage/exchange-core/pkg/exchange"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
	postgres_wrapper "github.com/joripage/exchange-core/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/exchange-core/pkg/kafka_wrapper"
	"github.com/joripage/exchange-core/pkg/logging"
	"github.com/joripage/exchange-core/pkg/marketdata"
)

const (
	numOrders   = 10_000
	numAccounts = 50
	minPrice    = 100
	maxPrice    = 200
	minQty      = 1
	maxQty      = 100
	ticker      = "ABC"
)

func randomRequest(accounts []uuid.UUID) *exchange.SubmitOrderRequest {
	side := model.OrderSideBuy
	if rand.Intn(2) == 0 {
		side = model.OrderSideSell
	}

	kind := model.OrderKindLimit
	price := int64(rand.Intn(maxPrice-minPrice+1) + minPrice)
	if rand.Intn(10) == 0 {
		kind = model.OrderKindMarket
		price = 0
	}

	return &exchange.SubmitOrderRequest{
		AccountID: accounts[rand.Intn(len(accounts))],
		Ticker:    ticker,
		Side:      side,
		Kind:      kind,
		Quantity:  int64(rand.Intn(maxQty-minQty+1) + minQty),
		Price:     price,
	}
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	logger := logging.NewLogger(logging.WARN)
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger.Zap())

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	db := postgres_wrapper.InitPostgresWithBackoff(cfg.ExchangeDB)
	exchangeRepo := repo.NewRepo(db)

	eng := exchange.New(exchangeRepo, &exchange.Config{
		QuoteTicker: cfg.Market.QuoteTicker,
	}, logger.Zap())

	if cfg.Kafka != nil {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
		})
		defer producer.Close(ctx) // nolint
		eng.SetTradeFeed(marketdata.NewKafkaTradeFeed(producer, cfg.Kafka.TradeTopic))
	}

	accounts := seed(ctx, exchangeRepo, eng, cfg.Market.QuoteTicker)

	totalTrades := 0
	totalQty := int64(0)
	rejected := 0

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		res, err := eng.SubmitOrder(ctx, randomRequest(accounts))
		if err != nil {
			// Underfunded accounts are expected with random flow: limit
			// orders bounce at intake, market buys at settlement.
			if errors.Is(err, exchange.ErrInsufficientFunds) || errors.Is(err, exchange.ErrSettlementFailure) {
				rejected++
				continue
			}
			panic(err)
		}
		totalTrades += len(res.Trades)
		for _, t := range res.Trades {
			totalQty += t.Quantity
		}
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Total Orders      : %d\n", numOrders)
	fmt.Printf("Rejected Orders   : %d\n", rejected)
	fmt.Printf("Total Trades      : %d\n", totalTrades)
	fmt.Printf("Total Matched Qty : %d\n", totalQty)
	fmt.Printf("Time Taken        : %s\n", elapsed)
	fmt.Printf("Orders/sec        : %.0f\n", float64(numOrders)/elapsed.Seconds())
}

func seed(ctx context.Context, r repo.IRepo, eng *exchange.Exchange, quote string) []uuid.UUID {
	for _, in := range []*model.Instrument{
		{Ticker: ticker, Name: "Benchmark instrument", Active: true},
		{Ticker: quote, Name: "Quote currency", Active: true},
	} {
		if err := r.Instrument().Upsert(ctx, in); err != nil {
			panic(err)
		}
	}

	accounts := make([]uuid.UUID, 0, numAccounts)
	for i := 0; i < numAccounts; i++ {
		a := &model.Account{ID: uuid.New(), Name: fmt.Sprintf("bench-%03d", i)}
		if err := r.Account().Insert(ctx, a); err != nil {
			panic(err)
		}
		if err := eng.Deposit(ctx, a.ID, quote, int64(maxPrice*maxQty*numOrders/numAccounts)); err != nil {
			panic(err)
		}
		if err := eng.Deposit(ctx, a.ID, ticker, int64(maxQty*numOrders/numAccounts)); err != nil {
			panic(err)
		}
		accounts = append(accounts, a.ID)
	}
	return accounts
}
