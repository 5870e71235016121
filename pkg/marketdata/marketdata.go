// Package marketdata serves derived read views over the order store and the
// trade tape: book depth snapshots, recent trades and ticker statistics.
// Hot reads go through redis; the database is the fallback.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

const (
	defaultDepth      = 20
	defaultTapeLength = 100

	bookKeyFormat = "md:book:%s"
	tapeKeyFormat = "md:tape:%s"
)

type Config struct {
	// SnapshotTTL bounds how stale a cached book snapshot may be.
	SnapshotTTL time.Duration
	// TapeLength caps the redis recent-trades list.
	TapeLength int
}

type Service struct {
	repo  repo.IRepo
	redis *redis.Client
	log   *zap.Logger
	cfg   Config
}

func NewService(r repo.IRepo, redisClient *redis.Client, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = time.Second
	}
	if cfg.TapeLength <= 0 {
		cfg.TapeLength = defaultTapeLength
	}
	return &Service{
		repo:  r,
		redis: redisClient,
		log:   log,
		cfg:   cfg,
	}
}

// OrderBook returns the aggregated book for a ticker, at most depth levels a
// side. A cached snapshot is served while it is fresh.
func (s *Service) OrderBook(ctx context.Context, ticker string, depth int) (*Snapshot, error) {
	key := fmt.Sprintf(bookKeyFormat, ticker)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var snap Snapshot
			if err := json.Unmarshal(cached, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	bids, err := s.repo.Order().Resting(ctx, ticker, model.OrderSideBuy)
	if err != nil {
		return nil, err
	}
	asks, err := s.repo.Order().Resting(ctx, ticker, model.OrderSideSell)
	if err != nil {
		return nil, err
	}

	snap := buildSnapshot(ticker, bids, asks, depth)

	if s.redis != nil {
		if b, err := json.Marshal(snap); err == nil {
			if err := s.redis.Set(ctx, key, b, s.cfg.SnapshotTTL).Err(); err != nil {
				s.log.Warn("cache book snapshot failed", zap.String("ticker", ticker), zap.Error(err))
			}
		}
	}

	return snap, nil
}

// RecentTrades returns up to limit trades, newest first, from the redis tape
// with a database fallback.
func (s *Service) RecentTrades(ctx context.Context, ticker string, limit int) ([]*model.Trade, error) {
	if limit <= 0 || limit > s.cfg.TapeLength {
		limit = s.cfg.TapeLength
	}

	if s.redis != nil {
		key := fmt.Sprintf(tapeKeyFormat, ticker)
		raw, err := s.redis.LRange(ctx, key, 0, int64(limit-1)).Result()
		if err == nil && len(raw) > 0 {
			trades := make([]*model.Trade, 0, len(raw))
			for _, item := range raw {
				var t model.Trade
				if err := json.Unmarshal([]byte(item), &t); err != nil {
					trades = nil
					break
				}
				trades = append(trades, &t)
			}
			if trades != nil {
				return trades, nil
			}
		}
	}

	return s.repo.Trade().Recent(ctx, ticker, limit)
}

// TickerStats is a 24h summary over the trade tape.
type TickerStats struct {
	Ticker    string          `json:"ticker"`
	LastPrice int64           `json:"last_price"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap"`
	Trades    int             `json:"trades"`
}

// Ticker computes last price, traded volume and the volume-weighted average
// price over the past 24 hours.
func (s *Service) Ticker(ctx context.Context, ticker string) (*TickerStats, error) {
	trades, err := s.repo.Trade().Since(ctx, ticker, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	stats := &TickerStats{
		Ticker: ticker,
		VWAP:   decimal.Zero,
		Trades: len(trades),
	}
	if len(trades) == 0 {
		return stats, nil
	}

	notional := decimal.Zero
	for _, t := range trades {
		stats.Volume += t.Quantity
		notional = notional.Add(decimal.NewFromInt(t.Price).Mul(decimal.NewFromInt(t.Quantity)))
	}
	stats.LastPrice = trades[len(trades)-1].Price
	stats.VWAP = notional.Div(decimal.NewFromInt(stats.Volume)).Round(4)

	return stats, nil
}
