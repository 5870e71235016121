package config

import (
	"os"

	postgres_wrapper "github.com/joripage/exchange-core/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/exchange-core/pkg/infra/redis"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	ExchangeDB  *postgres_wrapper.PostgresConfig `yaml:"exchange_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka       *KafkaConfig                     `yaml:"kafka"`
	Market      *MarketConfig                    `yaml:"market"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	TradeTopic    string   `yaml:"trade_topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

type MarketConfig struct {
	QuoteTicker        string `yaml:"quote_ticker"`
	TapeLength         int    `yaml:"tape_length"`
	SnapshotTTLSeconds int    `yaml:"snapshot_ttl_seconds"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	cfg.applyDefaults()

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Market == nil {
		c.Market = &MarketConfig{}
	}
	if c.Market.QuoteTicker == "" {
		c.Market.QuoteTicker = "RUB"
	}
	if c.Market.TapeLength <= 0 {
		c.Market.TapeLength = 100
	}
	if c.Market.SnapshotTTLSeconds <= 0 {
		c.Market.SnapshotTTLSeconds = 1
	}
	if c.Kafka != nil && c.Kafka.TradeTopic == "" {
		c.Kafka.TradeTopic = "exchange.trades"
	}
}
