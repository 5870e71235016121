package marketdata

import (
	"context"

	"github.com/joripage/exchange-core/pkg/exchange/model"
	kafkawrapper "github.com/joripage/exchange-core/pkg/kafka_wrapper"
)

// KafkaTradeFeed publishes committed trades to the trade topic, keyed by
// ticker so one instrument stays in one partition. It implements
// exchange.TradeFeed.
type KafkaTradeFeed struct {
	producer *kafkawrapper.Producer
	topic    string
}

func NewKafkaTradeFeed(producer *kafkawrapper.Producer, topic string) *KafkaTradeFeed {
	return &KafkaTradeFeed{
		producer: producer,
		topic:    topic,
	}
}

func (f *KafkaTradeFeed) PublishTrade(ctx context.Context, t *model.Trade) error {
	return f.producer.PublishJSON(ctx, f.topic, t.Ticker, t)
}
