package marketdata

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	kafkawrapper "github.com/joripage/exchange-core/pkg/kafka_wrapper"
)

// ApplyFeedBatch consumes one batch of trade-feed messages and pushes them
// onto the redis tape, trimming it to the configured length. It is the
// handler cmd/worker hands to the kafka consumer group.
func (s *Service) ApplyFeedBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	if s.redis == nil {
		return nil
	}

	for _, m := range msgs {
		// Key is the instrument ticker (set by the producer); value is the
		// trade JSON, stored as-is.
		if !json.Valid(m.Value) {
			s.log.Warn("skip malformed trade message",
				zap.String("topic", m.Topic),
				zap.Int64("offset", m.Offset))
			continue
		}
		key := fmt.Sprintf(tapeKeyFormat, string(m.Key))

		pipe := s.redis.Pipeline()
		pipe.LPush(ctx, key, m.Value)
		pipe.LTrim(ctx, key, 0, int64(s.cfg.TapeLength-1))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("update trade tape: %w", err)
		}
	}
	return nil
}
