package infra

import (
	"log/slog"

	"github.com/congo-pay/clearing/internal/config"
	"github.com/congo-pay/clearing/internal/events"
)

// NewPublisher returns a Kafka publisher when brokers are configured and a
// logging publisher otherwise. The returned close function is never nil.
func NewPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLoggerPublisher(logger), func() error { return nil }
	}
	kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	logger.Info("publishing clearing outcomes to kafka",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", cfg.KafkaTopic),
	)
	return kp, kp.Close
}
