package infra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/congo-pay/clearing/internal/config"
	"github.com/congo-pay/clearing/internal/events"
	"github.com/congo-pay/clearing/internal/logging"
)

func TestNewPublisherSelectsBackend(t *testing.T) {
	pub, closeFn := NewPublisher(config.Config{}, logging.Discard())
	assert.IsType(t, &events.LoggerPublisher{}, pub)
	assert.NoError(t, closeFn())

	pub, closeFn = NewPublisher(config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "clearing.outcomes"}, logging.Discard())
	assert.IsType(t, &events.KafkaPublisher{}, pub)
	assert.NoError(t, closeFn())
}

func TestConnectorsRequireURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "", "clearing")
	assert.Error(t, err)
	_, err = NewRedisClient(context.Background(), "", "clearing")
	assert.Error(t, err)
}
