package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/job-hoarder/internal/config"
)

func TestRabbitMQConfig(t *testing.T) {
	in := &config.RabbitMQConfig{
		Host:       "rabbit",
		Port:       5672,
		User:       "guest",
		VHost:      "/",
		Exchange:   config.ExchangeConfig{Name: "enrichment_exchange", Type: "direct", Durable: true},
		Queue:      config.QueueConfig{Name: "enrichment_queue", Durable: true, DeadLetterExchange: "enrichment_dlx"},
		RoutingKey: "enrichment",
		Consumer:   config.ConsumerConfig{PrefetchCount: 2, LeaseTimeout: 35 * time.Minute},
		Publish:    config.PublishConfig{RetryAttempts: 3, RetryInterval: time.Second, BackoffMultiplier: 2},
	}

	out := RabbitMQConfig(in)
	assert.Equal(t, "enrichment_queue", out.QueueName)
	assert.Equal(t, "enrichment_dlx", out.DeadLetterExchange)
	assert.Equal(t, 35*time.Minute, out.ConsumerTimeout)
	assert.Equal(t, 2, out.PrefetchCount)
	assert.Equal(t, 3, out.PublishRetries)
	assert.Equal(t, 2.0, out.PublishBackoffMult)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOARDER_TEST_CONFIG", "")
	assert.Equal(t, "configs/x.yaml", DefaultConfigPath("HOARDER_TEST_CONFIG", "configs/x.yaml"))

	t.Setenv("HOARDER_TEST_CONFIG", "/etc/hoarder.yaml")
	assert.Equal(t, "/etc/hoarder.yaml", DefaultConfigPath("HOARDER_TEST_CONFIG", "configs/x.yaml"))
}
