package kafka

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/platform/config"
)

func TestNewProducerDisabledWithoutBrokers(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Topic: "locus.corrections"}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, p)
}
