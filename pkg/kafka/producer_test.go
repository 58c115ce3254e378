package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
	assert.Nil(t, p.transport)
	assert.Empty(t, p.writers)
}

func TestNewProducer_Transport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "tls only", cfg: Config{TLS: true}},
		{name: "plain", cfg: Config{SASLEnabled: true, SASLUsername: "u", SASLPassword: "p"}},
		{name: "scram 256", cfg: Config{SASLEnabled: true, SASLMechanism: "SCRAM-SHA-256", SASLUsername: "u", SASLPassword: "p"}},
		{name: "scram 512", cfg: Config{SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u", SASLPassword: "p"}},
		{name: "unknown mechanism", cfg: Config{SASLEnabled: true, SASLMechanism: "GSSAPI"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProducer(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p.transport)
			assert.Equal(t, tt.cfg.TLS, p.transport.TLS != nil)
			assert.Equal(t, tt.cfg.SASLEnabled, p.transport.SASL != nil)
		})
	}
}

func TestResolveSASL_Plain(t *testing.T) {
	m, err := resolveSASL(Config{SASLUsername: "churn", SASLPassword: "secret"})
	require.NoError(t, err)
	assert.Equal(t, plain.Mechanism{Username: "churn", Password: "secret"}, m)
}

func TestGetOrCreateWriter(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, TLS: true})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("churn.model.trained")
	assert.Same(t, w1, p.getOrCreateWriter("churn.model.trained"))
	assert.Equal(t, p.transport, w1.Transport)

	w3 := p.getOrCreateWriter("churn.risk.detected")
	assert.NotSame(t, w1, w3)
	assert.Len(t, p.writers, 2)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestPublish_NoMessages(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "churn.model.trained"))
	assert.Empty(t, p.writers)
}

func TestToKafkaMessages(t *testing.T) {
	out := toKafkaMessages([]Message{{
		Key:     []byte("run-1"),
		Value:   []byte(`{"f1":0.6}`),
		Headers: map[string]string{"content-type": "application/json"},
	}})

	require.Len(t, out, 1)
	assert.Equal(t, []byte("run-1"), out[0].Key)
	require.Len(t, out[0].Headers, 1)
	assert.Equal(t, "content-type", out[0].Headers[0].Key)
	assert.Equal(t, []byte("application/json"), out[0].Headers[0].Value)
}
