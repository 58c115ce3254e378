package kafka

import "time"

// Config holds Kafka connection parameters.
type Config struct {
	ClientID string

	// SASLMechanism is "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	Brokers []string

	// WriteTimeout bounds a single publish; zero uses the kafka-go default.
	WriteTimeout time.Duration

	TLS         bool
	SASLEnabled bool
}

// Enabled reports whether at least one broker is configured.
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}
