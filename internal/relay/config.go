// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package relay

import (
	"fmt"
	"time"
)

const (
	// BackendKafka broadcasts invalidations through a Kafka topic.
	BackendKafka = "kafka"
	// BackendRedis broadcasts invalidations through Redis pub/sub.
	BackendRedis = "redis"
	// BackendNoop disables cross-node invalidation entirely.
	BackendNoop = "noop"
)

// Config holds the notification relay configuration.
type Config struct {
	// Backend selects the transport: "kafka", "redis", or "noop".
	Backend string `mapstructure:"backend"`

	// Topic is the Kafka topic or Redis channel invalidations travel on.
	Topic string `mapstructure:"topic"`

	Kafka KafkaConfig `mapstructure:"kafka"`
	Redis RedisConfig `mapstructure:"redis"`
}

// KafkaConfig holds connection settings for the Kafka transport.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`

	SASLEnabled   bool   `mapstructure:"sasl_enabled"`
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`

	TLSEnabled    bool `mapstructure:"tls_enabled"`
	TLSSkipVerify bool `mapstructure:"tls_skip_verify"`

	// BatchTimeout bounds how long the writer may hold a message before
	// flushing. Invalidations are latency sensitive, so keep it short.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	// MaxWait bounds how long the reader blocks waiting for new messages.
	MaxWait time.Duration `mapstructure:"max_wait"`

	// GroupPrefix is prepended to the per-node consumer group name.
	GroupPrefix string `mapstructure:"group_prefix"`

	// TopicPartitions and TopicReplication apply when sync-topics
	// provisions the invalidation topic.
	TopicPartitions  int `mapstructure:"topic_partitions"`
	TopicReplication int `mapstructure:"topic_replication"`
}

// RedisConfig holds connection settings for the Redis transport.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendNoop,
		Topic:   "flagrunner.invalidations",
		Kafka: KafkaConfig{
			Brokers:          []string{"localhost:9092"},
			SASLMechanism:    "SCRAM-SHA-256",
			BatchTimeout:     10 * time.Millisecond,
			MaxWait:          250 * time.Millisecond,
			GroupPrefix:      "flagrunner",
			TopicPartitions:  16,
			TopicReplication: 3,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// Active reports whether a real transport is configured.
func (c Config) Active() bool {
	return c.Backend != BackendNoop
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka relay requires at least one broker")
		}
		if c.Kafka.TopicPartitions <= 0 || c.Kafka.TopicReplication <= 0 {
			return fmt.Errorf("kafka relay topic settings must be positive")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis relay requires an address")
		}
	case BackendNoop:
		return nil
	default:
		return fmt.Errorf("unknown relay backend: %s", c.Backend)
	}
	if c.Topic == "" {
		return fmt.Errorf("relay topic must not be empty")
	}
	return nil
}
