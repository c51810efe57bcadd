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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// KafkaBus broadcasts invalidations through a Kafka topic. Every node
// subscribes with its own consumer group, so each one receives the full
// stream rather than a partition share.
type KafkaBus struct {
	cfg    Config
	nodeID string
	writer *kafka.Writer

	saslMechanism sasl.Mechanism
	tlsConfig     *tls.Config
}

var _ Bus = (*KafkaBus)(nil)

// NewKafkaBus creates a Kafka-backed Bus from the configuration.
func NewKafkaBus(cfg Config, nodeID string) (*KafkaBus, error) {
	b := &KafkaBus{
		cfg:    cfg,
		nodeID: nodeID,
	}

	if cfg.Kafka.SASLEnabled {
		mechanism, err := createSASLMechanism(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
		b.saslMechanism = mechanism
	}
	if cfg.Kafka.TLSEnabled {
		b.tlsConfig = &tls.Config{
			InsecureSkipVerify: cfg.Kafka.TLSSkipVerify,
		}
	}

	b.writer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
		// Invalidations are tiny and latency sensitive. Write each one
		// out immediately and do not wait for broker acknowledgement.
		BatchSize:    1,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		RequiredAcks: kafka.RequireNone,
		Transport: &kafka.Transport{
			SASL: b.saslMechanism,
			TLS:  b.tlsConfig,
		},
	}
	return b, nil
}

// createSASLMechanism creates a SASL mechanism based on configuration.
func createSASLMechanism(cfg KafkaConfig) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.SASLUsername,
			Password: cfg.SASLPassword,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

// Publish writes one invalidation message to the topic. Messages for the
// same flag share a partition so they arrive in publish order.
func (b *KafkaBus) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Marshal()
	if err != nil {
		recordPublish(ctx, BackendKafka, err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var key []byte
	if msg.FlagName != "" {
		key = []byte(msg.FlagName)
	}
	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: data,
	})
	recordPublish(ctx, BackendKafka, err)
	if err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", b.cfg.Topic, err)
	}
	return nil
}

// Subscribe consumes the topic from its tail under a consumer group unique
// to this node, delivering each message to handler. It blocks until ctx is
// canceled or the reader fails.
func (b *KafkaBus) Subscribe(ctx context.Context, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.cfg.Kafka.Brokers,
		GroupID:  b.groupID(),
		Topic:    b.cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  b.cfg.Kafka.MaxWait,
		// Old invalidations are useless: the cache is flushed on every
		// (re)subscribe, so only messages from now on matter.
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: b.saslMechanism,
			TLS:           b.tlsConfig,
		},
	})
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("Failed to close relay reader", slog.Any("error", err))
		}
	}()

	for {
		kmsg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch from topic %s: %w", b.cfg.Topic, err)
		}

		var msg Message
		if err := msg.Unmarshal(kmsg.Value); err != nil {
			recordDecodeError(ctx, BackendKafka)
			slog.Warn("Dropping undecodable relay message",
				slog.String("topic", b.cfg.Topic),
				slog.Any("error", err))
		} else {
			recordReceived(ctx, BackendKafka)
			handler(msg)
		}

		// A failed commit only means redelivery after a rebalance, and
		// subscribers tolerate duplicate invalidations.
		if err := reader.CommitMessages(ctx, kmsg); err != nil {
			slog.Warn("Failed to commit relay offset", slog.Any("error", err))
		}
	}
}

// Close shuts down the writer. Active subscriptions stop when their
// context is canceled.
func (b *KafkaBus) Close() error {
	return b.writer.Close()
}

func (b *KafkaBus) groupID() string {
	return fmt.Sprintf("%s.cache.%s", b.cfg.Kafka.GroupPrefix, b.nodeID)
}
