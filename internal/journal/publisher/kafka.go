// Package publisher fans journal records out to Kafka so downstream audit
// consumers see every ledger attempt. Publishing is strictly best-effort.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"anchorid/internal/journal"
	"anchorid/internal/platform/logger"
)

// Kafka publishes journal records to a single topic, keyed by entity so all
// attempts for one DID or credential land in the same partition in order.
type Kafka struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// NewKafka connects to the given brokers. The produced records are
// fire-and-forget; delivery failures are logged, never returned.
func NewKafka(brokers []string, topic string, log *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Kafka{client: client, topic: topic, log: log}, nil
}

type message struct {
	ID           string `json:"id"`
	Entity       string `json:"entity"`
	TxHash       string `json:"tx_hash,omitempty"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// Publish sends the record asynchronously.
func (k *Kafka) Publish(ctx context.Context, rec journal.Record) {
	value, err := json.Marshal(message{
		ID:           rec.ID.String(),
		Entity:       rec.Entity,
		TxHash:       rec.TxHash,
		Type:         string(rec.Type),
		Status:       string(rec.Status),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		k.log.Error("marshal journal message", "error", err)
		return
	}

	k.client.Produce(ctx, &kgo.Record{
		Topic: k.topic,
		Key:   []byte(rec.Entity),
		Value: value,
	}, func(r *kgo.Record, err error) {
		if err != nil {
			k.log.Warn("journal publish failed",
				"entity", rec.Entity, "type", string(rec.Type), "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}
