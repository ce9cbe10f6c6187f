package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	platformkafka "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/kafka"
)

// Store publishes audit events to a Kafka topic. Records are keyed by the
// principal pseudonym so one principal's events stay ordered within a
// partition. Producing is synchronous; the async buffering decision belongs
// to the channel sink in front of this store, not here.
type Store struct {
	client *platformkafka.Client
	topic  string
}

func New(client *platformkafka.Client, topic string) *Store {
	return &Store{client: client, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Pseudonym),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event %s: %w", event.ID, err)
	}
	return nil
}
