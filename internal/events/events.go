// Package events publishes waitlist signups to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "waitlist.joined"

// Joined is emitted once per newly stored entry.
type Joined struct {
	Email    string `json:"email"`
	Domain   string `json:"domain"`
	JoinedAt int64  `json:"joinedAt"`
	Source   string `json:"source,omitempty"`
}

type Publisher interface {
	PublishJoined(ctx context.Context, ev Joined) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishJoined(context.Context, Joined) error { return nil }
func (Nop) Close() error                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			MaxAttempts:  3,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *Kafka) PublishJoined(ctx context.Context, ev Joined) error {
	msg, err := joinedMessage(ev)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.WithMessage(err, "kafka write")
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// joinedMessage keys by domain so one domain's signups stay ordered on a
// partition.
func joinedMessage(ev Joined) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, errors.WithMessage(err, "marshal joined event")
	}
	return kafka.Message{
		Key:   []byte(ev.Domain),
		Value: value,
		Time:  time.UnixMilli(ev.JoinedAt),
	}, nil
}
