package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic carries credit metering events for downstream bookkeeping.
const DefaultTopic = "betslip.metering.v1"

const (
	TypeCreditsCharged      = "credits.charged"
	TypeCreditsRefunded     = "credits.refunded"
	TypeGenerationCompleted = "generation.completed"
)

// Metering is one credit movement or pipeline outcome for a request.
type Metering struct {
	Type         string `json:"type"`
	RequestID    string `json:"request_id"`
	AccountID    string `json:"account_id"`
	Amount       int    `json:"amount"`
	BalanceAfter *int   `json:"balance_after,omitempty"`
	State        string `json:"state,omitempty"`
	Betslips     int    `json:"betslips,omitempty"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

// Publisher emits metering events.
type Publisher interface {
	Publish(ctx context.Context, e Metering) error
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// NewKafkaWriter returns a writer keyed by account so one account's events stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Metering) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal metering event: %w", err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.AccountID),
		Value: b,
		Time:  time.UnixMilli(e.TsUnixMs),
	})
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Metering) error { return nil }
