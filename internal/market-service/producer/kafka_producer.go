package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica MarketEvent no tópico do seu tipo, com o id do evento como chave
type KafkaPublisher struct {
	Writer MessageWriter
	Topics map[string]string // tipo -> tópico
}

func NewKafkaPublisher(w MessageWriter, topics map[string]string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: topics}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e events.MarketEvent) error {
	if e.MessageID == "" {
		e.MessageID = uuid.NewString()
	}
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	topic, ok := p.Topics[e.Type]
	if !ok {
		topic = e.Type
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(e.EventID, 10)),
		Value: b,
		Time:  e.Ts,
	})
}
