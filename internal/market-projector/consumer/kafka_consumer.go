package consumer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Reader é o subconjunto de *kafka.Reader usado pelo Processor
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Repo interface {
	InsertActivity(ctx context.Context, e events.MarketEvent) error
}

type Cache interface {
	Set(ctx context.Context, ev market.Event) error
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome MarketEvent do Kafka, atualiza o snapshot no Redis,
// grava o histórico e repassa a mudança ao websocket via Pub/Sub.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log         *zap.Logger
	Reader      Reader
	Repo        Repo
	Cache       Cache
	Broadcaster Broadcaster
	Channel     string

	OnConsumed  func()       // métricas (counter++)
	OnCached    func()       // métricas
	OnPersist   func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m.Value)
	}
}

// Handle processa uma mensagem; falha em uma etapa não impede as seguintes,
// exceto payload inválido que é descartado.
func (p *Processor) Handle(ctx context.Context, value []byte) {
	var ev events.MarketEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.EventID == 0 {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return
	}

	// snapshot do evento já com os agregados novos
	if err := p.Cache.Set(ctx, ev.Event); err != nil {
		p.Log.Warn("redis set failed", zap.Int64("event_id", ev.EventID), zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}

	if err := p.Repo.InsertActivity(ctx, ev); err != nil {
		p.Log.Warn("db insert activity failed", zap.String("message_id", ev.MessageID), zap.Error(err))
		p.fail("db_activity")
	} else if p.OnPersist != nil {
		p.OnPersist()
	}

	b, _ := json.Marshal(market.WSUpdate{EventID: strconv.FormatInt(ev.EventID, 10), Payload: value})
	bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(bctx, p.Channel, b); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
