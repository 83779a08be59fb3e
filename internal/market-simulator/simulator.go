// Package simulator gera tráfego contra o market-service: contas demo apostam
// em eventos abertos e o admin cria eventos quando não há nenhum aberto.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Backend é o subconjunto do cliente HTTP usado pelo simulador
type Backend interface {
	Events(ctx context.Context) ([]market.Event, error)
	CreateEvent(ctx context.Context, req market.CreateEventRequest) (market.Event, error)
	PlaceBet(ctx context.Context, req market.PlaceBetRequest) (market.PlaceBetResponse, error)
}

// Catálogo fixo de mercados simulados
var eventCatalog = []string{
	"Will BTC close above $100k this month?",
	"Will the next mainnet upgrade ship on time?",
	"Will ETH gas average below 10 gwei this week?",
	"Will SOL flip BNB in market cap this quarter?",
}

type Simulator struct {
	Log     *zap.Logger
	Backend Backend
	Admin   string
	Bettors []string

	// Aposta entre MinStake e MaxStake, na unidade base da chain
	MinStake decimal.Decimal
	MaxStake decimal.Decimal
	Duration time.Duration // duração dos eventos criados
	Interval time.Duration

	Rand *rand.Rand
	Now  func() time.Time

	OnBet   func()
	OnEvent func()
	OnError func()

	created int
}

// Run executa Tick a cada Interval até o contexto acabar
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.Log.Warn("simulation tick failed", zap.Error(err))
			}
		}
	}
}

// Tick faz uma rodada: garante um evento aberto e uma aposta de cada bettor
func (s *Simulator) Tick(ctx context.Context) error {
	list, err := s.Backend.Events(ctx)
	if err != nil {
		s.fail()
		return err
	}
	now := s.now().Unix()
	open := make([]market.Event, 0, len(list))
	for _, ev := range list {
		if !ev.Resolved && ev.EndTime > now {
			open = append(open, ev)
		}
	}

	if len(open) == 0 {
		ev, err := s.Backend.CreateEvent(ctx, market.CreateEventRequest{
			Name:         eventCatalog[s.created%len(eventCatalog)],
			EndTime:      s.now().Add(s.Duration).Unix(),
			AdminAddress: s.Admin,
		})
		if err != nil {
			s.fail()
			return err
		}
		s.created++
		if s.OnEvent != nil {
			s.OnEvent()
		}
		s.Log.Info("simulated event created", zap.Int64("event_id", ev.ID), zap.String("name", ev.Name))
		open = append(open, ev)
	}

	for _, bettor := range s.Bettors {
		ev := open[s.Rand.Intn(len(open))]
		req := market.PlaceBetRequest{
			EventID: ev.ID,
			Bettor:  bettor,
			Outcome: s.Rand.Intn(2) == 0,
			Amount:  s.stake(),
		}
		if _, err := s.Backend.PlaceBet(ctx, req); err != nil {
			// saldo esgotado ou evento fechado não interrompem a rodada
			s.fail()
			s.Log.Debug("simulated bet rejected", zap.String("bettor", bettor), zap.Error(err))
			continue
		}
		if s.OnBet != nil {
			s.OnBet()
		}
	}
	return nil
}

// stake sorteia um valor inteiro em [MinStake, MaxStake], extremos inclusos
func (s *Simulator) stake() decimal.Decimal {
	span := s.MaxStake.Sub(s.MinStake).Floor()
	if !span.IsPositive() {
		return s.MinStake
	}
	if n := span.BigInt(); n.IsInt64() && n.Int64() < math.MaxInt64 {
		return s.MinStake.Add(decimal.NewFromInt(s.Rand.Int63n(n.Int64() + 1)))
	}
	return s.MinStake.Add(span.Mul(decimal.NewFromFloat(s.Rand.Float64())).Floor())
}

func (s *Simulator) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Simulator) fail() {
	if s.OnError != nil {
		s.OnError()
	}
}
