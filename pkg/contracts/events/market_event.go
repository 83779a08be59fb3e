package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Tipos de MarketEvent; coincidem com os nomes dos tópicos
const (
	TypeEventCreated  = "event_created"
	TypeBetPlaced     = "bet_placed"
	TypeEventResolved = "event_resolved"
	TypeBetClaimed    = "bet_claimed"
)

// MarketEvent é publicado pelo market-service a cada mutação de mercado.
// Event carrega o snapshot do evento já com os agregados atualizados.
type MarketEvent struct {
	MessageID string          `json:"message_id"`
	Type      string          `json:"type"`
	EventID   int64           `json:"event_id"`
	Event     market.Event    `json:"event"`
	Address   string          `json:"address,omitempty"` // apostador ou admin
	Amount    decimal.Decimal `json:"amount"`            // stake ou payout
	BetIDs    []string        `json:"bet_ids,omitempty"`
	Ts        time.Time       `json:"ts"`
}
