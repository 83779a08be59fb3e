// Package market contém os tipos trafegados entre o backend demo e os clientes.
// Os nomes JSON seguem o contrato do backend web; valores monetários
// são inteiros na unidade base da chain (lamports, wei, microalgos) serializados como string.
package market

import "github.com/shopspring/decimal"

// Event é um mercado binário SIM/NÃO
type Event struct {
	ID             int64           `json:"eventId"`
	Name           string          `json:"name"`
	EndTime        int64           `json:"endTime"` // unix segundos
	Resolved       bool            `json:"resolved"`
	Outcome        bool            `json:"outcome"` // só tem significado quando Resolved
	TotalYesBets   int64           `json:"totalYesBets"`
	TotalNoBets    int64           `json:"totalNoBets"`
	TotalYesAmount decimal.Decimal `json:"totalYesAmount"`
	TotalNoAmount  decimal.Decimal `json:"totalNoAmount"`
	Creator        string          `json:"creator,omitempty"`
}

// Pool agregado do evento
func (e Event) Pool() Pool {
	return Pool{Yes: e.TotalYesAmount, No: e.TotalNoAmount}
}

// Pool é o total apostado em cada lado
type Pool struct {
	Yes decimal.Decimal
	No  decimal.Decimal
}

func (p Pool) Total() decimal.Decimal { return p.Yes.Add(p.No) }

// Side devolve o total do lado escolhido (true = SIM)
func (p Pool) Side(outcome bool) decimal.Decimal {
	if outcome {
		return p.Yes
	}
	return p.No
}

type Bet struct {
	ID      string          `json:"betId"`
	EventID string          `json:"eventId"`
	Bettor  string          `json:"bettor"`
	Outcome bool            `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
	Claimed bool            `json:"claimed"`
}

// AccountBalance é a resposta de GET /api/accounts/:address
type AccountBalance struct {
	Address         string          `json:"address"`
	Name            string          `json:"name"`
	BalanceSOL      float64         `json:"balanceSOL"`
	BalanceLamports decimal.Decimal `json:"balanceLamports"`
}

type CreateEventRequest struct {
	Name         string `json:"name"`
	EndTime      int64  `json:"endTime"`
	AdminAddress string `json:"adminAddress"`
}

type PlaceBetRequest struct {
	EventID int64           `json:"eventId"`
	Bettor  string          `json:"bettor"`
	Outcome bool            `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
}

type PlaceBetResponse struct {
	Bet     Bet             `json:"bet"`
	Balance decimal.Decimal `json:"balance"`
	Event   Event           `json:"event"`
}

type ResolveEventRequest struct {
	Outcome      bool   `json:"outcome"`
	AdminAddress string `json:"adminAddress"`
}

type ClaimRequest struct {
	EventID int64  `json:"eventId"`
	Bettor  string `json:"bettor"`
}

type ClaimResponse struct {
	Payout        decimal.Decimal  `json:"payout"`
	ClaimedBetIDs []string         `json:"claimedBetIds"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	Message       string           `json:"message,omitempty"`
}

type Stats struct {
	EventCount  int64           `json:"eventCount"`
	BetCount    int64           `json:"betCount"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	Network     string          `json:"network"`
}

type Health struct {
	Status    string `json:"status"`
	Network   string `json:"network"`
	Demo      bool   `json:"demo"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse é o corpo de erro padrão da API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
