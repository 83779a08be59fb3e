// Package eventview deriva o status de exibição e as estimativas de retorno
// de um evento a partir dos registros crus do backend.
package eventview

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusClosed   Status = "CLOSED"
	StatusResolved Status = "RESOLVED"
)

// StatusOf segue a máquina de estados OPEN -> CLOSED (tempo) -> RESOLVED (admin).
// Resolved vence qualquer horário.
func StatusOf(ev market.Event, now time.Time) Status {
	if ev.Resolved {
		return StatusResolved
	}
	if now.Unix() >= ev.EndTime {
		return StatusClosed
	}
	return StatusOpen
}

// AcceptsBets: CLOSED e RESOLVED bloqueiam novas apostas
func AcceptsBets(s Status) bool { return s == StatusOpen }

// PotentialReturn é o rateio pari-mutuel com pool constante:
// stake × (total + stake) / (lado escolhido + stake).
// Se o lado escolhido ainda não tem nada apostado, devolve o próprio stake.
func PotentialReturn(pool market.Pool, stake decimal.Decimal, side bool) decimal.Decimal {
	sidePool := pool.Side(side)
	if sidePool.IsZero() {
		return stake
	}
	total := pool.Total().Add(stake)
	return stake.Mul(total).Div(sidePool.Add(stake))
}

// Claimable indica se a aposta pode ser resgatada agora
func Claimable(ev market.Event, bet market.Bet) bool {
	return ev.Resolved && !bet.Claimed && bet.Outcome == ev.Outcome
}

// ClaimPayout calcula o pagamento de uma aposta vencedora:
// amount × total / pool vencedor, truncado para a unidade base.
// Aposta perdedora, já resgatada ou de evento não resolvido paga zero.
func ClaimPayout(ev market.Event, bet market.Bet) decimal.Decimal {
	if !Claimable(ev, bet) {
		return decimal.Zero
	}
	pool := ev.Pool()
	winning := pool.Side(ev.Outcome)
	if winning.IsZero() {
		return bet.Amount
	}
	return bet.Amount.Mul(pool.Total()).Div(winning).Floor()
}

// Odds devolve a fatia percentual de SIM e NÃO no pool; 50/50 quando vazio
func Odds(pool market.Pool) (yesPct, noPct decimal.Decimal) {
	total := pool.Total()
	if total.IsZero() {
		half := decimal.NewFromInt(50)
		return half, half
	}
	hundred := decimal.NewFromInt(100)
	yesPct = pool.Yes.Mul(hundred).Div(total).Round(2)
	return yesPct, hundred.Sub(yesPct)
}

// TimeLeft é o tempo restante até o fechamento; zero se já fechou
func TimeLeft(ev market.Event, now time.Time) time.Duration {
	left := time.Unix(ev.EndTime, 0).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
