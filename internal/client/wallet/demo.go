package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// DemoBackend é o subconjunto da API REST usado pelo modo demo
type DemoBackend interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	PlaceBet(ctx context.Context, req market.PlaceBetRequest) (market.PlaceBetResponse, error)
	Claim(ctx context.Context, req market.ClaimRequest) (market.ClaimResponse, error)
	CreateEvent(ctx context.Context, req market.CreateEventRequest) (market.Event, error)
	ResolveEvent(ctx context.Context, id int64, req market.ResolveEventRequest) (market.Event, error)
}

// Demo "assina" com a conta demo ativa: o backend é quem debita e credita os saldos.
type Demo struct {
	log *zap.Logger
	be  DemoBackend

	mu      sync.RWMutex
	address string
}

func NewDemo(log *zap.Logger, be DemoBackend) *Demo {
	return &Demo{log: log, be: be}
}

func (d *Demo) Name() string { return "demo" }

func (d *Demo) Connect(_ context.Context, acc accounts.Account) error {
	if acc.Address == "" {
		return apperr.Wallet("demo.connect", apperr.ErrNotConnected)
	}
	d.mu.Lock()
	d.address = acc.Address
	d.mu.Unlock()
	return nil
}

func (d *Demo) Disconnect() {
	d.mu.Lock()
	d.address = ""
	d.mu.Unlock()
}

func (d *Demo) Address() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.address
}

func (d *Demo) connected(op string) (string, error) {
	addr := d.Address()
	if addr == "" {
		return "", apperr.Wallet(op, apperr.ErrNotConnected)
	}
	return addr, nil
}

func (d *Demo) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return d.be.Balance(ctx, address)
}

func (d *Demo) PlaceBet(ctx context.Context, eventID int64, outcome bool, amount decimal.Decimal) (Receipt, error) {
	addr, err := d.connected("demo.place_bet")
	if err != nil {
		return Receipt{}, err
	}
	out, err := d.be.PlaceBet(ctx, market.PlaceBetRequest{EventID: eventID, Bettor: addr, Outcome: outcome, Amount: amount})
	if err != nil {
		return Receipt{}, err
	}
	bal := out.Balance
	return Receipt{TxRef: out.Bet.ID, Bet: &out.Bet, Event: &out.Event, Balance: &bal}, nil
}

func (d *Demo) Claim(ctx context.Context, eventID int64, _ []string) (Receipt, error) {
	addr, err := d.connected("demo.claim")
	if err != nil {
		return Receipt{}, err
	}
	out, err := d.be.Claim(ctx, market.ClaimRequest{EventID: eventID, Bettor: addr})
	if err != nil {
		return Receipt{}, err
	}
	ref := ""
	if len(out.ClaimedBetIDs) > 0 {
		ref = out.ClaimedBetIDs[0]
	}
	return Receipt{TxRef: ref, Payout: out.Payout, Balance: out.Balance}, nil
}

func (d *Demo) CreateEvent(ctx context.Context, name string, endTime int64) (Receipt, error) {
	addr, err := d.connected("demo.create_event")
	if err != nil {
		return Receipt{}, err
	}
	ev, err := d.be.CreateEvent(ctx, market.CreateEventRequest{Name: name, EndTime: endTime, AdminAddress: addr})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Event: &ev}, nil
}

func (d *Demo) ResolveEvent(ctx context.Context, eventID int64, outcome bool) (Receipt, error) {
	addr, err := d.connected("demo.resolve_event")
	if err != nil {
		return Receipt{}, err
	}
	ev, err := d.be.ResolveEvent(ctx, eventID, market.ResolveEventRequest{Outcome: outcome, AdminAddress: addr})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Event: &ev}, nil
}
