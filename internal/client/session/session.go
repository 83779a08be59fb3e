// Package session conduz o fluxo do cliente: ação do usuário -> mutação no registro
// ou no ledger -> atualização de saldo -> recomputação da visão dos eventos.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/client/balance"
	"github.com/radieske/foundersnet-market-poc/internal/client/ledger"
	"github.com/radieske/foundersnet-market-poc/internal/client/wallet"
	"github.com/radieske/foundersnet-market-poc/internal/eventview"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// ErrSuperseded indica que uma atualização mais nova do board já foi disparada
var ErrSuperseded = errors.New("board refresh superseded")

// Reader é a fonte de leitura de eventos e apostas
type Reader interface {
	Events(ctx context.Context) ([]market.Event, error)
	Event(ctx context.Context, id int64) (market.Event, error)
	UserBets(ctx context.Context, address string) ([]market.Bet, error)
}

type Deps struct {
	Log          *zap.Logger
	Registry     *accounts.Registry
	Balances     *balance.Cache
	Ledger       *ledger.Ledger
	Provider     wallet.Provider
	Reader       Reader
	Notifier     Notifier
	Chain        chainaddr.Chain
	AdminAddress string
	Now          func() time.Time
}

type Session struct {
	Deps

	mu       sync.Mutex
	inFlight map[string]struct{}

	gen  atomic.Uint64
	last atomic.Pointer[Board]
}

func New(d Deps) *Session {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = ZapNotifier{Log: d.Log}
	}
	return &Session{Deps: d, inFlight: make(map[string]struct{})}
}

// Start restaura o ledger, conecta a conta ativa e busca o saldo dela
func (s *Session) Start(ctx context.Context) error {
	if err := s.Ledger.Restore(); err != nil {
		s.Log.Warn("could not restore wallet bets", zap.Error(err))
	}
	acc := s.Registry.Active()
	if err := s.Provider.Connect(ctx, acc); err != nil {
		return err
	}
	s.refresh(ctx, acc.ID)
	return nil
}

func (s *Session) Active() accounts.Account { return s.Registry.Active() }

// IsAdmin compara o endereço ativo com o admin configurado seguindo as regras da chain
func (s *Session) IsAdmin() bool {
	return chainaddr.Equal(s.Chain, s.Registry.Active().Address, s.AdminAddress)
}

// SwitchAccount troca a conta ativa e reconecta o provider. Falha no saldo
// vira notificação; a troca continua valendo. Falha ao conectar desfaz a troca
// e reconecta a conta anterior.
func (s *Session) SwitchAccount(ctx context.Context, id string) (accounts.Account, error) {
	prev := s.Registry.Active()
	acc, err := s.Registry.SwitchActive(id)
	if err != nil {
		return accounts.Account{}, err
	}
	s.Provider.Disconnect()
	if err := s.Provider.Connect(ctx, acc); err != nil {
		s.notifyErr("Wallet", err)
		s.restore(ctx, prev)
		return prev, err
	}
	s.refresh(ctx, acc.ID)
	s.Notifier.Notify(Notice{Level: LevelInfo, Title: "Account switched", Message: acc.DisplayName})
	return acc, nil
}

func (s *Session) restore(ctx context.Context, prev accounts.Account) {
	if _, err := s.Registry.SwitchActive(prev.ID); err != nil {
		s.Log.Error("could not restore previous account", zap.String("id", prev.ID), zap.Error(err))
		return
	}
	if err := s.Provider.Connect(ctx, prev); err != nil {
		s.Log.Warn("could not reconnect previous account", zap.String("id", prev.ID), zap.Error(err))
	}
}

// RefreshBalance atualiza o saldo da conta ativa
func (s *Session) RefreshBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.Balances.Refresh(ctx, s.Registry.Active().ID)
}

func (s *Session) Balance() decimal.Decimal {
	return s.Balances.Cached(s.Registry.Active().ID)
}

// Stats resume o ledger da conta ativa
func (s *Session) Stats() ledger.Stats {
	return s.Ledger.StatsFor(s.Registry.Active().Address)
}

type BetResult struct {
	Receipt         wallet.Receipt
	Event           market.Event
	PotentialReturn decimal.Decimal
	Balance         decimal.Decimal
	Previous        ledger.Choice // escolha anterior, quando a aposta substituiu outra
}

// PlaceBet valida localmente antes de qualquer chamada de rede e rejeita
// chamadas reentrantes para o mesmo par conta/evento.
func (s *Session) PlaceBet(ctx context.Context, eventID int64, choice ledger.Choice, amount decimal.Decimal) (BetResult, error) {
	const op = "session.place_bet"
	if choice == "" {
		return BetResult{}, apperr.Validation(op, "outcome must be selected")
	}
	if choice != ledger.Yes && choice != ledger.No {
		return BetResult{}, apperr.Validation(op, "invalid outcome %q", choice)
	}
	if !amount.IsPositive() {
		return BetResult{}, apperr.Validation(op, "bet amount must be greater than zero")
	}

	acc := s.Registry.Active()
	release, err := s.acquire(acc.ID, eventID)
	if err != nil {
		return BetResult{}, err
	}
	defer release()

	ev, err := s.Reader.Event(ctx, eventID)
	if err != nil {
		return BetResult{}, err
	}
	if st := eventview.StatusOf(ev, s.Now()); !eventview.AcceptsBets(st) {
		return BetResult{}, apperr.Validation(op, "event %d is %s", eventID, st)
	}
	if bal := s.Balances.Cached(acc.ID); amount.GreaterThan(bal) {
		return BetResult{}, apperr.Validation(op, "insufficient balance: %s available", chainaddr.Format(s.Chain, bal))
	}

	preview := eventview.PotentialReturn(ev.Pool(), amount, choice.Bool())
	rcpt, err := s.Provider.PlaceBet(ctx, eventID, choice.Bool(), amount)
	if err != nil {
		s.notifyErr("Bet failed", err)
		return BetResult{}, err
	}

	res := BetResult{Receipt: rcpt, Event: ev, PotentialReturn: preview}
	if rcpt.Event != nil && rcpt.Event.ID == eventID {
		res.Event = *rcpt.Event
	}

	prev, replaced, err := s.Ledger.RecordBet(acc.Address, eventID, choice)
	if err != nil {
		return res, err
	}
	if replaced && prev != choice {
		res.Previous = prev
		s.Log.Warn("bet choice replaced", zap.Int64("event_id", eventID),
			zap.String("from", string(prev)), zap.String("to", string(choice)))
	}
	if err := s.Ledger.Snapshot(); err != nil {
		s.Log.Warn("could not persist wallet bets", zap.Error(err))
	}

	res.Balance = s.balanceAfter(ctx, acc.ID, rcpt)
	s.Notifier.Notify(Notice{
		Level: LevelSuccess,
		Title: "Bet placed",
		Message: fmt.Sprintf("%s on %s for event #%d, potential return %s",
			chainaddr.Format(s.Chain, amount), choice, eventID, chainaddr.Format(s.Chain, preview)),
	})
	return res, nil
}

type ClaimResult struct {
	Receipt wallet.Receipt
	BetIDs  []string
	Payout  decimal.Decimal
	Balance decimal.Decimal
}

// Claim resgata todas as apostas vencedoras ainda não resgatadas da conta ativa no evento
func (s *Session) Claim(ctx context.Context, eventID int64) (ClaimResult, error) {
	const op = "session.claim"
	acc := s.Registry.Active()
	release, err := s.acquire(acc.ID, eventID)
	if err != nil {
		return ClaimResult{}, err
	}
	defer release()

	ev, err := s.Reader.Event(ctx, eventID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !ev.Resolved {
		return ClaimResult{}, apperr.Validation(op, "event %d is not resolved", eventID)
	}
	bets, err := s.Reader.UserBets(ctx, acc.Address)
	if err != nil {
		return ClaimResult{}, err
	}

	var (
		ids      []string
		expected = decimal.Zero
	)
	evKey := strconv.FormatInt(eventID, 10)
	for _, b := range bets {
		if b.EventID != evKey || !eventview.Claimable(ev, b) {
			continue
		}
		ids = append(ids, b.ID)
		expected = expected.Add(eventview.ClaimPayout(ev, b))
	}
	if len(ids) == 0 {
		return ClaimResult{}, apperr.Validation(op, "no winning bets to claim on event %d", eventID)
	}

	rcpt, err := s.Provider.Claim(ctx, eventID, ids)
	if err != nil {
		s.notifyErr("Claim failed", err)
		return ClaimResult{}, err
	}
	payout := rcpt.Payout
	if payout.IsZero() {
		payout = expected
	}
	res := ClaimResult{Receipt: rcpt, BetIDs: ids, Payout: payout, Balance: s.balanceAfter(ctx, acc.ID, rcpt)}
	s.Notifier.Notify(Notice{
		Level:   LevelSuccess,
		Title:   "Winnings claimed",
		Message: fmt.Sprintf("%s from %d bet(s) on event #%d", chainaddr.Format(s.Chain, payout), len(ids), eventID),
	})
	return res, nil
}

func (s *Session) CreateEvent(ctx context.Context, name string, endTime int64) (market.Event, error) {
	const op = "session.create_event"
	if !s.IsAdmin() {
		return market.Event{}, apperr.Validation(op, "only the admin can create events")
	}
	if name == "" {
		return market.Event{}, apperr.Validation(op, "event name is required")
	}
	if endTime <= s.Now().Unix() {
		return market.Event{}, apperr.Validation(op, "end time must be in the future")
	}
	rcpt, err := s.Provider.CreateEvent(ctx, name, endTime)
	if err != nil {
		s.notifyErr("Create event failed", err)
		return market.Event{}, err
	}
	ev := market.Event{Name: name, EndTime: endTime, Creator: s.Registry.Active().Address}
	if rcpt.Event != nil {
		ev = *rcpt.Event
	}
	s.Notifier.Notify(Notice{Level: LevelSuccess, Title: "Event created", Message: name})
	return ev, nil
}

// ResolveEvent é terminal: evento já resolvido não muda de resultado
func (s *Session) ResolveEvent(ctx context.Context, eventID int64, outcome bool) (market.Event, error) {
	const op = "session.resolve_event"
	if !s.IsAdmin() {
		return market.Event{}, apperr.Validation(op, "only the admin can resolve events")
	}
	ev, err := s.Reader.Event(ctx, eventID)
	if err != nil {
		return market.Event{}, err
	}
	if ev.Resolved {
		return ev, apperr.Validation(op, "event %d is already resolved", eventID)
	}
	rcpt, err := s.Provider.ResolveEvent(ctx, eventID, outcome)
	if err != nil {
		s.notifyErr("Resolve failed", err)
		return market.Event{}, err
	}
	if rcpt.Event != nil {
		ev = *rcpt.Event
	} else {
		ev.Resolved, ev.Outcome = true, outcome
	}
	s.Notifier.Notify(Notice{
		Level:   LevelSuccess,
		Title:   "Event resolved",
		Message: fmt.Sprintf("event #%d resolved %s", eventID, ledger.ChoiceOf(outcome)),
	})
	return ev, nil
}

// refresh atualiza o saldo e transforma falha em notificação, devolvendo o valor em cache
func (s *Session) refresh(ctx context.Context, accountID string) decimal.Decimal {
	v, err := s.Balances.Refresh(ctx, accountID)
	if err != nil {
		s.notifyErr("Balance", err)
	}
	return v
}

// balanceAfter atualiza o saldo depois de uma transação. Se o refresh falhar,
// usa o saldo devolvido no recibo; o cache continua com o valor antigo.
func (s *Session) balanceAfter(ctx context.Context, accountID string, rcpt wallet.Receipt) decimal.Decimal {
	v, err := s.Balances.Refresh(ctx, accountID)
	if err == nil {
		return v
	}
	s.notifyErr("Balance", err)
	if rcpt.Balance != nil {
		return *rcpt.Balance
	}
	return v
}

func (s *Session) notifyErr(title string, err error) {
	lvl := LevelError
	if apperr.Is(err, apperr.KindNetwork) {
		lvl = LevelWarn
	}
	s.Notifier.Notify(Notice{Level: lvl, Title: title, Message: err.Error()})
}

// acquire marca a requisição em andamento para o par conta/evento
func (s *Session) acquire(accountID string, eventID int64) (func(), error) {
	key := accountID + "/" + strconv.FormatInt(eventID, 10)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return nil, apperr.Validation("session.in_flight", "a request for event %d is already in progress", eventID)
	}
	s.inFlight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}, nil
}

// Row é uma linha do board de eventos já com os campos derivados
type Row struct {
	Event     market.Event
	Status    eventview.Status
	YesPct    decimal.Decimal
	NoPct     decimal.Decimal
	TimeLeft  time.Duration
	YesReturn decimal.Decimal // retorno potencial de PreviewStake em SIM
	NoReturn  decimal.Decimal
	Choice    ledger.Choice // escolha registrada pela conta ativa, se houver
}

type Board struct {
	Account      accounts.Account
	Balance      decimal.Decimal
	BalanceErr   error
	PreviewStake decimal.Decimal
	Rows         []Row
	Generation   uint64
}

// Board busca os eventos e o saldo em paralelo. Se outra chamada começou
// depois desta, o resultado é descartado com ErrSuperseded.
func (s *Session) Board(ctx context.Context, previewStake decimal.Decimal) (Board, error) {
	gen := s.gen.Add(1)
	acc := s.Registry.Active()

	var (
		events []market.Event
		bal    decimal.Decimal
		balErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.Reader.Events(gctx)
		return err
	})
	g.Go(func() error {
		// saldo com falha não derruba o board
		bal, balErr = s.Balances.Refresh(gctx, acc.ID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}
	if s.gen.Load() != gen {
		return Board{}, ErrSuperseded
	}

	now := s.Now()
	b := Board{Account: acc, Balance: bal, BalanceErr: balErr, PreviewStake: previewStake, Generation: gen}
	for _, ev := range events {
		pool := ev.Pool()
		yes, no := eventview.Odds(pool)
		row := Row{
			Event:    ev,
			Status:   eventview.StatusOf(ev, now),
			YesPct:   yes,
			NoPct:    no,
			TimeLeft: eventview.TimeLeft(ev, now),
		}
		if previewStake.IsPositive() {
			row.YesReturn = eventview.PotentialReturn(pool, previewStake, true)
			row.NoReturn = eventview.PotentialReturn(pool, previewStake, false)
		}
		if c, ok := s.Ledger.ChoiceFor(acc.Address, ev.ID); ok {
			row.Choice = c
		}
		b.Rows = append(b.Rows, row)
	}
	s.last.Store(&b)
	return b, nil
}

// LastBoard devolve o último board aplicado, se houver
func (s *Session) LastBoard() (Board, bool) {
	b := s.last.Load()
	if b == nil {
		return Board{}, false
	}
	return *b, true
}
