package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/foundersnet-market-poc/internal/eventview"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Postgres implementa contas, eventos e apostas do backend demo
type Postgres struct {
	db          *sql.DB
	seedBalance decimal.Decimal
	now         func() time.Time
}

// NewPostgres usa seedBalance para contas criadas sob demanda
func NewPostgres(db *sql.DB, seedBalance decimal.Decimal) *Postgres {
	return &Postgres{db: db, seedBalance: seedBalance, now: time.Now}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEventClosed       = errors.New("event closed for betting")
	ErrAlreadyResolved   = errors.New("event already resolved")
	ErrNotResolved       = errors.New("event not resolved")
	ErrUnknownBettor     = errors.New("bettor has no account")
)

// Account é uma conta demo com saldo na unidade base
type Account struct {
	Address string
	Name    string
	Balance decimal.Decimal
}

// ClaimResult resume um resgate; BetIDs vazio quando não havia aposta vencedora pendente
type ClaimResult struct {
	Payout  decimal.Decimal
	BetIDs  []string
	Balance decimal.Decimal
	Event   market.Event
	Winning bool // havia aposta vencedora (resgatada agora ou antes)
}

const eventColumns = `id, name, end_time, resolved, outcome, total_yes_bets, total_no_bets, total_yes_amount, total_no_amount, creator`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (market.Event, error) {
	var ev market.Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.EndTime, &ev.Resolved, &ev.Outcome,
		&ev.TotalYesBets, &ev.TotalNoBets, &ev.TotalYesAmount, &ev.TotalNoAmount, &ev.Creator)
	if errors.Is(err, sql.ErrNoRows) {
		return ev, ErrNotFound
	}
	return ev, err
}

func scanBet(row rowScanner) (market.Bet, error) {
	var (
		b           market.Bet
		id, eventID int64
	)
	if err := row.Scan(&id, &eventID, &b.Bettor, &b.Outcome, &b.Amount, &b.Claimed); err != nil {
		return b, err
	}
	b.ID = strconv.FormatInt(id, 10)
	b.EventID = strconv.FormatInt(eventID, 10)
	return b, nil
}

// SeedAccounts cria as contas que ainda não existem, registrando SEED no ledger
func (p *Postgres) SeedAccounts(ctx context.Context, accounts []Account) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range accounts {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts(address, name, balance, version) VALUES($1,$2,$3,1) ON CONFLICT (address) DO NOTHING`,
			a.Address, a.Name, a.Balance)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO account_ledger(address, operation_type, amount, description) VALUES($1,'SEED',$2,$3)`,
			a.Address, a.Balance, "seed:"+a.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT address, name, balance FROM accounts ORDER BY created_at, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Address, &a.Name, &a.Balance); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) GetAccount(ctx context.Context, address string) (Account, error) {
	a := Account{Address: address}
	err := p.db.QueryRowContext(ctx, `SELECT name, balance FROM accounts WHERE address=$1`, address).Scan(&a.Name, &a.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (p *Postgres) ListEvents(ctx context.Context) ([]market.Event, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []market.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *Postgres) GetEvent(ctx context.Context, id int64) (market.Event, error) {
	return scanEvent(p.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1`, id))
}

func (p *Postgres) CreateEvent(ctx context.Context, name string, endTime int64, creator string) (market.Event, error) {
	return scanEvent(p.db.QueryRowContext(ctx,
		`INSERT INTO events(name, end_time, creator) VALUES($1,$2,$3) RETURNING `+eventColumns,
		name, endTime, creator))
}

// PlaceBet debita o apostador e atualiza os agregados do evento na mesma transação.
// Apostador desconhecido ganha uma conta com o saldo inicial.
func (p *Postgres) PlaceBet(ctx context.Context, eventID int64, bettor string, outcome bool, amount decimal.Decimal) (market.Bet, decimal.Decimal, market.Event, error) {
	var (
		bet market.Bet
		ev  market.Event
	)
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return bet, decimal.Zero, ev, err
	}
	defer tx.Rollback()

	if ev, err = scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1 FOR UPDATE`, eventID)); err != nil {
		return bet, decimal.Zero, ev, err
	}
	switch eventview.StatusOf(ev, p.now()) {
	case eventview.StatusResolved:
		return bet, decimal.Zero, ev, ErrAlreadyResolved
	case eventview.StatusClosed:
		return bet, decimal.Zero, ev, ErrEventClosed
	}

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE address=$1 FOR UPDATE`, bettor).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err = tx.ExecContext(ctx, `INSERT INTO accounts(address, name, balance, version) VALUES($1,$2,$3,1)`,
			bettor, "User "+shortAddr(bettor), p.seedBalance); err != nil {
			return bet, decimal.Zero, ev, err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO account_ledger(address, operation_type, amount, description) VALUES($1,'SEED',$2,$3)`,
			bettor, p.seedBalance, "seed:auto"); err != nil {
			return bet, decimal.Zero, ev, err
		}
		balance = p.seedBalance
	} else if err != nil {
		return bet, decimal.Zero, ev, err
	}

	if balance.LessThan(amount) {
		return bet, balance, ev, ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx, `UPDATE accounts SET balance = balance - $1, version = version + 1 WHERE address=$2`, amount, bettor); err != nil {
		return bet, decimal.Zero, ev, err
	}

	if bet, err = scanBet(tx.QueryRowContext(ctx,
		`INSERT INTO bets(event_id, bettor, outcome, amount) VALUES($1,$2,$3,$4) RETURNING id, event_id, bettor, outcome, amount, claimed`,
		eventID, bettor, outcome, amount)); err != nil {
		return bet, decimal.Zero, ev, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO account_ledger(address, operation_type, amount, description) VALUES($1,'DEBIT',$2,$3)`,
		bettor, amount, "bet:"+bet.ID); err != nil {
		return bet, decimal.Zero, ev, err
	}

	aggregate := `UPDATE events SET total_no_bets = total_no_bets + 1, total_no_amount = total_no_amount + $1 WHERE id=$2 RETURNING ` + eventColumns
	if outcome {
		aggregate = `UPDATE events SET total_yes_bets = total_yes_bets + 1, total_yes_amount = total_yes_amount + $1 WHERE id=$2 RETURNING ` + eventColumns
	}
	if ev, err = scanEvent(tx.QueryRowContext(ctx, aggregate, amount, eventID)); err != nil {
		return bet, decimal.Zero, ev, err
	}

	if err = tx.Commit(); err != nil {
		return bet, decimal.Zero, ev, err
	}
	return bet, balance.Sub(amount), ev, nil
}

// ResolveEvent fixa o resultado; uma segunda resolução é rejeitada
func (p *Postgres) ResolveEvent(ctx context.Context, id int64, outcome bool) (market.Event, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return market.Event{}, err
	}
	defer tx.Rollback()

	var resolved bool
	if err = tx.QueryRowContext(ctx, `SELECT resolved FROM events WHERE id=$1 FOR UPDATE`, id).Scan(&resolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Event{}, ErrNotFound
		}
		return market.Event{}, err
	}
	if resolved {
		return market.Event{}, ErrAlreadyResolved
	}

	ev, err := scanEvent(tx.QueryRowContext(ctx,
		`UPDATE events SET resolved = TRUE, outcome = $1 WHERE id=$2 RETURNING `+eventColumns, outcome, id))
	if err != nil {
		return ev, err
	}
	return ev, tx.Commit()
}

// Claim paga todas as apostas vencedoras ainda não resgatadas do apostador no evento.
// Idempotente: apostas já pagas não entram de novo.
func (p *Postgres) Claim(ctx context.Context, eventID int64, bettor string) (ClaimResult, error) {
	var res ClaimResult
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	if res.Event, err = scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1 FOR UPDATE`, eventID)); err != nil {
		return res, err
	}
	if !res.Event.Resolved {
		return res, ErrNotResolved
	}

	if err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE address=$1 FOR UPDATE`, bettor).Scan(&res.Balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, ErrUnknownBettor
		}
		return res, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, event_id, bettor, outcome, amount, claimed FROM bets WHERE event_id=$1 AND bettor=$2 AND outcome=$3 FOR UPDATE`,
		eventID, bettor, res.Event.Outcome)
	if err != nil {
		return res, err
	}
	var ids []int64
	res.Payout = decimal.Zero
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			rows.Close()
			return res, err
		}
		res.Winning = true
		if !eventview.Claimable(res.Event, b) {
			continue
		}
		id, _ := strconv.ParseInt(b.ID, 10, 64)
		ids = append(ids, id)
		res.BetIDs = append(res.BetIDs, b.ID)
		res.Payout = res.Payout.Add(eventview.ClaimPayout(res.Event, b))
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return res, err
	}

	if len(ids) == 0 {
		return res, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, `UPDATE bets SET claimed = TRUE WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return res, err
	}
	if err = tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1, version = version + 1 WHERE address=$2 RETURNING balance`,
		res.Payout, bettor).Scan(&res.Balance); err != nil {
		return res, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO account_ledger(address, operation_type, amount, description) VALUES($1,'CREDIT',$2,$3)`,
		bettor, res.Payout, "claim:"+strconv.FormatInt(eventID, 10)); err != nil {
		return res, err
	}

	return res, tx.Commit()
}

func (p *Postgres) EventBets(ctx context.Context, eventID int64) ([]market.Bet, error) {
	return p.queryBets(ctx, `SELECT id, event_id, bettor, outcome, amount, claimed FROM bets WHERE event_id=$1 ORDER BY id`, eventID)
}

func (p *Postgres) UserBets(ctx context.Context, address string) ([]market.Bet, error) {
	return p.queryBets(ctx, `SELECT id, event_id, bettor, outcome, amount, claimed FROM bets WHERE bettor=$1 ORDER BY id`, address)
}

func (p *Postgres) queryBets(ctx context.Context, q string, arg any) ([]market.Bet, error) {
	rows, err := p.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []market.Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Stats devolve contagem de eventos, apostas e volume total apostado
func (p *Postgres) Stats(ctx context.Context) (market.Stats, error) {
	var s market.Stats
	err := p.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM events), (SELECT COUNT(*) FROM bets), (SELECT COALESCE(SUM(amount), 0) FROM bets)`).
		Scan(&s.EventCount, &s.BetCount, &s.TotalVolume)
	return s, err
}

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func shortAddr(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
