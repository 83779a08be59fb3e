package repository

import (
	"context"
	"database/sql"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
)

// PostgresRepo grava o histórico de atividade de mercado
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertActivity registra o evento em market_activity.
// message_id é único: reentregas do Kafka não duplicam linhas.
func (r *PostgresRepo) InsertActivity(ctx context.Context, e events.MarketEvent) error {
	const q = `
		INSERT INTO market_activity
		  (message_id, type, event_id, address, amount, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (message_id) DO NOTHING
	`
	var addr sql.NullString
	if e.Address != "" {
		addr = sql.NullString{String: e.Address, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, q,
		e.MessageID, e.Type, e.EventID, addr, e.Amount, e.Ts,
	)
	return err
}
