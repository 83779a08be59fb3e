package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
)

func TestInsertActivity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Unix(1_700_000_000, 0).UTC()
	mock.ExpectExec(`INSERT INTO market_activity`).
		WithArgs("m-1", events.TypeEventCreated, int64(3), sql.NullString{}, sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`ON CONFLICT \(message_id\) DO NOTHING`).
		WithArgs("m-2", events.TypeBetPlaced, int64(3), "alice", sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewPostgresRepo(db)
	require.NoError(t, r.InsertActivity(context.Background(), events.MarketEvent{MessageID: "m-1", Type: events.TypeEventCreated, EventID: 3, Ts: ts}))
	require.NoError(t, r.InsertActivity(context.Background(), events.MarketEvent{
		MessageID: "m-2", Type: events.TypeBetPlaced, EventID: 3, Address: "alice", Amount: decimal.NewFromInt(5), Ts: ts,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
