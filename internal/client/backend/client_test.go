package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 2*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch b := body.(type) {
	case string:
		_, _ = w.Write([]byte(b))
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

func TestEvents(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"eventId":1,"name":"Seed round closes?","endTime":1900000000,"resolved":false,"outcome":false,
			"totalYesBets":2,"totalNoBets":1,"totalYesAmount":"40","totalNoAmount":"30"}]`)
	})

	evs, err := c.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, int64(1), evs[0].ID)
	assert.True(t, evs[0].TotalYesAmount.Equal(decimal.NewFromInt(40)))
}

func TestEventNotFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events/9", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{"error":"Event not found"}`)
	})

	_, err := c.Event(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "Event not found")
}

func TestBalance(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accounts/HJo4gHiC3pMShSM5HYTwynb31FXMe2ocTVzUDX9kpHv7", r.URL.Path)
		writeJSON(w, http.StatusOK, market.AccountBalance{
			Address:         "HJo4gHiC3pMShSM5HYTwynb31FXMe2ocTVzUDX9kpHv7",
			Name:            "Alice",
			BalanceSOL:      90,
			BalanceLamports: decimal.RequireFromString("90000000000"),
		})
	})

	v, err := c.Balance(context.Background(), "HJo4gHiC3pMShSM5HYTwynb31FXMe2ocTVzUDX9kpHv7")
	require.NoError(t, err)
	assert.Equal(t, "90000000000", v.String())
}

func TestPlaceBetSendsBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bets", r.URL.Path)

		var req market.PlaceBetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1), req.EventID)
		assert.True(t, req.Outcome)
		assert.Equal(t, "10", req.Amount.String())

		writeJSON(w, http.StatusOK, market.PlaceBetResponse{
			Bet:     market.Bet{ID: "b1", EventID: "1", Bettor: req.Bettor, Outcome: true, Amount: req.Amount},
			Balance: decimal.NewFromInt(90),
		})
	})

	out, err := c.PlaceBet(context.Background(), market.PlaceBetRequest{
		EventID: 1, Bettor: "alice", Outcome: true, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", out.Bet.ID)
	assert.Equal(t, "90", out.Balance.String())
}

func TestBadRequestIsValidation(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"Insufficient balance"}`)
	})

	_, err := c.PlaceBet(context.Background(), market.PlaceBetRequest{EventID: 1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestServerErrorIsNetwork(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Stats(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}

func TestTransportErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Health(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}

func TestClaimAndResolve(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/3/resolve", func(w http.ResponseWriter, r *http.Request) {
		var req market.ResolveEventRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, market.Event{ID: 3, Resolved: true, Outcome: req.Outcome})
	})
	mux.HandleFunc("/api/bets/claim", func(w http.ResponseWriter, r *http.Request) {
		bal := decimal.NewFromInt(116)
		writeJSON(w, http.StatusOK, market.ClaimResponse{Payout: decimal.NewFromInt(16), ClaimedBetIDs: []string{"b1"}, Balance: &bal})
	})
	c := newServer(t, mux.ServeHTTP)

	ev, err := c.ResolveEvent(context.Background(), 3, market.ResolveEventRequest{Outcome: true, AdminAddress: "admin"})
	require.NoError(t, err)
	assert.True(t, ev.Resolved)
	assert.True(t, ev.Outcome)

	out, err := c.Claim(context.Background(), market.ClaimRequest{EventID: 3, Bettor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "16", out.Payout.String())
	require.NotNil(t, out.Balance)
	assert.Equal(t, "116", out.Balance.String())
}
