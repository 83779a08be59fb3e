package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/market-service/repo"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

const (
	admin = "3Nv4rUUkigbtqYJomNvRSKiBRLUMPaxdqWdvFU2777uT"
	now   = 1_700_000_000
)

type fakeStore struct {
	events   map[int64]market.Event
	accounts map[string]repo.Account
	claim    repo.ClaimResult
	betErr   error
	gets     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: map[int64]market.Event{
			1: {ID: 1, Name: "Will it rain?", EndTime: now + 3600, TotalYesAmount: decimal.NewFromInt(40), TotalNoAmount: decimal.NewFromInt(30)},
		},
		accounts: map[string]repo.Account{
			"alice": {Address: "alice", Name: "Alice", Balance: decimal.NewFromInt(2_500_000_000)},
		},
	}
}

func (f *fakeStore) ListEvents(context.Context) ([]market.Event, error) {
	return []market.Event{f.events[1]}, nil
}

func (f *fakeStore) GetEvent(_ context.Context, id int64) (market.Event, error) {
	f.gets++
	ev, ok := f.events[id]
	if !ok {
		return ev, repo.ErrNotFound
	}
	return ev, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, name string, endTime int64, creator string) (market.Event, error) {
	ev := market.Event{ID: 2, Name: name, EndTime: endTime, Creator: creator}
	f.events[2] = ev
	return ev, nil
}

func (f *fakeStore) PlaceBet(_ context.Context, eventID int64, bettor string, outcome bool, amount decimal.Decimal) (market.Bet, decimal.Decimal, market.Event, error) {
	if f.betErr != nil {
		return market.Bet{}, decimal.Zero, market.Event{}, f.betErr
	}
	ev := f.events[eventID]
	ev.TotalYesAmount = ev.TotalYesAmount.Add(amount)
	return market.Bet{ID: "9", EventID: "1", Bettor: bettor, Outcome: outcome, Amount: amount}, decimal.NewFromInt(90), ev, nil
}

func (f *fakeStore) ResolveEvent(_ context.Context, id int64, outcome bool) (market.Event, error) {
	ev := f.events[id]
	if ev.Resolved {
		return ev, repo.ErrAlreadyResolved
	}
	ev.Resolved, ev.Outcome = true, outcome
	f.events[id] = ev
	return ev, nil
}

func (f *fakeStore) Claim(context.Context, int64, string) (repo.ClaimResult, error) {
	return f.claim, nil
}

func (f *fakeStore) EventBets(context.Context, int64) ([]market.Bet, error) {
	return []market.Bet{}, nil
}
func (f *fakeStore) UserBets(context.Context, string) ([]market.Bet, error) {
	return []market.Bet{}, nil
}

func (f *fakeStore) Stats(context.Context) (market.Stats, error) {
	return market.Stats{EventCount: 1, BetCount: 2, TotalVolume: decimal.NewFromInt(70)}, nil
}

func (f *fakeStore) ListAccounts(context.Context) ([]repo.Account, error) {
	return []repo.Account{f.accounts["alice"]}, nil
}

func (f *fakeStore) GetAccount(_ context.Context, address string) (repo.Account, error) {
	a, ok := f.accounts[address]
	if !ok {
		return a, repo.ErrNotFound
	}
	return a, nil
}

type memCache struct{ m map[int64]market.Event }

func (c *memCache) Get(_ context.Context, id int64) (market.Event, bool, error) {
	ev, ok := c.m[id]
	return ev, ok, nil
}

func (c *memCache) Set(_ context.Context, ev market.Event) error {
	c.m[ev.ID] = ev
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id int64) error {
	delete(c.m, id)
	return nil
}

type recPublisher struct{ got []events.MarketEvent }

func (p *recPublisher) Publish(_ context.Context, e events.MarketEvent) error {
	p.got = append(p.got, e)
	return nil
}

type fixture struct {
	api   *API
	store *fakeStore
	cache *memCache
	pub   *recPublisher
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newFakeStore(), cache: &memCache{m: map[int64]market.Event{}}, pub: &recPublisher{}}
	f.api = &API{
		Log:          zap.NewNop(),
		Store:        f.store,
		Cache:        f.cache,
		Publisher:    f.pub,
		Metrics:      NewMetrics(),
		Chain:        chainaddr.Solana,
		AdminAddress: admin,
		Network:      "solana-demo",
		Now:          func() time.Time { return time.Unix(now, 0) },
	}
	f.srv = httptest.NewServer(f.api.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndStats(t *testing.T) {
	f := newFixture(t)

	h := decode[market.Health](t, f.do(t, http.MethodGet, "/api/health", nil))
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.Demo)

	s := decode[market.Stats](t, f.do(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, "solana-demo", s.Network)
	assert.Equal(t, "70", s.TotalVolume.String())
}

func TestGetEvent_ReadThroughCache(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/events/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.do(t, http.MethodGet, "/api/events/1", nil)
	assert.Equal(t, 1, f.store.gets)

	resp = f.do(t, http.MethodGet, "/api/events/77", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/events/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccounts_ReportDisplayAndBaseUnits(t *testing.T) {
	f := newFixture(t)

	acc := decode[market.AccountBalance](t, f.do(t, http.MethodGet, "/api/accounts/alice", nil))
	assert.Equal(t, 2.5, acc.BalanceSOL)
	assert.Equal(t, "2500000000", acc.BalanceLamports.String())

	resp := f.do(t, http.MethodGet, "/api/accounts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaceBet_PublishesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	f.cache.m[1] = f.store.events[1]

	resp := f.do(t, http.MethodPost, "/api/bets", market.PlaceBetRequest{
		EventID: 1, Bettor: "alice", Outcome: true, Amount: decimal.NewFromInt(10),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[market.PlaceBetResponse](t, resp)
	assert.Equal(t, "9", out.Bet.ID)
	assert.Equal(t, "90", out.Balance.String())

	assert.NotContains(t, f.cache.m, int64(1))
	require.Len(t, f.pub.got, 1)
	assert.Equal(t, events.TypeBetPlaced, f.pub.got[0].Type)
	assert.Equal(t, []string{"9"}, f.pub.got[0].BetIDs)
}

func TestPlaceBet_Rejections(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/bets", market.PlaceBetRequest{EventID: 1, Bettor: "alice", Amount: decimal.Zero})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/bets", market.PlaceBetRequest{EventID: 1, Bettor: "alice", Amount: decimal.RequireFromString("0.5")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.store.betErr = repo.ErrInsufficientFunds
	resp = f.do(t, http.MethodPost, "/api/bets", market.PlaceBetRequest{EventID: 1, Bettor: "alice", Amount: decimal.NewFromInt(1)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[market.ErrorResponse](t, resp)
	assert.Equal(t, "insufficient funds", e.Error)
	assert.Empty(t, f.pub.got)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/events", market.CreateEventRequest{Name: "x", EndTime: now + 60, AdminAddress: "alice"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events", market.CreateEventRequest{Name: "x", EndTime: now - 1, AdminAddress: admin})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events", market.CreateEventRequest{Name: "BTC > 100k?", EndTime: now + 60, AdminAddress: admin})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ev := decode[market.Event](t, resp)
	assert.Equal(t, int64(2), ev.ID)

	resp = f.do(t, http.MethodPost, "/api/events/1/resolve", market.ResolveEventRequest{Outcome: true, AdminAddress: "alice"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events/1/resolve", market.ResolveEventRequest{Outcome: true, AdminAddress: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events/1/resolve", market.ResolveEventRequest{Outcome: false, AdminAddress: admin})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.Len(t, f.pub.got, 2)
	assert.Equal(t, events.TypeEventCreated, f.pub.got[0].Type)
	assert.Equal(t, events.TypeEventResolved, f.pub.got[1].Type)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)

	f.store.claim = repo.ClaimResult{Balance: decimal.NewFromInt(100)}
	resp := f.do(t, http.MethodPost, "/api/bets/claim", market.ClaimRequest{EventID: 3, Bettor: "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	none := decode[market.ClaimResponse](t, resp)
	assert.True(t, none.Payout.IsZero())
	assert.NotNil(t, none.ClaimedBetIDs)
	assert.Empty(t, none.ClaimedBetIDs)
	assert.Equal(t, "no winning bets", none.Message)

	f.store.claim = repo.ClaimResult{
		Winning: true,
		Payout:  decimal.NewFromInt(16),
		BetIDs:  []string{"5"},
		Balance: decimal.NewFromInt(116),
		Event:   market.Event{ID: 3, Resolved: true, Outcome: true},
	}
	out := decode[market.ClaimResponse](t, f.do(t, http.MethodPost, "/api/bets/claim", market.ClaimRequest{EventID: 3, Bettor: "alice"}))
	assert.Equal(t, "16", out.Payout.String())
	assert.Equal(t, []string{"5"}, out.ClaimedBetIDs)
	require.NotNil(t, out.Balance)
	assert.Equal(t, "116", out.Balance.String())

	f.store.claim = repo.ClaimResult{Winning: true, Payout: decimal.Zero, Balance: decimal.NewFromInt(116)}
	out = decode[market.ClaimResponse](t, f.do(t, http.MethodPost, "/api/bets/claim", market.ClaimRequest{EventID: 3, Bettor: "alice"}))
	assert.True(t, out.Payout.IsZero())
	assert.Empty(t, out.ClaimedBetIDs)
	assert.NotEmpty(t, out.Message)

	require.Len(t, f.pub.got, 1)
	assert.Equal(t, events.TypeBetClaimed, f.pub.got[0].Type)
}
