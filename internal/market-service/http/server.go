package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/market-service/repo"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Store é o repositório de contas, eventos e apostas (repo.Postgres em produção)
type Store interface {
	ListEvents(ctx context.Context) ([]market.Event, error)
	GetEvent(ctx context.Context, id int64) (market.Event, error)
	CreateEvent(ctx context.Context, name string, endTime int64, creator string) (market.Event, error)
	PlaceBet(ctx context.Context, eventID int64, bettor string, outcome bool, amount decimal.Decimal) (market.Bet, decimal.Decimal, market.Event, error)
	ResolveEvent(ctx context.Context, id int64, outcome bool) (market.Event, error)
	Claim(ctx context.Context, eventID int64, bettor string) (repo.ClaimResult, error)
	EventBets(ctx context.Context, eventID int64) ([]market.Bet, error)
	UserBets(ctx context.Context, address string) ([]market.Bet, error)
	Stats(ctx context.Context) (market.Stats, error)
	ListAccounts(ctx context.Context) ([]repo.Account, error)
	GetAccount(ctx context.Context, address string) (repo.Account, error)
}

// EventCache é o cache read-through de eventos (cache.EventCache em produção)
type EventCache interface {
	Get(ctx context.Context, eventID int64) (market.Event, bool, error)
	Set(ctx context.Context, ev market.Event) error
	Invalidate(ctx context.Context, eventID int64) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.MarketEvent) error
}

// Metrics agrupa os contadores das mutações de mercado
type Metrics struct {
	BetsPlaced     prometheus.Counter
	BetsClaimed    prometheus.Counter
	EventsCreated  prometheus.Counter
	EventsResolved prometheus.Counter
	Errors         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		BetsPlaced:     prometheus.NewCounter(prometheus.CounterOpts{Name: "market_bets_placed_total", Help: "apostas aceitas"}),
		BetsClaimed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "market_claims_total", Help: "resgates com pagamento"}),
		EventsCreated:  prometheus.NewCounter(prometheus.CounterOpts{Name: "market_events_created_total", Help: "eventos criados"}),
		EventsResolved: prometheus.NewCounter(prometheus.CounterOpts{Name: "market_events_resolved_total", Help: "eventos resolvidos"}),
		Errors:         prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_api_errors_total", Help: "erros por rota"}, []string{"route"}),
	}
}

// Collectors para prometheus.MustRegister
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.BetsPlaced, m.BetsClaimed, m.EventsCreated, m.EventsResolved, m.Errors}
}

// API expõe a API REST do backend demo e o websocket /ws
type API struct {
	Log          *zap.Logger
	Store        Store
	Cache        EventCache // opcional
	Publisher    Publisher  // opcional
	Metrics      *Metrics   // opcional
	WS           http.HandlerFunc
	Chain        chainaddr.Chain
	AdminAddress string
	Network      string
	Now          func() time.Time
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Get("/events", a.listEvents)
		r.Post("/events", a.createEvent)           // admin
		r.Get("/events/{id}", a.getEvent)          // read-through no Redis
		r.Get("/events/{id}/bets", a.eventBets)    // apostas do evento
		r.Post("/events/{id}/resolve", a.resolve)  // admin
		r.Get("/users/{address}/bets", a.userBets) // apostas do usuário
		r.Get("/stats", a.stats)
		r.Get("/accounts", a.listAccounts)
		r.Get("/accounts/{address}", a.getAccount)
		r.Post("/bets", a.placeBet)
		r.Post("/bets/claim", a.claim)
	})
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, market.ErrorResponse{Error: msg})
}

// fail traduz os erros do repositório para status HTTP
func (a *API) fail(w http.ResponseWriter, route string, err error) {
	if a.Metrics != nil {
		a.Metrics.Errors.WithLabelValues(route).Inc()
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrUnknownBettor):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrInsufficientFunds),
		errors.Is(err, repo.ErrEventClosed),
		errors.Is(err, repo.ErrNotResolved):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	default:
		a.Log.Error("request failed", zap.String("route", route), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) isAdmin(addr string) bool {
	return addr != "" && chainaddr.Equal(a.Chain, addr, a.AdminAddress)
}

// publish não falha a requisição: a mutação já foi gravada
func (a *API) publish(ctx context.Context, e events.MarketEvent) {
	if a.Cache != nil {
		if err := a.Cache.Invalidate(ctx, e.EventID); err != nil {
			a.Log.Warn("cache invalidate failed", zap.Int64("event_id", e.EventID), zap.Error(err))
		}
	}
	if a.Publisher == nil {
		return
	}
	e.Ts = a.now().UTC()
	if err := a.Publisher.Publish(ctx, e); err != nil {
		a.Log.Warn("publish failed", zap.String("type", e.Type), zap.Int64("event_id", e.EventID), zap.Error(err))
	}
}

func eventIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, market.Health{
		Status:    "ok",
		Network:   a.Network,
		Demo:      true,
		Timestamp: a.now().UTC().Format(time.RFC3339),
	})
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := a.Store.ListEvents(r.Context())
	if err != nil {
		a.fail(w, "events", err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

// getEvent lê do cache e cai no banco em caso de miss
func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if a.Cache != nil {
		if ev, hit, err := a.Cache.Get(r.Context(), id); err == nil && hit {
			writeJSON(w, http.StatusOK, ev)
			return
		}
	}
	ev, err := a.Store.GetEvent(r.Context(), id)
	if err != nil {
		a.fail(w, "event", err)
		return
	}
	if a.Cache != nil {
		_ = a.Cache.Set(r.Context(), ev)
	}
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) eventBets(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	bets, err := a.Store.EventBets(r.Context(), id)
	if err != nil {
		a.fail(w, "event_bets", err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) userBets(w http.ResponseWriter, r *http.Request) {
	bets, err := a.Store.UserBets(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		a.fail(w, "user_bets", err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.Store.Stats(r.Context())
	if err != nil {
		a.fail(w, "stats", err)
		return
	}
	s.Network = a.Network
	writeJSON(w, http.StatusOK, s)
}

func (a *API) toBalance(acc repo.Account) market.AccountBalance {
	return market.AccountBalance{
		Address:         acc.Address,
		Name:            acc.Name,
		BalanceSOL:      chainaddr.FromBase(a.Chain, acc.Balance).InexactFloat64(),
		BalanceLamports: acc.Balance,
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := a.Store.ListAccounts(r.Context())
	if err != nil {
		a.fail(w, "accounts", err)
		return
	}
	out := make([]market.AccountBalance, 0, len(accs))
	for _, acc := range accs {
		out = append(out, a.toBalance(acc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := a.Store.GetAccount(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		a.fail(w, "account", err)
		return
	}
	writeJSON(w, http.StatusOK, a.toBalance(acc))
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var req market.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !a.isAdmin(req.AdminAddress) {
		writeError(w, http.StatusForbidden, "only admin can create events")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.EndTime <= a.now().Unix() {
		writeError(w, http.StatusBadRequest, "end time must be in the future")
		return
	}

	ev, err := a.Store.CreateEvent(r.Context(), req.Name, req.EndTime, req.AdminAddress)
	if err != nil {
		a.fail(w, "create_event", err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.EventsCreated.Inc()
	}
	a.publish(r.Context(), events.MarketEvent{
		Type: events.TypeEventCreated, EventID: ev.ID, Event: ev, Address: req.AdminAddress,
	})
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req market.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.EventID <= 0 || req.Bettor == "" || !req.Amount.IsPositive() || !req.Amount.IsInteger() {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	bet, balance, ev, err := a.Store.PlaceBet(r.Context(), req.EventID, req.Bettor, req.Outcome, req.Amount)
	if err != nil {
		a.fail(w, "place_bet", err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.BetsPlaced.Inc()
	}
	a.Log.Info("bet placed",
		zap.String("bet_id", bet.ID),
		zap.Int64("event_id", ev.ID),
		zap.String("bettor", bet.Bettor),
		zap.Bool("outcome", bet.Outcome),
		zap.String("amount", bet.Amount.String()))
	a.publish(r.Context(), events.MarketEvent{
		Type: events.TypeBetPlaced, EventID: ev.ID, Event: ev, Address: bet.Bettor, Amount: bet.Amount, BetIDs: []string{bet.ID},
	})
	writeJSON(w, http.StatusCreated, market.PlaceBetResponse{Bet: bet, Balance: balance, Event: ev})
}

func (a *API) resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req market.ResolveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !a.isAdmin(req.AdminAddress) {
		writeError(w, http.StatusForbidden, "only admin can resolve events")
		return
	}

	ev, err := a.Store.ResolveEvent(r.Context(), id, req.Outcome)
	if err != nil {
		a.fail(w, "resolve_event", err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.EventsResolved.Inc()
	}
	a.publish(r.Context(), events.MarketEvent{
		Type: events.TypeEventResolved, EventID: ev.ID, Event: ev, Address: req.AdminAddress,
	})
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	var req market.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.EventID <= 0 || req.Bettor == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := a.Store.Claim(r.Context(), req.EventID, req.Bettor)
	if err != nil {
		a.fail(w, "claim", err)
		return
	}
	out := market.ClaimResponse{Payout: res.Payout, ClaimedBetIDs: res.BetIDs, Balance: &res.Balance}
	// nada a resgatar não é erro: payout zero e lista vazia
	if len(res.BetIDs) == 0 {
		out.Payout = decimal.Zero
		out.ClaimedBetIDs = []string{}
		out.Message = "winnings already claimed"
		if !res.Winning {
			out.Message = "no winning bets"
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	if a.Metrics != nil {
		a.Metrics.BetsClaimed.Inc()
	}
	a.publish(r.Context(), events.MarketEvent{
		Type: events.TypeBetClaimed, EventID: res.Event.ID, Event: res.Event, Address: req.Bettor, Amount: res.Payout, BetIDs: res.BetIDs,
	})
	writeJSON(w, http.StatusOK, out)
}
