package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/market-service/ws"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	hub := ws.NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func update(t *testing.T, ev events.MarketEvent) market.WSUpdate {
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return market.WSUpdate{EventID: "1", Payload: b}
}

func TestWatcherReceivesSubscribedEvent(t *testing.T) {
	hub, url := startHub(t)
	got := make(chan events.MarketEvent, 1)

	w := &Watcher{
		URL:      url,
		Log:      zap.NewNop(),
		EventIDs: []int64{1},
		OnUpdate: func(ev events.MarketEvent) { got <- ev },
		Backoff:  10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers("1") == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(update(t, events.MarketEvent{Type: events.TypeBetPlaced, EventID: 1, Event: market.Event{ID: 1, TotalYesBets: 1}}))

	select {
	case ev := <-got:
		assert.Equal(t, events.TypeBetPlaced, ev.Type)
		assert.Equal(t, int64(1), ev.Event.TotalYesBets)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherWildcardSubscription(t *testing.T) {
	hub, url := startHub(t)
	got := make(chan events.MarketEvent, 1)

	w := &Watcher{URL: url, Log: zap.NewNop(), OnUpdate: func(ev events.MarketEvent) { got <- ev }}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.Eventually(t, func() bool { return hub.Subscribers(market.WSAllEvents) == 1 }, 2*time.Second, 5*time.Millisecond)

	upd := update(t, events.MarketEvent{Type: events.TypeEventResolved, EventID: 7})
	upd.EventID = "7"
	hub.Broadcast(upd)

	select {
	case ev := <-got:
		assert.Equal(t, int64(7), ev.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}

func TestWatcherClosesAfterSubscriptionsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		subs   int
		normal bool
	}
	done := make(chan result, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var res result
		for {
			var msg market.WSClientMsg
			if err := conn.ReadJSON(&msg); err != nil {
				res.normal = websocket.IsCloseError(err, websocket.CloseNormalClosure)
				done <- res
				return
			}
			if msg.Type == market.WSSubscribe {
				res.subs++
				// cancela no meio das assinaturas
				if res.subs == 1 {
					cancel()
				}
			}
		}
	}))
	defer srv.Close()

	ids := make([]int64, 200)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	w := &Watcher{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), Log: zap.NewNop(), EventIDs: ids}
	go w.Start(ctx)

	select {
	case res := <-done:
		assert.Equal(t, len(ids), res.subs)
		assert.True(t, res.normal)
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no close")
	}
}

func TestSubscriptions(t *testing.T) {
	assert.Equal(t, []string{"*"}, (&Watcher{}).subscriptions())
	assert.Equal(t, []string{"3", "4"}, (&Watcher{EventIDs: []int64{3, 4}}).subscriptions())
}
