// Package watch assina o websocket do backend e repassa as mudanças de mercado ao cliente.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Watcher mantém uma conexão websocket com o backend e reconecta com espera fixa.
// Sem EventIDs, assina todos os eventos.
type Watcher struct {
	URL      string
	Log      *zap.Logger
	EventIDs []int64
	OnUpdate func(events.MarketEvent)
	Backoff  time.Duration // padrão 3s
}

// Start bloqueia até o contexto ser cancelado
func (w *Watcher) Start(ctx context.Context) {
	backoff := w.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("context canceled, stopping watcher")
			return
		default:
		}
		if err := w.connectAndListen(ctx); err != nil {
			w.Log.Warn("connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.Log.Info("context canceled, stopping watcher")
			return
		case <-time.After(backoff):
		}
	}
}

func (w *Watcher) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	w.Log.Info("connected to market WS", zap.String("url", w.URL))

	// gorilla aceita um writer por vez: as assinaturas saem antes da goroutine de fechamento
	for _, id := range w.subscriptions() {
		if err := conn.WriteJSON(market.WSClientMsg{Type: market.WSSubscribe, EventID: id}); err != nil {
			return err
		}
	}

	// fecha a conexão quando o contexto acaba para destravar o ReadMessage
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var upd market.WSUpdate
		if err := json.Unmarshal(message, &upd); err != nil || len(upd.Payload) == 0 {
			// pong e mensagens desconhecidas
			continue
		}
		var ev events.MarketEvent
		if err := json.Unmarshal(upd.Payload, &ev); err != nil {
			w.Log.Warn("invalid message", zap.Error(err))
			continue
		}
		if w.OnUpdate != nil {
			w.OnUpdate(ev)
		}
	}
}

func (w *Watcher) subscriptions() []string {
	if len(w.EventIDs) == 0 {
		return []string{market.WSAllEvents}
	}
	out := make([]string, 0, len(w.EventIDs))
	for _, id := range w.EventIDs {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
