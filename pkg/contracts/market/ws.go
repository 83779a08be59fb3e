package market

import "encoding/json"

// Mensagens do websocket /ws
const (
	WSSubscribe   = "subscribe"
	WSUnsubscribe = "unsubscribe"
	WSPing        = "ping"
	WSPong        = "pong"

	// WSAllEvents assina as atualizações de todos os eventos
	WSAllEvents = "*"
)

// WSClientMsg é enviada pelo cliente. EventID é obrigatório em subscribe/unsubscribe.
type WSClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId,omitempty"`
}

// WSUpdate é o envelope publicado no Redis Pub/Sub e repassado aos clientes inscritos
type WSUpdate struct {
	EventID string          `json:"eventId"`
	Payload json.RawMessage `json:"payload"`
}
