package topics

const (
	// Eventos
	EventCreated  = "event_created"
	EventResolved = "event_resolved"

	// Apostas
	BetPlaced  = "bet_placed"
	BetClaimed = "bet_claimed"
)
