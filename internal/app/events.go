package app

import "cardbattle/internal/domain"

// EventKind identifies emitted battle events for transport dispatch.
type EventKind string

const (
	EventMessage       EventKind = "message"
	EventPlayerMessage EventKind = "player_message"
	EventStateUpdate   EventKind = "state_update"
	EventHandUpdate    EventKind = "hand_update"
	EventCostUpdate    EventKind = "cost_update"
	EventYourTurn      EventKind = "your_turn"
	EventCardPlayed    EventKind = "card_played"
	EventGameOver      EventKind = "game_over"
	EventPlayerJoined  EventKind = "player_joined"
	EventPlayerLeft    EventKind = "player_left"
)

// Event is one outbound notification produced by a state transition. The
// transport layer marshals Payload and delivers it: empty Recipients means
// broadcast to the room, otherwise unicast to the listed user ids.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

// MessagePayload is a human-readable broadcast narrating an action.
type MessagePayload struct {
	Text string `json:"text"`
}

// StateUpdatePayload is the unified room snapshot sent after any HP or effect
// change.
type StateUpdatePayload struct {
	Health  map[string]int                     `json:"health"`
	Names   map[string]string                  `json:"names"`
	Effects map[string][]domain.EffectSnapshot `json:"effects"`
}

// HandUpdatePayload is a private refresh of one player's hand.
type HandUpdatePayload struct {
	Hand []*domain.CardDefinition `json:"hand"`
}

// CostUpdatePayload is a private refresh of one player's resource pool.
type CostUpdatePayload struct {
	Cost int `json:"cost"`
}

// YourTurnPayload grants the turn to its recipient.
type YourTurnPayload struct {
	Hand   []*domain.CardDefinition `json:"hand"`
	Health map[string]int           `json:"health"`
	Names  map[string]string        `json:"names"`
}

// CardPlayedPayload is the public audit record of a resolved play.
type CardPlayedPayload struct {
	PlayerName string `json:"player_name"`
	CardName   string `json:"card_name"`
}

// GameOverPayload is the terminal broadcast naming the winner.
type GameOverPayload struct {
	WinnerID   string `json:"winner_id"`
	WinnerName string `json:"winner_name"`
}

// PlayerJoinedPayload announces a new occupant.
type PlayerJoinedPayload struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// PlayerLeftPayload announces a departure.
type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

func broadcastMessage(text string) Event {
	return Event{Kind: EventMessage, Payload: MessagePayload{Text: text}}
}

func privateMessage(userID, text string) Event {
	return Event{
		Kind:       EventPlayerMessage,
		Payload:    MessagePayload{Text: text},
		Recipients: []string{userID},
	}
}

func stateUpdate(b *domain.Battle) Event {
	return Event{
		Kind: EventStateUpdate,
		Payload: StateUpdatePayload{
			Health:  b.HealthMap(),
			Names:   b.NamesMap(),
			Effects: b.EffectsMap(),
		},
	}
}

func handUpdate(p *domain.Player) Event {
	return Event{
		Kind:       EventHandUpdate,
		Payload:    HandUpdatePayload{Hand: p.Hand},
		Recipients: []string{p.UserID},
	}
}

func costUpdate(p *domain.Player) Event {
	return Event{
		Kind:       EventCostUpdate,
		Payload:    CostUpdatePayload{Cost: p.Cost},
		Recipients: []string{p.UserID},
	}
}

func yourTurn(b *domain.Battle, p *domain.Player) Event {
	return Event{
		Kind: EventYourTurn,
		Payload: YourTurnPayload{
			Hand:   p.Hand,
			Health: b.HealthMap(),
			Names:  b.NamesMap(),
		},
		Recipients: []string{p.UserID},
	}
}
