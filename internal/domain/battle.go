package domain

// Phase represents the lifecycle stage of a battle room.
type Phase string

const (
	// PhaseLobby is the pre-game state while the room waits for a second player.
	PhaseLobby Phase = "lobby"
	// PhasePlaying is the active turn loop.
	PhasePlaying Phase = "playing"
	// PhaseEnded is terminal; the room is deleted once it is reached.
	PhaseEnded Phase = "ended"
)

// PlayersPerBattle is the fixed room capacity.
const PlayersPerBattle = 2

// Battle holds the authoritative state for one room: both player states, the
// shuffled deck, and whose turn it is. Join order is turn order.
type Battle struct {
	RoomID string
	Phase  Phase

	Players map[string]*Player
	Order   []string
	// TurnIndex indexes into Order and always refers to a present player
	// while the battle is active.
	TurnIndex int

	// Deck front (index 0) is the next draw.
	Deck []*CardDefinition
}

// NewBattle creates an empty lobby-phase battle over an already shuffled deck.
func NewBattle(roomID string, deck []*CardDefinition) *Battle {
	return &Battle{
		RoomID:  roomID,
		Phase:   PhaseLobby,
		Players: make(map[string]*Player),
		Deck:    deck,
	}
}

// IsFull reports whether both seats are taken.
func (b *Battle) IsFull() bool {
	return len(b.Order) >= PlayersPerBattle
}

// AddPlayer seats a player at the end of the turn order.
func (b *Battle) AddPlayer(p *Player) {
	b.Players[p.UserID] = p
	b.Order = append(b.Order, p.UserID)
}

// RemovePlayer unseats a player and destroys their state, keeping TurnIndex
// pointing at a present player.
func (b *Battle) RemovePlayer(userID string) {
	if _, ok := b.Players[userID]; !ok {
		return
	}
	delete(b.Players, userID)
	for i, id := range b.Order {
		if id == userID {
			b.Order = append(b.Order[:i], b.Order[i+1:]...)
			if b.TurnIndex > i || b.TurnIndex >= len(b.Order) {
				b.TurnIndex = 0
			}
			break
		}
	}
}

// CurrentTurnID returns the user id whose turn it is, or "" before the battle
// is populated.
func (b *Battle) CurrentTurnID() string {
	if len(b.Order) == 0 {
		return ""
	}
	return b.Order[b.TurnIndex]
}

// Player returns the state for a seated player, or nil.
func (b *Battle) Player(userID string) *Player {
	return b.Players[userID]
}

// Opponent returns the other seated player, or nil while the room is short.
func (b *Battle) Opponent(userID string) *Player {
	for _, id := range b.Order {
		if id != userID {
			return b.Players[id]
		}
	}
	return nil
}

// Draw takes the next card off the deck front. ok is false on an empty deck;
// that is a no-op for callers, not an error.
func (b *Battle) Draw() (*CardDefinition, bool) {
	if len(b.Deck) == 0 {
		return nil, false
	}
	card := b.Deck[0]
	b.Deck = b.Deck[1:]
	return card, true
}

// HealthMap renders user id -> health for state broadcasts.
func (b *Battle) HealthMap() map[string]int {
	m := make(map[string]int, len(b.Players))
	for id, p := range b.Players {
		m[id] = p.Health
	}
	return m
}

// NamesMap renders user id -> display name for state broadcasts.
func (b *Battle) NamesMap() map[string]string {
	m := make(map[string]string, len(b.Players))
	for id, p := range b.Players {
		m[id] = p.DisplayName
	}
	return m
}

// EffectsMap renders every player's ledger for state broadcasts.
func (b *Battle) EffectsMap() map[string][]EffectSnapshot {
	m := make(map[string][]EffectSnapshot, len(b.Players))
	for id, p := range b.Players {
		m[id] = p.Effects.Snapshot()
	}
	return m
}
