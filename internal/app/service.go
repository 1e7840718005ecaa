package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"cardbattle/internal/domain"
)

var (
	ErrRoomFull      = errors.New("room already has two players")
	ErrNotPlaying    = errors.New("battle not in playing phase")
	ErrNotYourTurn   = errors.New("actor does not hold the turn")
	ErrInvalidCard   = errors.New("card not in hand")
	ErrNoCosts       = errors.New("not enough cost to play the card")
	ErrUnknownPlayer = errors.New("player not found in room")
)

// Rules are the numeric battle parameters, supplied by config.
type Rules struct {
	MaxHP       int
	HandSize    int
	MaxCost     int
	BaseEvasion float64
}

// DefaultRules mirrors the shipped game configuration.
func DefaultRules() Rules {
	return Rules{MaxHP: 20, HandSize: 5, MaxCost: 5, BaseEvasion: 0.05}
}

// Service contains the battle use-cases. Each method is a complete state
// transition over one battle: it mutates the battle and returns the outbound
// events for the transport to dispatch. Callers serialize invocations per
// battle (the Nakama match loop already does).
type Service struct {
	rng   *rand.Rand
	rules Rules
}

// NewService constructs a Service with the provided rng or a time-seeded
// default. Tests pass a seeded rng for deterministic shuffles and evasion
// rolls.
func NewService(rng *rand.Rand, rules Rules) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, rules: rules}
}

// Rules exposes the active battle parameters.
func (s *Service) Rules() Rules {
	return s.rules
}

// NewBattle creates a lobby-phase battle over a freshly shuffled deck drawn
// from the catalog.
func (s *Service) NewBattle(roomID string, catalog domain.Catalog) *domain.Battle {
	return domain.NewBattle(roomID, domain.BuildDeck(catalog, s.rng))
}

// Join seats a player. The second join deals both hands and starts the battle:
// the first-seated player receives the turn grant, the other a private hand
// refresh.
func (s *Service) Join(b *domain.Battle, userID, username string) ([]Event, error) {
	if _, ok := b.Players[userID]; ok {
		return nil, nil
	}
	if b.IsFull() {
		return nil, ErrRoomFull
	}

	name := username
	if name == "" {
		name = fmt.Sprintf("Player %d", len(b.Order)+1)
	}
	b.AddPlayer(&domain.Player{
		UserID:      userID,
		DisplayName: name,
		Health:      s.rules.MaxHP,
		Cost:        s.rules.MaxCost,
		Evasion:     s.rules.BaseEvasion,
	})

	events := []Event{
		{Kind: EventPlayerJoined, Payload: PlayerJoinedPayload{
			UserID:  userID,
			Name:    name,
			Players: len(b.Order),
		}},
		broadcastMessage(fmt.Sprintf("%s joined the room (%d/%d)", name, len(b.Order), domain.PlayersPerBattle)),
	}

	if !b.IsFull() {
		return events, nil
	}

	// Both seats taken: deal in join order and open the turn loop.
	for _, id := range b.Order {
		p := b.Players[id]
		for len(p.Hand) < s.rules.HandSize {
			card, ok := b.Draw()
			if !ok {
				break
			}
			p.Hand = append(p.Hand, card)
		}
	}
	b.Phase = domain.PhasePlaying
	b.TurnIndex = 0

	first := b.Players[b.Order[0]]
	second := b.Players[b.Order[1]]
	events = append(events,
		broadcastMessage("Battle start!"),
		stateUpdate(b),
		yourTurn(b, first),
		handUpdate(second),
	)
	return events, nil
}

// SetName updates a player's display name and refreshes the room snapshot.
func (s *Service) SetName(b *domain.Battle, userID, name string) ([]Event, error) {
	p := b.Player(userID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	p.DisplayName = name
	return []Event{
		broadcastMessage(fmt.Sprintf("%s set their name", name)),
		stateUpdate(b),
	}, nil
}

// PlayCard resolves one card play for the turn holder and, unless the play
// ended the battle, advances the turn.
func (s *Service) PlayCard(b *domain.Battle, userID, cardName string) ([]Event, error) {
	if b.Phase != domain.PhasePlaying {
		return nil, ErrNotPlaying
	}
	if b.CurrentTurnID() != userID {
		return nil, ErrNotYourTurn
	}
	caster := b.Player(userID)
	if caster.Cost <= 0 {
		return nil, ErrNoCosts
	}
	card := findInHand(caster, cardName)
	if card == nil {
		return nil, ErrInvalidCard
	}
	if card.Cost > caster.Cost {
		return nil, ErrNoCosts
	}

	caster.Cost -= card.Cost
	caster.TakeCard(cardName)
	opponent := b.Opponent(userID)

	events := []Event{
		costUpdate(caster),
		{Kind: EventCardPlayed, Payload: CardPlayedPayload{
			PlayerName: caster.DisplayName,
			CardName:   card.DisplayName,
		}},
	}

	// Resolution order matters: buffs registered here are visible to this
	// play's own damage step, and damage reads shields mutated nowhere else.
	events = append(events, s.registerSelfBuff(caster, card)...)
	events = append(events, s.resolveDamage(caster, opponent, card)...)
	events = append(events, s.registerContinuing(caster, opponent, card)...)
	events = append(events, s.registerSkip(opponent, card)...)

	if card.Heal > 0 {
		caster.GainHealth(card.Heal, s.rules.MaxHP)
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s played %s and healed %d HP", caster.DisplayName, card.DisplayName, card.Heal)))
	}

	if card.Shield > 0 {
		// Set, not add: a fresh guard overwrites any unconsumed shield.
		caster.Shield = card.Shield
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s played %s and will block %d damage", caster.DisplayName, card.DisplayName, card.Shield)))
	}

	if card.Effect == domain.EffectDrawCard {
		events = append(events, s.drawTo(b, caster)...)
	}

	if card.Effect == domain.EffectSwapHand && len(caster.Hand) > 0 && len(opponent.Hand) > 0 {
		i := s.rng.Intn(len(caster.Hand))
		j := s.rng.Intn(len(opponent.Hand))
		caster.Hand[i], opponent.Hand[j] = opponent.Hand[j], caster.Hand[i]
		events = append(events,
			broadcastMessage(fmt.Sprintf("%s and %s swapped one card!", caster.DisplayName, opponent.DisplayName)),
			handUpdate(caster),
			handUpdate(opponent),
		)
	}

	// Replenish back toward a full hand; silently skipped on an empty deck.
	if len(caster.Hand) < s.rules.HandSize {
		events = append(events, s.drawTo(b, caster)...)
	}

	events = append(events, stateUpdate(b))

	if opponent.Health <= 0 {
		return append(events, s.finish(b, caster)...), nil
	}
	return s.advanceTurn(b, events)
}

// EndTurn lets the turn holder pass without playing a card.
func (s *Service) EndTurn(b *domain.Battle, userID string) ([]Event, error) {
	if b.Phase != domain.PhasePlaying {
		return nil, ErrNotPlaying
	}
	if b.CurrentTurnID() != userID {
		return nil, ErrNotYourTurn
	}
	return s.advanceTurn(b, nil)
}

// Leave removes a departing player's state. If the battle was running, the
// remaining player wins; an emptied room ends regardless.
func (s *Service) Leave(b *domain.Battle, userID string) []Event {
	p := b.Player(userID)
	if p == nil {
		return nil
	}
	wasPlaying := b.Phase == domain.PhasePlaying
	b.RemovePlayer(userID)

	events := []Event{
		{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{UserID: userID}},
		broadcastMessage(fmt.Sprintf("%s left the room", p.DisplayName)),
	}

	if len(b.Order) == 0 {
		b.Phase = domain.PhaseEnded
		return events
	}
	if wasPlaying && len(b.Order) == 1 {
		winner := b.Players[b.Order[0]]
		events = append(events, s.finish(b, winner)...)
	}
	return events
}

func (s *Service) registerSelfBuff(caster *domain.Player, card *domain.CardDefinition) []Event {
	if !card.Effect.IsSelfBuff() {
		return nil
	}
	caster.Effects.Add(domain.NewBuffEffect(card))
	if card.Effect == domain.EffectEvasionUp {
		caster.RefreshEvasion(s.rules.BaseEvasion)
	}
	return []Event{broadcastMessage(fmt.Sprintf(
		"%s gains %s for %d turns!", caster.DisplayName, card.DisplayName, card.Turns))}
}

func (s *Service) resolveDamage(caster, opponent *domain.Player, card *domain.CardDefinition) []Event {
	if card.Damage <= 0 {
		return nil
	}

	damage := caster.Effects.ApplyAttackModifiers(card.Damage)
	if !card.IgnoreShield {
		if blocked := opponent.Effects.ApplyShieldModifiers(opponent.Shield); blocked > 0 {
			damage -= blocked
			if damage < 0 {
				damage = 0
			}
		}
	}

	var events []Event
	// The evasion roll applies even to shield-ignoring attacks.
	if s.rng.Float64() >= opponent.Evasion {
		opponent.Health -= damage
		if opponent.Health < 0 {
			opponent.Health = 0
		}
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s played %s! %d damage to %s", caster.DisplayName, card.DisplayName, damage, opponent.DisplayName)))
	} else {
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s played %s! But %s evaded!", caster.DisplayName, card.DisplayName, opponent.DisplayName)))
	}

	// Shield is single-use: one non-ignoring damage instance consumes it.
	if !card.IgnoreShield {
		opponent.Shield = 0
	}
	return events
}

func (s *Service) registerContinuing(caster, opponent *domain.Player, card *domain.CardDefinition) []Event {
	if card.Effect != domain.EffectMultiTurn {
		return nil
	}
	var events []Event
	if card.HealPerTurn > 0 || card.ShieldPerTurn > 0 {
		caster.Effects.Add(domain.NewRegenEffect(card))
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s is blessed by %s!", caster.DisplayName, card.DisplayName)))
	}
	if card.DamagePerTurn > 0 {
		opponent.Effects.Add(domain.NewAfflictionEffect(card))
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s is afflicted by %s!", opponent.DisplayName, card.DisplayName)))
	}
	return events
}

func (s *Service) registerSkip(opponent *domain.Player, card *domain.CardDefinition) []Event {
	if card.Effect != domain.EffectSkipNextTurn {
		return nil
	}
	opponent.Effects.Add(domain.NewSkipEffect(card))
	return []Event{broadcastMessage(fmt.Sprintf(
		"%s's next turn will be skipped!", opponent.DisplayName))}
}

func (s *Service) drawTo(b *domain.Battle, p *domain.Player) []Event {
	card, ok := b.Draw()
	if !ok {
		return nil
	}
	p.Hand = append(p.Hand, card)
	return []Event{
		privateMessage(p.UserID, fmt.Sprintf("Drew a card from the deck: %s", card.DisplayName)),
		handUpdate(p),
	}
}

// advanceTurn runs the turn transition: start-of-turn effects for the
// candidate next player, skip handling, the effect-death win check, cost
// regeneration for the player who just finished, and the turn grant.
func (s *Service) advanceTurn(b *domain.Battle, events []Event) ([]Event, error) {
	finished := b.Player(b.CurrentTurnID())

	nextIndex := (b.TurnIndex + 1) % len(b.Order)
	next := b.Players[b.Order[nextIndex]]

	result := next.Effects.ResolveTurnStart()
	next.RefreshEvasion(s.rules.BaseEvasion)

	if result.Damage > 0 {
		next.Health -= result.Damage
		if next.Health < 0 {
			next.Health = 0
		}
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s took %d damage from effects!", next.DisplayName, result.Damage)))
	}
	if result.Heal > 0 {
		next.GainHealth(result.Heal, s.rules.MaxHP)
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s recovered %d HP from effects!", next.DisplayName, result.Heal)))
	}
	if result.Shield > 0 {
		next.Shield += result.Shield
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s gained %d shield from effects!", next.DisplayName, result.Shield)))
	}
	if result.Skip {
		events = append(events, broadcastMessage(fmt.Sprintf(
			"%s's turn was skipped!", next.DisplayName)))
		nextIndex = (nextIndex + 1) % len(b.Order)
		next = b.Players[b.Order[nextIndex]]
	}

	events = append(events, stateUpdate(b))

	// Death by effect damage ends the battle before the turn commits.
	for _, id := range b.Order {
		if b.Players[id].Health <= 0 {
			winner := b.Opponent(id)
			return append(events, s.finish(b, winner)...), nil
		}
	}

	b.TurnIndex = nextIndex
	if finished.RegenerateCost(s.rules.MaxCost) {
		events = append(events, privateMessage(finished.UserID, "Recovered 1 cost"))
	}
	events = append(events, costUpdate(finished))

	events = append(events,
		broadcastMessage(fmt.Sprintf("%s's turn!", next.DisplayName)),
		yourTurn(b, next),
	)
	return events, nil
}

func (s *Service) finish(b *domain.Battle, winner *domain.Player) []Event {
	b.Phase = domain.PhaseEnded
	return []Event{
		broadcastMessage(fmt.Sprintf("%s wins!", winner.DisplayName)),
		{Kind: EventGameOver, Payload: GameOverPayload{
			WinnerID:   winner.UserID,
			WinnerName: winner.DisplayName,
		}},
	}
}

func findInHand(p *domain.Player, name string) *domain.CardDefinition {
	for _, card := range p.Hand {
		if card.Name == name {
			return card
		}
	}
	return nil
}
