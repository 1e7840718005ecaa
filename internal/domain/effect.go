package domain

// ActiveEffect is one timed modifier attached to a player. The numeric fields
// are snapshotted from the originating card at registration so later catalog
// changes never alter an in-flight effect.
type ActiveEffect struct {
	Card      *CardDefinition
	Remaining int

	DamageBoost  int
	Multiplier   float64
	ShieldBoost  int
	EvasionBoost float64

	DamagePerTurn int
	HealPerTurn   int
	ShieldPerTurn int

	Skip bool
}

// NewBuffEffect snapshots a self-buff card (atkUp, atkMultiplier, shieldUp,
// shieldMultiplier, evasionUp) into a ledger entry.
func NewBuffEffect(card *CardDefinition) *ActiveEffect {
	return &ActiveEffect{
		Card:         card,
		Remaining:    card.Turns,
		DamageBoost:  card.DamageBoost,
		Multiplier:   card.Multiplier,
		ShieldBoost:  card.ShieldBoost,
		EvasionBoost: card.EvasionBoost,
	}
}

// NewRegenEffect snapshots the self-directed per-turn fields of a multiTurn card.
func NewRegenEffect(card *CardDefinition) *ActiveEffect {
	return &ActiveEffect{
		Card:          card,
		Remaining:     card.Turns,
		HealPerTurn:   card.HealPerTurn,
		ShieldPerTurn: card.ShieldPerTurn,
	}
}

// NewAfflictionEffect snapshots the opponent-directed per-turn damage of a
// multiTurn card.
func NewAfflictionEffect(card *CardDefinition) *ActiveEffect {
	return &ActiveEffect{
		Card:          card,
		Remaining:     card.Turns,
		DamagePerTurn: card.DamagePerTurn,
	}
}

// NewSkipEffect builds the one-turn skip entry a skipNextTurn card places on
// the opponent.
func NewSkipEffect(card *CardDefinition) *ActiveEffect {
	return &ActiveEffect{Card: card, Remaining: 1, Skip: true}
}

func (e *ActiveEffect) live() bool {
	return e.Remaining > 0
}

// Ledger is the ordered set of active effects on one player. Order is
// insertion order; modifier folds must walk it front to back so simultaneous
// buffs apply stably.
type Ledger []*ActiveEffect

// Add appends an effect to the ledger.
func (l *Ledger) Add(effect *ActiveEffect) {
	*l = append(*l, effect)
}

// ApplyAttackModifiers folds the owner's live attack buffs over a base damage
// value: multipliers floor, flat boosts add, in insertion order.
func (l Ledger) ApplyAttackModifiers(damage int) int {
	for _, e := range l {
		if !e.live() {
			continue
		}
		switch e.Card.Effect {
		case EffectAttackMultiplier:
			damage = int(float64(damage) * e.Multiplier)
		case EffectAttackUp:
			damage += e.DamageBoost
		}
	}
	return damage
}

// ApplyShieldModifiers folds the owner's live shield buffs over their stored
// shield value, in insertion order.
func (l Ledger) ApplyShieldModifiers(shield int) int {
	for _, e := range l {
		if !e.live() {
			continue
		}
		switch e.Card.Effect {
		case EffectShieldMultiplier:
			shield = int(float64(shield) * e.Multiplier)
		case EffectShieldUp:
			shield += e.ShieldBoost
		}
	}
	return shield
}

// EvasionBonus sums the live evasion boosts on the ledger.
func (l Ledger) EvasionBonus() float64 {
	bonus := 0.0
	for _, e := range l {
		if e.live() && e.Card.Effect == EffectEvasionUp {
			bonus += e.EvasionBoost
		}
	}
	return bonus
}

// TurnStart is the accumulated outcome of one start-of-turn resolution.
type TurnStart struct {
	Damage int
	Heal   int
	Shield int
	Skip   bool
}

// ResolveTurnStart runs the start-of-turn procedure for the ledger's owner:
// per-turn damage/heal/shield and skip flags accumulate from live entries,
// every live entry ages by one turn, and exhausted entries are purged. Buff
// entries (atkUp and friends) contribute nothing here; they only age, since
// their numbers are read at damage-resolution time.
func (l *Ledger) ResolveTurnStart() TurnStart {
	var result TurnStart
	for _, e := range *l {
		if !e.live() {
			continue
		}
		if e.Skip {
			result.Skip = true
		}
		result.Damage += e.DamagePerTurn
		result.Heal += e.HealPerTurn
		result.Shield += e.ShieldPerTurn
		e.Remaining--
	}

	kept := (*l)[:0]
	for _, e := range *l {
		if e.live() {
			kept = append(kept, e)
		}
	}
	*l = kept

	return result
}

// EffectSnapshot is the wire representation of one active effect.
type EffectSnapshot struct {
	Card      string `json:"card"`
	Effect    string `json:"effect"`
	Remaining int    `json:"remaining"`
}

// Snapshot renders the ledger for state broadcasts.
func (l Ledger) Snapshot() []EffectSnapshot {
	out := make([]EffectSnapshot, 0, len(l))
	for _, e := range l {
		out = append(out, EffectSnapshot{
			Card:      e.Card.DisplayName,
			Effect:    e.Card.Effect.String(),
			Remaining: e.Remaining,
		})
	}
	return out
}
