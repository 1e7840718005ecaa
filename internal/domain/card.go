package domain

import (
	"encoding/json"
	"fmt"
)

// EffectKind classifies what a card does beyond its immediate numeric fields.
type EffectKind int

const (
	// EffectNone marks a card with only immediate damage/heal/shield values.
	EffectNone EffectKind = iota
	// EffectAttackUp adds a flat damage boost to the caster's attacks.
	EffectAttackUp
	// EffectAttackMultiplier multiplies the caster's attack damage.
	EffectAttackMultiplier
	// EffectShieldUp adds a flat boost to the caster's effective shield.
	EffectShieldUp
	// EffectShieldMultiplier multiplies the caster's effective shield.
	EffectShieldMultiplier
	// EffectEvasionUp raises the caster's evasion probability.
	EffectEvasionUp
	// EffectMultiTurn registers per-turn damage/heal/shield over several turns.
	EffectMultiTurn
	// EffectSkipNextTurn makes the opponent skip their next turn.
	EffectSkipNextTurn
	// EffectDrawCard draws one extra card from the deck.
	EffectDrawCard
	// EffectSwapHand exchanges one random card between both hands.
	EffectSwapHand
)

var effectKindNames = map[EffectKind]string{
	EffectNone:             "none",
	EffectAttackUp:         "atkUp",
	EffectAttackMultiplier: "atkMultiplier",
	EffectShieldUp:         "shieldUp",
	EffectShieldMultiplier: "shieldMultiplier",
	EffectEvasionUp:        "evasionUp",
	EffectMultiTurn:        "multiTurn",
	EffectSkipNextTurn:     "skipNextTurn",
	EffectDrawCard:         "drawCard",
	EffectSwapHand:         "swapHand",
}

var effectKindValues = func() map[string]EffectKind {
	m := make(map[string]EffectKind, len(effectKindNames))
	for kind, name := range effectKindNames {
		m[name] = kind
	}
	return m
}()

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// MarshalJSON encodes the kind as its catalog tag.
func (k EffectKind) MarshalJSON() ([]byte, error) {
	name, ok := effectKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown effect kind %d", int(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a catalog tag, rejecting unknown kinds. An absent or
// empty tag decodes as EffectNone.
func (k *EffectKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if name == "" {
		*k = EffectNone
		return nil
	}
	kind, ok := effectKindValues[name]
	if !ok {
		return fmt.Errorf("unknown effect kind %q", name)
	}
	*k = kind
	return nil
}

// IsSelfBuff reports whether the kind registers a timed buff on the caster.
func (k EffectKind) IsSelfBuff() bool {
	switch k {
	case EffectAttackUp, EffectAttackMultiplier, EffectShieldUp, EffectShieldMultiplier, EffectEvasionUp:
		return true
	case EffectNone, EffectMultiTurn, EffectSkipNextTurn, EffectDrawCard, EffectSwapHand:
		return false
	}
	return false
}

// CardDefinition is one immutable catalog entry. Battles share definitions by
// pointer; nothing in the engine mutates them.
type CardDefinition struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`

	Damage int `json:"damage,omitempty"`
	Heal   int `json:"heal,omitempty"`
	Shield int `json:"shield,omitempty"`
	Cost   int `json:"cost,omitempty"`

	// Turns is the duration of any timed effect the card registers.
	Turns         int `json:"turns,omitempty"`
	DamagePerTurn int `json:"damage_per_turn,omitempty"`
	HealPerTurn   int `json:"heal_per_turn,omitempty"`
	ShieldPerTurn int `json:"shield_per_turn,omitempty"`

	DamageBoost  int     `json:"damage_boost,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty"`
	ShieldBoost  int     `json:"shield_boost,omitempty"`
	EvasionBoost float64 `json:"evasion_boost,omitempty"`

	Effect       EffectKind `json:"effect,omitempty"`
	IgnoreShield bool       `json:"ignore_shield,omitempty"`
}
