package domain

import (
	"encoding/json"
	"fmt"
)

// Catalog is an ordered, immutable list of card definitions. A battle deck is
// a shuffled copy of one catalog.
type Catalog []*CardDefinition

// ParseCatalog decodes and validates a catalog from its JSON representation.
func ParseCatalog(data []byte) (Catalog, error) {
	var cards []*CardDefinition
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card catalog: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("card catalog is empty")
	}

	seen := make(map[string]bool, len(cards))
	for i, card := range cards {
		if card.Name == "" {
			return nil, fmt.Errorf("card %d has no name", i)
		}
		if seen[card.Name] {
			return nil, fmt.Errorf("duplicate card name %q", card.Name)
		}
		seen[card.Name] = true

		if card.DisplayName == "" {
			card.DisplayName = card.Name
		}
		// A zero multiplier would erase damage outright; an unset multiplier
		// means identity.
		if card.Multiplier == 0 {
			card.Multiplier = 1
		}
		switch card.Effect {
		case EffectAttackUp, EffectAttackMultiplier, EffectShieldUp, EffectShieldMultiplier,
			EffectEvasionUp, EffectMultiTurn:
			if card.Turns <= 0 {
				return nil, fmt.Errorf("card %q registers a timed effect but has no turns", card.Name)
			}
		case EffectNone, EffectSkipNextTurn, EffectDrawCard, EffectSwapHand:
		}
	}

	return Catalog(cards), nil
}

// Find returns the definition with the given name, or nil.
func (c Catalog) Find(name string) *CardDefinition {
	for _, card := range c {
		if card.Name == name {
			return card
		}
	}
	return nil
}
