package domain

import "math/rand"

// BuildDeck returns a uniformly shuffled copy of the catalog. The catalog's
// definitions are shared by pointer; only the ordering is per-battle.
func BuildDeck(catalog Catalog, rng *rand.Rand) []*CardDefinition {
	deck := make([]*CardDefinition, len(catalog))
	copy(deck, catalog)
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}
