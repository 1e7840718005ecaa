package bot

import (
	"math/rand"

	"cardbattle/internal/domain"
)

// lowHealthThreshold is the health at or below which GreedyBot prefers
// healing over attacking.
const lowHealthThreshold = 8

// EasyBot plays a uniformly random affordable card, or ends the turn when
// nothing is affordable.
type EasyBot struct {
	rng *rand.Rand
}

func (b *EasyBot) CalculateMove(battle *domain.Battle, player *domain.Player) (Move, error) {
	affordable := affordableCards(player)
	if len(affordable) == 0 {
		return Move{EndTurn: true}, nil
	}
	pick := affordable[b.rng.Intn(len(affordable))]
	return Move{Card: pick.Name}, nil
}

// GreedyBot scores every affordable card and plays the best one: lethal
// damage first, healing when low, then raw damage per cost, then timed
// effects.
type GreedyBot struct{}

func (b *GreedyBot) CalculateMove(battle *domain.Battle, player *domain.Player) (Move, error) {
	affordable := affordableCards(player)
	if len(affordable) == 0 {
		return Move{EndTurn: true}, nil
	}

	opponent := battle.Opponent(player.UserID)

	best := affordable[0]
	bestScore := b.score(player, opponent, best)
	for _, card := range affordable[1:] {
		if score := b.score(player, opponent, card); score > bestScore {
			best, bestScore = card, score
		}
	}
	return Move{Card: best.Name}, nil
}

func (b *GreedyBot) score(player, opponent *domain.Player, card *domain.CardDefinition) int {
	score := 0

	if card.Damage > 0 && opponent != nil {
		damage := player.Effects.ApplyAttackModifiers(card.Damage)
		if !card.IgnoreShield {
			blocked := opponent.Effects.ApplyShieldModifiers(opponent.Shield)
			damage -= blocked
			if damage < 0 {
				damage = 0
			}
		}
		if damage >= opponent.Health {
			return 1000 // lethal, nothing beats it
		}
		score += damage * 10
	}

	if card.Heal > 0 && player.Health <= lowHealthThreshold {
		score += card.Heal * 12
	}

	if card.Shield > 0 && player.Shield == 0 {
		score += card.Shield * 5
	}

	switch card.Effect {
	case domain.EffectMultiTurn:
		score += (card.DamagePerTurn + card.HealPerTurn + card.ShieldPerTurn) * card.Turns * 3
	case domain.EffectAttackUp, domain.EffectAttackMultiplier:
		score += card.Turns * 8
	case domain.EffectShieldUp, domain.EffectShieldMultiplier, domain.EffectEvasionUp:
		score += card.Turns * 6
	case domain.EffectSkipNextTurn:
		score += 25
	case domain.EffectDrawCard, domain.EffectSwapHand:
		score += 5
	case domain.EffectNone:
	}

	// Prefer cheaper plays on ties to keep the pool healthy.
	score -= card.Cost
	return score
}

func affordableCards(player *domain.Player) []*domain.CardDefinition {
	if player.Cost <= 0 {
		return nil
	}
	var out []*domain.CardDefinition
	for _, card := range player.Hand {
		if card.Cost <= player.Cost {
			out = append(out, card)
		}
	}
	return out
}
