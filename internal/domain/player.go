package domain

// Player holds the authoritative per-player state inside one battle.
type Player struct {
	UserID      string
	DisplayName string

	Health  int
	Shield  int
	Cost    int
	Evasion float64

	Hand    []*CardDefinition
	Effects Ledger
}

// TakeCard removes the first card matching name from the hand and returns it.
// Duplicates beyond the first instance stay in the hand.
func (p *Player) TakeCard(name string) (*CardDefinition, bool) {
	for i, card := range p.Hand {
		if card.Name == name {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return card, true
		}
	}
	return nil, false
}

// HasCard reports whether the hand contains a card with the given name.
func (p *Player) HasCard(name string) bool {
	for _, card := range p.Hand {
		if card.Name == name {
			return true
		}
	}
	return false
}

// GainHealth adds amount to health, clamped to maxHP.
func (p *Player) GainHealth(amount, maxHP int) {
	p.Health += amount
	if p.Health > maxHP {
		p.Health = maxHP
	}
}

// RegenerateCost restores one cost point up to maxCost.
func (p *Player) RegenerateCost(maxCost int) bool {
	if p.Cost >= maxCost {
		return false
	}
	p.Cost++
	return true
}

// RefreshEvasion recomputes evasion from the base probability plus whatever
// evasion buffs are still live. Called after ledger changes so expired buffs
// stop counting.
func (p *Player) RefreshEvasion(base float64) {
	p.Evasion = base + p.Effects.EvasionBonus()
}
