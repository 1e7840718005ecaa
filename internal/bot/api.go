package bot

import "cardbattle/internal/domain"

// Move represents the decision made by the AI: play a named card from the
// hand, or end the turn without playing.
type Move struct {
	EndTurn bool
	Card    string
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	CalculateMove(battle *domain.Battle, player *domain.Player) (Move, error)
}
