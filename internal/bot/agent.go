package bot

import "cardbattle/internal/domain"

// Agent represents an autonomous bot player seated in a battle.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent builds an agent for a provisioned bot identity, picking the
// strategy tier from the identity's difficulty.
func NewAgent(botID string) (*Agent, error) {
	identity, _ := GetBotConfig(botID)
	brain, err := NewBrain(levelForDifficulty(identity.Difficulty))
	if err != nil {
		return nil, err
	}
	name := identity.DisplayName
	if name == "" {
		name = botID
	}
	return &Agent{ID: botID, Name: name, Strategy: brain}, nil
}

// Play asks the agent to calculate its move based on the current battle state.
func (a *Agent) Play(battle *domain.Battle) (Move, error) {
	player := battle.Player(a.ID)
	if player == nil {
		return Move{EndTurn: true}, nil
	}
	move, err := a.Strategy.CalculateMove(battle, player)
	if err != nil {
		return Move{EndTurn: true}, err
	}
	return move, nil
}
