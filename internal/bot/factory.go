package bot

import (
	"fmt"
	"math/rand"
	"time"
)

// BotLevel selects a strategy tier.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelGreedy
)

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &EasyBot{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
	case BotLevelGreedy:
		return &GreedyBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

func levelForDifficulty(difficulty string) BotLevel {
	switch difficulty {
	case "hard", "medium":
		return BotLevelGreedy
	default:
		return BotLevelEasy
	}
}
