package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig carries the battle parameters and data file locations.
type GameConfig struct {
	MaxHP       int     `json:"max_hp"`
	HandSize    int     `json:"hand_size"`
	MaxCost     int     `json:"max_cost"`
	BaseEvasion float64 `json:"base_evasion"`

	// WinStake is the wallet amount credited to the winner and debited from
	// the loser when a battle ends.
	WinStake int64 `json:"win_stake"`

	// Catalogs maps catalog names to card data files. A room id containing a
	// catalog name selects that catalog; DefaultCatalog covers the rest.
	DefaultCatalog string            `json:"default_catalog"`
	Catalogs       map[string]string `json:"catalogs"`

	// BotAutoFillDelaySeconds configures how long a solo human waits before a
	// bot opponent is seated.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelaySeconds      int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds      int `json:"bot_max_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or nil when loading
// failed. Callers fall back to built-in defaults on nil.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetWinStake returns the configured stake, or a safe default.
func GetWinStake() int64 {
	if cfg == nil || cfg.WinStake <= 0 {
		return 100
	}
	return cfg.WinStake
}
