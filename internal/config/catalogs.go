package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"cardbattle/internal/domain"
)

var (
	catalogs        map[string]domain.Catalog
	defaultCatalog  string
	catalogLoadOnce sync.Once
	catalogLoadErr  error
)

// LoadCatalogs reads and parses every catalog named in the game config.
// LoadGameConfig must have succeeded first.
func LoadCatalogs() error {
	catalogLoadOnce.Do(func() {
		if cfg == nil {
			catalogLoadErr = fmt.Errorf("game config not loaded")
			return
		}
		if len(cfg.Catalogs) == 0 {
			catalogLoadErr = fmt.Errorf("game config names no card catalogs")
			return
		}

		loaded := make(map[string]domain.Catalog, len(cfg.Catalogs))
		for name, path := range cfg.Catalogs {
			data, err := os.ReadFile(path)
			if err != nil {
				catalogLoadErr = fmt.Errorf("failed to read catalog %q: %w", name, err)
				return
			}
			catalog, err := domain.ParseCatalog(data)
			if err != nil {
				catalogLoadErr = fmt.Errorf("failed to parse catalog %q: %w", name, err)
				return
			}
			loaded[name] = catalog
		}

		defaultName := cfg.DefaultCatalog
		if defaultName == "" {
			for name := range loaded {
				defaultName = name
				break
			}
		}
		if _, ok := loaded[defaultName]; !ok {
			catalogLoadErr = fmt.Errorf("default catalog %q not loaded", defaultName)
			return
		}

		catalogs = loaded
		defaultCatalog = defaultName
	})
	return catalogLoadErr
}

// CatalogForRoom selects a catalog by the room naming convention: a room id
// containing a non-default catalog's name picks that catalog, everything else
// gets the default. Returns nil when catalogs never loaded.
func CatalogForRoom(roomID string) domain.Catalog {
	if catalogs == nil {
		return nil
	}
	for name, catalog := range catalogs {
		if name != defaultCatalog && strings.Contains(roomID, name) {
			return catalog
		}
	}
	return catalogs[defaultCatalog]
}
