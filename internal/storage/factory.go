package storage

import (
	"fmt"

	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/repository"
)

// New opens the configured database backend and returns a ready Storage.
// Parameters:
//   - cfg: database configuration (driver, connection, migration settings).
// Returns:
//   - Storage: GORM-backed storage.
//   - error: non-nil if the backend cannot be opened.
func New(cfg *config.DatabaseConfig) (Storage, error) {
	db, err := repository.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	return NewGormStorage(db), nil
}
