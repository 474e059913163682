package repositories

import (
	"badgehub/internal/database"

	"go.uber.org/zap"
)

// NewCollection wires every repository against one database manager.
func NewCollection(db *database.Manager, logger *zap.Logger) *Collection {
	return &Collection{
		Badge:    NewBadgeRepository(db, logger),
		Progress: NewProgressRepository(db, logger),
		Check:    NewCheckRepository(db, logger),
	}
}
