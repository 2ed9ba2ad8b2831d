package postgres

import (
	"fmt"

	gormstore "github.com/barekit/cinerag/pkg/store/gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// New creates a new Postgres store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormstore.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return gormstore.New(db)
}
