package mssql

import (
	"fmt"

	gormstore "github.com/barekit/cinerag/pkg/store/gorm"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// New creates a new MSSQL store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(sqlserver.Open(dsn), gormstore.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to open mssql: %w", err)
	}
	return gormstore.New(db)
}
