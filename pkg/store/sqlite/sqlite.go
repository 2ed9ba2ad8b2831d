package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gormstore "github.com/barekit/cinerag/pkg/store/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New creates a new SQLite store. When dsn is a file path its parent directory is created.
func New(dsn string) (*gormstore.Store, error) {
	if path := filePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormstore.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return gormstore.New(db)
}

// filePath returns the on-disk path named by dsn, or "" for in-memory databases.
func filePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}
