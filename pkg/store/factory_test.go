package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/barekit/cinerag/pkg/store/storetest"
)

func TestNew_InMemory(t *testing.T) {
	s, err := New(context.Background(), Config{Type: TypeInMemory})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close(context.Background())

	storetest.Run(t, s)
}

func TestNew_SQLiteDefault(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "movies.db")

	s, err := New(context.Background(), Config{ConnectionString: dsn})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close(context.Background())

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected fresh database to be empty, got %d", n)
	}
}

func TestNew_Unsupported(t *testing.T) {
	if _, err := New(context.Background(), Config{Type: "cassandra"}); err == nil {
		t.Error("Expected error for unsupported store type")
	}
}

func TestNew_BadQdrantAddress(t *testing.T) {
	if _, err := New(context.Background(), Config{Type: TypeQdrant, ConnectionString: "localhost"}); err == nil {
		t.Error("Expected error for qdrant address without port")
	}
}
