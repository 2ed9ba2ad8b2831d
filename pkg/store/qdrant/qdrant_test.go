package qdrant

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/barekit/cinerag/pkg/store/storetest"
	"github.com/qdrant/go-client/qdrant"
)

func TestPointID(t *testing.T) {
	a := PointID("100_0")
	if a != PointID("100_0") {
		t.Error("Expected PointID to be deterministic")
	}
	if a == PointID("100_1") {
		t.Error("Expected distinct chunk IDs to map to distinct points")
	}
}

func TestVectorParams(t *testing.T) {
	p := vectorParams(1536)
	if p.GetSize() != 1536 {
		t.Errorf("Expected size 1536, got %d", p.GetSize())
	}
	if p.GetDistance() != qdrant.Distance_Dot {
		t.Errorf("Expected dot distance so stored vectors are not normalized, got %v", p.GetDistance())
	}
}

func TestQdrantStore(t *testing.T) {
	addr := os.Getenv("TEST_QDRANT_ADDR")
	if addr == "" {
		t.Skip("Skipping qdrant store test: TEST_QDRANT_ADDR not set")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Invalid TEST_QDRANT_ADDR: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Invalid TEST_QDRANT_ADDR port: %v", err)
	}

	s, err := New(host, port, "cinerag_test")
	if err != nil {
		t.Fatalf("Failed to create qdrant store: %v", err)
	}
	defer s.Close(context.Background())

	if err := s.Replace(context.Background(), nil); err != nil {
		t.Fatalf("Failed to reset collection: %v", err)
	}
	storetest.Run(t, s)
}
