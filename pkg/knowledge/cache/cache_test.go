package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingEmbedder struct {
	calls atomic.Int32
	texts atomic.Int32
	delay time.Duration
	err   error
}

func (m *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	m.texts.Add(int32(len(texts)))
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestEmbedder_CachesSingleText(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := New(inner, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := e.Embed(ctx, []string{"hello"})
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(v) != 1 || v[0][0] != 5 {
			t.Fatalf("Unexpected vector: %v", v)
		}
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

func TestEmbedder_EmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e, _ := New(inner, 10)
	ctx := context.Background()

	if _, err := e.Embed(ctx, []string{"a"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	v, err := e.Embed(ctx, []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if v[0][0] != 1 || v[1][0] != 3 || v[2][0] != 2 {
		t.Errorf("Vectors out of order: %v", v)
	}
	if got := inner.texts.Load(); got != 3 {
		t.Errorf("Expected 3 texts sent upstream in total, got %d", got)
	}
	if e.Len() != 3 {
		t.Errorf("Expected 3 cached vectors, got %d", e.Len())
	}
}

func TestEmbedder_CoalescesConcurrentMisses(t *testing.T) {
	inner := &countingEmbedder{delay: 50 * time.Millisecond}
	e, _ := New(inner, 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Embed(context.Background(), []string{"same question"}); err != nil {
				t.Errorf("Embed failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

// gatedEmbedder blocks until released or until its context is done.
type gatedEmbedder struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (m *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.calls.Add(1) == 1 {
		close(m.started)
	}
	select {
	case <-m.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestEmbedder_SharedMissSurvivesCallerCancel(t *testing.T) {
	inner := &gatedEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	e, _ := New(inner, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 2)
	go func() {
		_, err := e.Embed(ctx, []string{"shared"})
		errs <- err
	}()
	<-inner.started

	go func() {
		v, err := e.Embed(context.Background(), []string{"shared"})
		if err == nil && v[0][0] != 6 {
			err = errors.New("unexpected vector")
		}
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(inner.release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Embed failed after the first caller cancelled: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
	if e.Len() != 1 {
		t.Errorf("Expected the shared vector to be cached, got %d entries", e.Len())
	}
}

func TestEmbedder_ErrorsAreNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{err: boom}
	e, _ := New(inner, 10)

	if _, err := e.Embed(context.Background(), []string{"q"}); !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("Failed embeddings should not be cached")
	}
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(&countingEmbedder{}, 0); err == nil {
		t.Error("Expected error for zero size")
	}
}
