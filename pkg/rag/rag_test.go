package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barekit/cinerag/pkg/catalog"
	"github.com/barekit/cinerag/pkg/index"
	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/llm"
	"github.com/barekit/cinerag/pkg/store/inmemory"
)

type mockProvider struct {
	response string
	err      error
	messages []llm.Message
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message) (*llm.Message, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: m.response}, nil
}

// mockEmbedder maps known texts to fixed vectors and everything else to [1,0].
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type mockIndex struct {
	chunks []knowledge.Chunk
	err    error
}

func (m *mockIndex) EnsureReady(ctx context.Context) error { return m.err }

func (m *mockIndex) LoadedChunks() ([]knowledge.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

func testChunks() []knowledge.Chunk {
	return []knowledge.Chunk{
		{ID: "1_0", Title: "Movie A", Genres: "Drama", ReleaseDate: "2001-01-01", Runtime: "90", Overview: "About A", Embedding: []float32{1, 0}},
		{ID: "2_1", Title: "Movie B", Genres: "Comedy", ReleaseDate: "2002-02-02", Runtime: "95", Overview: "About B", Embedding: []float32{0, 1}},
		{ID: "3_2", Title: "Movie C", Genres: "Horror", ReleaseDate: "2003-03-03", Runtime: "100", Overview: "About C", Embedding: []float32{0.7, 0.7}},
	}
}

func TestFormatContext(t *testing.T) {
	chunks := testChunks()
	got := FormatContext([]knowledge.Match{{Chunk: &chunks[0]}, {Chunk: &chunks[1]}})

	want := "Title: Movie A\nGenres: Drama\nRelease date: 2001-01-01\nRuntime: 90\nOverview: About A" +
		"\n\n" +
		"Title: Movie B\nGenres: Comedy\nRelease date: 2002-02-02\nRuntime: 95\nOverview: About B"
	if got != want {
		t.Errorf("FormatContext mismatch:\n got: %q\nwant: %q", got, want)
	}

	if FormatContext(nil) != "" {
		t.Error("Expected empty context for no matches")
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Who?", "Title: X")
	want := "Use the following context to answer the user's question.\n" +
		"If the answer is not in the context, say that you don't know.\n\n" +
		"Context:\nTitle: X\n\n" +
		"Question: Who?\nAnswer:"
	if got != want {
		t.Errorf("BuildPrompt mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestAnswerQuestion(t *testing.T) {
	provider := &mockProvider{response: "Movie A is a drama."}
	s := New(&mockIndex{chunks: testChunks()}, &mockEmbedder{}, provider, WithTopK(2))

	answer, err := s.AnswerQuestion(context.Background(), "Which movie is a drama?")
	if err != nil {
		t.Fatalf("AnswerQuestion failed: %v", err)
	}
	if answer != "Movie A is a drama." {
		t.Errorf("Expected answer to be returned verbatim, got %q", answer)
	}

	if len(provider.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(provider.messages))
	}
	if provider.messages[0].Role != llm.RoleSystem || provider.messages[0].Content != DefaultInstructions {
		t.Errorf("Unexpected system message: %+v", provider.messages[0])
	}

	prompt := provider.messages[1].Content
	if !strings.Contains(prompt, "Question: Which movie is a drama?") {
		t.Errorf("Prompt is missing the question: %q", prompt)
	}
	a := strings.Index(prompt, "Title: Movie A")
	c := strings.Index(prompt, "Title: Movie C")
	if a < 0 || c < 0 || a > c {
		t.Errorf("Expected Movie A then Movie C in context, got %q", prompt)
	}
	if strings.Contains(prompt, "Movie B") {
		t.Errorf("Expected Movie B to be cut by top-k, got %q", prompt)
	}
}

func TestAnswerQuestion_EmptyAnswer(t *testing.T) {
	s := New(&mockIndex{chunks: testChunks()}, &mockEmbedder{}, &mockProvider{})

	answer, err := s.AnswerQuestion(context.Background(), "anything")
	if err != nil {
		t.Fatalf("AnswerQuestion failed: %v", err)
	}
	if answer != "" {
		t.Errorf("Expected empty answer, got %q", answer)
	}
}

func TestAnswerQuestion_Failures(t *testing.T) {
	indexErr := errors.New("index broken")
	embedErr := errors.New("embedding gateway down")
	chatErr := errors.New("chat gateway down")

	tests := []struct {
		name     string
		index    *mockIndex
		embedder *mockEmbedder
		provider *mockProvider
		want     error
	}{
		{"index", &mockIndex{err: indexErr}, &mockEmbedder{}, &mockProvider{}, indexErr},
		{"embedding", &mockIndex{chunks: testChunks()}, &mockEmbedder{err: embedErr}, &mockProvider{}, embedErr},
		{"synthesis", &mockIndex{chunks: testChunks()}, &mockEmbedder{}, &mockProvider{err: chatErr}, chatErr},
		{"dimensions", &mockIndex{chunks: testChunks()}, &mockEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}, &mockProvider{}, knowledge.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.index, tt.embedder, tt.provider)
			answer, err := s.AnswerQuestion(context.Background(), "q")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if answer != "" {
				t.Errorf("Expected no partial answer, got %q", answer)
			}
		})
	}
}

func TestAnswerQuestion_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	content := "id,title,overview,genres,release_date,runtime,credits\n" +
		"1,Movie A,About A,Drama,2001-01-01,90,Director A\n" +
		"2,Movie B,About B,Comedy,2002-02-02,95,Director B\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	embedder := &mockEmbedder{vectors: map[string][]float32{
		"Which movie is a drama?": {1, 0},
	}}
	// Movie B gets an orthogonal vector; Movie A falls back to [1,0].
	embedder.vectors[canonical(t, path, 1)] = []float32{0, 1}

	provider := &mockProvider{response: "Movie A."}
	x := index.New(inmemory.New(), embedder, path)
	s := New(x, embedder, provider, WithTopK(1))

	answer, err := s.AnswerQuestion(context.Background(), "Which movie is a drama?")
	if err != nil {
		t.Fatalf("AnswerQuestion failed: %v", err)
	}
	if answer != "Movie A." {
		t.Errorf("Unexpected answer %q", answer)
	}

	prompt := provider.messages[1].Content
	if !strings.Contains(prompt, "Title: Movie A") || !strings.Contains(prompt, "Genres: Drama") {
		t.Errorf("Expected Movie A in context, got %q", prompt)
	}
	if strings.Contains(prompt, "Movie B") {
		t.Errorf("Expected only the top match in context, got %q", prompt)
	}
}

func canonical(t *testing.T, path string, row int) string {
	t.Helper()
	records, err := catalog.Read(path)
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	return records[row].Text
}
