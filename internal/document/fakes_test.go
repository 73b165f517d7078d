// AngelaMos | 2026
// fakes_test.go

package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/schema"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/subscription"
)

type memRepo struct {
	mu      sync.Mutex
	docs    map[string]*Document
	chunks  map[string][]Chunk
	failAdd error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string]*Document{}, chunks: map[string][]Chunk{}}
}

func (m *memRepo) CreateWithChunks(_ context.Context, doc *Document, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return m.failAdd
	}
	doc.CreatedAt = time.Now()
	cp := *doc
	m.docs[doc.ID] = &cp
	m.chunks[doc.ID] = append([]Chunk(nil), chunks...)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Document{}
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	docs, err := m.ListByUser(ctx, userID)
	return len(docs), err
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("delete document: %w", core.ErrNotFound)
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

// Search ranks by squared euclidean distance, which orders unit vectors the
// same way cosine distance does.
func (m *memRepo) Search(_ context.Context, documentID string, q pgvector.Vector, k int) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := q.Slice()
	matches := []Match{}
	for _, c := range m.chunks[documentID] {
		var d float64
		for i, v := range c.Embedding.Slice() {
			diff := float64(v - qs[i])
			d += diff * diff
		}
		matches = append(matches, Match{ChunkIndex: c.Index, Page: c.Page, Content: c.Content, Distance: d})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.objects[key] = data
	return nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) Ping(context.Context) error { return nil }

// hashEmbedder maps text to a deterministic unit-ish vector keyed on its
// first word so that queries sharing a first word land near each other.
type hashEmbedder struct {
	err   error
	calls int
}

func (e *hashEmbedder) vector(text string) []float32 {
	v := make([]float32, EmbeddingDimensions)
	word := strings.ToLower(strings.Fields(text + " x")[0])
	var h uint32 = 2166136261
	for i := 0; i < len(word); i++ {
		h ^= uint32(word[i])
		h *= 16777619
	}
	v[h%EmbeddingDimensions] = 1
	return v
}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

type quotaFunc func(owned int) error

func (q quotaFunc) CheckDocumentUpload(_ context.Context, _ string, owned int) error {
	return q(owned)
}

func freeQuota(owned int) error {
	if owned >= 3 {
		return subscription.ErrDocumentLimit
	}
	return nil
}

func pagesLoader(pages ...string) PageLoader {
	return func(context.Context, io.ReaderAt, int64) ([]schema.Document, error) {
		docs := make([]schema.Document, len(pages))
		for i, p := range pages {
			docs[i] = schema.Document{
				PageContent: p,
				Metadata:    map[string]any{"page": i + 1, "total_pages": len(pages)},
			}
		}
		return docs, nil
	}
}

func brokenLoader(context.Context, io.ReaderAt, int64) ([]schema.Document, error) {
	return nil, errors.New("malformed PDF: missing xref")
}

func panickingLoader(context.Context, io.ReaderAt, int64) ([]schema.Document, error) {
	panic("runtime error: slice bounds out of range [:4101] with capacity 4096")
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	blobs    *memBlobs
	embedder *hashEmbedder
}

func newFixture(t *testing.T, loader PageLoader) *fixture {
	t.Helper()

	f := &fixture{repo: newMemRepo(), blobs: newMemBlobs(), embedder: &hashEmbedder{}}
	f.svc = NewService(
		f.repo,
		f.blobs,
		f.embedder,
		quotaFunc(freeQuota),
		config.DocumentsConfig{ChunkSize: 200, ChunkOverlap: 20},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	f.svc.load = loader
	return f
}
