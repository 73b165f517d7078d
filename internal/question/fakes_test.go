// AngelaMos | 2026
// fakes_test.go

package question

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/document"
)

const (
	testDocID = "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"
	testOwner = "owner"
)

type fakeDocs map[string]string

func (f fakeDocs) GetOwned(_ context.Context, id, userID string) (*document.Document, error) {
	owner, ok := f[id]
	if !ok || owner != userID {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}
	return &document.Document{ID: id, UserID: owner}, nil
}

type fakeRetriever struct {
	mu      sync.Mutex
	byQuery map[string][]string
	fixed   []string
	err     error
	queries []string
}

func (f *fakeRetriever) Search(_ context.Context, _, query string, k int) ([]document.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}

	contents := f.fixed
	if c, ok := f.byQuery[query]; ok {
		contents = c
	}
	if len(contents) > k {
		contents = contents[:k]
	}

	matches := make([]document.Match, 0, len(contents))
	for i, c := range contents {
		matches = append(matches, document.Match{ChunkIndex: i, Page: 1, Content: c})
	}
	return matches, nil
}

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	calls   int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", nil
	}
	return g.replies[(g.calls-1)%len(g.replies)], nil
}

type jsonGenerator struct {
	scriptedGenerator
	jsonReplies []string
	jsonPrompts []string
}

func (g *jsonGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jsonPrompts = append(g.jsonPrompts, prompt)
	return g.jsonReplies[(len(g.jsonPrompts)-1)%len(g.jsonReplies)], nil
}

type quotaFunc func(ctx context.Context, userID string) error

func (f quotaFunc) CheckQuestionGeneration(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

func unlimited(context.Context, string) error { return nil }

type recordingRepo struct {
	mu      sync.Mutex
	records []Generation
	err     error
}

func (r *recordingRepo) Record(_ context.Context, g *Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *g)
	return nil
}

type fixture struct {
	svc       *Service
	retriever *fakeRetriever
	generator TextGenerator
	repo      *recordingRepo
}

type fixtureOption func(*fixture, *Options, *Quota)

func withStructured() fixtureOption {
	return func(_ *fixture, o *Options, _ *Quota) { o.Structured = true }
}

func withQuota(q Quota) fixtureOption {
	return func(_ *fixture, _ *Options, dst *Quota) { *dst = q }
}

func newFixture(gen TextGenerator, retriever *fakeRetriever, opts ...fixtureOption) *fixture {
	f := &fixture{
		retriever: retriever,
		generator: gen,
		repo:      &recordingRepo{},
	}

	var options Options
	var quota Quota = quotaFunc(unlimited)
	for _, opt := range opts {
		opt(f, &options, &quota)
	}

	f.svc = NewService(
		fakeDocs{testDocID: testOwner},
		retriever,
		gen,
		quota,
		f.repo,
		options,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}
