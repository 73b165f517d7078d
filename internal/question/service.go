// AngelaMos | 2026
// service.go

package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/document"
)

const (
	poolTopics     = 6
	poolTopicK     = 2
	extraTopics    = 10
	dedupPrefix    = 100
	fragmentLength = 350
)

var ErrEmptyPool = errors.New("no content available for question generation")

var tracer = otel.Tracer("quizforge/question")

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StructuredGenerator is implemented by generators that can be asked for a
// JSON object reply.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type Retriever interface {
	Search(ctx context.Context, documentID, query string, k int) ([]document.Match, error)
}

type DocumentFinder interface {
	GetOwned(ctx context.Context, id, userID string) (*document.Document, error)
}

type Quota interface {
	CheckQuestionGeneration(ctx context.Context, userID string) error
}

type Service struct {
	docs       DocumentFinder
	retriever  Retriever
	generator  TextGenerator
	quota      Quota
	repo       Repository
	structured bool
	logger     *slog.Logger
}

type Options struct {
	Structured bool
}

func NewService(
	docs DocumentFinder,
	retriever Retriever,
	generator TextGenerator,
	quota Quota,
	repo Repository,
	opts Options,
	logger *slog.Logger,
) *Service {
	return &Service{
		docs:       docs,
		retriever:  retriever,
		generator:  generator,
		quota:      quota,
		repo:       repo,
		structured: opts.Structured,
		logger:     logger,
	}
}

// Generate produces exactly req.NumQuestions questions for a document the
// user owns. Slots whose model reply cannot be used get a deterministic
// fallback question.
func (s *Service) Generate(
	ctx context.Context,
	userID string,
	req GenerateRequest,
) (*GenerateResponse, error) {
	req.Normalize()

	ctx, span := tracer.Start(ctx, "question.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", req.PdfID),
		attribute.Int("questions.requested", req.NumQuestions),
	)

	if _, err := s.docs.GetOwned(ctx, req.PdfID, userID); err != nil {
		return nil, err
	}

	if err := s.quota.CheckQuestionGeneration(ctx, userID); err != nil {
		return nil, err
	}

	pool, err := s.buildPool(ctx, req.PdfID, req.NumQuestions)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	core.AddSpanEvent(ctx, "pool.built", attribute.Int("pool.size", len(pool)))

	questions, fallbacks := s.generate(ctx, pool, req.NumQuestions, req.QuestionTypes)

	span.SetAttributes(
		attribute.Int("questions.generated", len(questions)),
		attribute.Int("questions.fallbacks", fallbacks),
	)

	gen := &Generation{
		ID:            uuid.New().String(),
		UserID:        userID,
		DocumentID:    req.PdfID,
		Requested:     req.NumQuestions,
		Generated:     len(questions),
		FallbackCount: fallbacks,
	}
	if err := s.repo.Record(ctx, gen); err != nil {
		s.logger.Warn("record generation failed",
			"user_id", userID,
			"document_id", req.PdfID,
			"error", err,
		)
	}

	s.logger.Info("questions generated",
		"user_id", userID,
		"document_id", req.PdfID,
		"generated", len(questions),
		"fallbacks", fallbacks,
	)

	return &GenerateResponse{Questions: questions}, nil
}

// buildPool gathers distinct chunk texts by querying fixed topics, then
// synthetic "topic_i" queries until the pool holds at least 2n entries.
func (s *Service) buildPool(ctx context.Context, documentID string, n int) ([]string, error) {
	var pool []string
	seen := make(map[string]bool)

	add := func(query string) error {
		matches, err := s.retriever.Search(ctx, documentID, query, poolTopicK)
		if err != nil {
			return fmt.Errorf("retrieve %q: %w", query, err)
		}
		for _, m := range matches {
			key := truncateRunes(m.Content, dedupPrefix)
			if strings.TrimSpace(m.Content) == "" || seen[key] {
				continue
			}
			seen[key] = true
			pool = append(pool, m.Content)
		}
		return nil
	}

	for _, topic := range queryTopics[:poolTopics] {
		if err := add(topic); err != nil {
			return nil, err
		}
	}

	for i := 0; i < extraTopics && len(pool) < 2*n; i++ {
		if err := add(fmt.Sprintf("topic_%d", i)); err != nil {
			return nil, err
		}
	}

	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	return pool, nil
}

// distribute splits n across types, giving the remainder one each to the
// leading types.
func distribute(n int, types []string) []int {
	counts := make([]int, len(types))
	per, rem := n/len(types), n%len(types)
	for i := range counts {
		counts[i] = per
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

func (s *Service) generate(
	ctx context.Context,
	pool []string,
	n int,
	types []string,
) ([]Question, int) {
	questions := make([]Question, 0, n)
	usedQuestions := make(map[string]bool)
	usedSubjects := make(map[string]bool)
	fallbacks := 0

	for t, count := range distribute(n, types) {
		qtype := types[t]

		for i := 0; i < count; i++ {
			offset := len(questions)
			fragment := truncateRunes(pool[(i+offset)%len(pool)], fragmentLength)

			subject := extractSubject(fragment, usedSubjects, i)
			usedSubjects[subject] = true

			q, err := s.ask(ctx, qtype, i, fragment, subject, usedQuestions)
			if err != nil {
				s.logger.Debug("using fallback question",
					"type", qtype,
					"slot", i,
					"error", err,
				)
				q = fallbackQuestion(qtype, i+offset, subject, usedQuestions)
				fallbacks++
			}

			questions = append(questions, q)
		}
	}

	return questions, fallbacks
}

// ask calls the model once for a slot and parses its reply.
func (s *Service) ask(
	ctx context.Context,
	qtype string,
	slot int,
	fragment, subject string,
	used map[string]bool,
) (Question, error) {
	prompt := buildPrompt(qtype, slot, fragment, subject)

	if sg, ok := s.generator.(StructuredGenerator); ok && s.structured {
		reply, err := sg.GenerateJSON(ctx, strings.TrimSpace(structuredSuffix)+"\n\n"+prompt)
		if err != nil {
			return Question{}, err
		}
		if q, err := parseStructured(reply, qtype, used); err == nil {
			return q, nil
		}
		return parseMarkers(withCanned(reply, qtype), qtype, used)
	}

	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Question{}, err
	}

	return parseMarkers(withCanned(reply, qtype), qtype, used)
}

func withCanned(reply, qtype string) string {
	if !strings.Contains(reply, markerQuestion) {
		return cannedReplies[qtype]
	}
	return reply
}

func fallbackQuestion(qtype string, idx int, subject string, used map[string]bool) Question {
	fb := fallbackFor(qtype, idx, subject)

	text := fb.question
	if used[text] {
		text += collisionSuffix(qtype)
	}
	used[text] = true

	q := Question{Question: text, Answer: fb.answer, QuestionType: qtype}
	if qtype == TypeMultipleChoice {
		q.Options = append([]string(nil), fb.options...)
	}
	return q
}
