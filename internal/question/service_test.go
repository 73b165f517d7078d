// AngelaMos | 2026
// service_test.go

package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/subscription"
)

const paxosChunk = "Paxos Consensus is used widely to agree on a single value."

func paxosRetriever() *fakeRetriever {
	return &fakeRetriever{fixed: []string{paxosChunk}}
}

func distinctRetriever() *fakeRetriever {
	byQuery := map[string][]string{}
	for _, topic := range queryTopics {
		byQuery[topic] = []string{"chunk about " + topic + " one", "chunk about " + topic + " two"}
	}
	for i := 0; i < extraTopics; i++ {
		q := fmt.Sprintf("topic_%d", i)
		byQuery[q] = []string{"extra " + q + " one", "extra " + q + " two"}
	}
	return &fakeRetriever{byQuery: byQuery}
}

func request(n int, types ...string) GenerateRequest {
	return GenerateRequest{PdfID: testDocID, NumQuestions: n, QuestionTypes: types}
}

func TestDistribute(t *testing.T) {
	assert.Equal(t, []int{3, 2}, distribute(5, []string{TypeMultipleChoice, TypeDescriptive}))
	assert.Equal(t, []int{2, 2}, distribute(4, []string{TypeDescriptive, TypeMultipleChoice}))
	assert.Equal(t, []int{1}, distribute(1, []string{TypeDescriptive}))
	assert.Equal(t, []int{1, 0}, distribute(1, []string{TypeMultipleChoice, TypeDescriptive}))
}

func TestGenerateReturnsExactCountWhenModelFails(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	f := newFixture(gen, distinctRetriever())

	resp, err := f.svc.Generate(context.Background(), testOwner, request(5))
	require.NoError(t, err)
	require.Len(t, resp.Questions, 5)

	seen := map[string]bool{}
	for i, q := range resp.Questions {
		assert.False(t, seen[q.Question], "duplicate %q", q.Question)
		seen[q.Question] = true

		if i < 3 {
			assert.Equal(t, TypeMultipleChoice, q.QuestionType)
			assert.Len(t, q.Options, 4)
		} else {
			assert.Equal(t, TypeDescriptive, q.QuestionType)
			assert.Nil(t, q.Options)
		}
	}

	assert.Equal(t, 5, gen.calls)
	require.Len(t, f.repo.records, 1)
	rec := f.repo.records[0]
	assert.Equal(t, testOwner, rec.UserID)
	assert.Equal(t, testDocID, rec.DocumentID)
	assert.Equal(t, 5, rec.Requested)
	assert.Equal(t, 5, rec.Generated)
	assert.Equal(t, 5, rec.FallbackCount)
}

func TestGenerateUsesModelReplyThenFallsBackOnDuplicate(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{raftMC}}
	f := newFixture(gen, paxosRetriever())

	resp, err := f.svc.Generate(context.Background(), testOwner, request(2, TypeMultipleChoice))
	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)

	assert.Equal(t, "What does Raft elect?", resp.Questions[0].Question)
	assert.Equal(t, "What characteristic of Paxos Consensus is emphasized in the content?", resp.Questions[1].Question)
	assert.Equal(t, "C - Its practical applications in real-world scenarios.", resp.Questions[1].Answer)
	assert.Equal(t, 1, f.repo.records[0].FallbackCount)
}

func TestGenerateCannedReplyForUnstructuredOutput(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"I am not sure what you mean."}}
	f := newFixture(gen, paxosRetriever())

	resp, err := f.svc.Generate(context.Background(), testOwner, request(2, TypeDescriptive))
	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)

	assert.Equal(t, "Explain the key concept presented in this text.", resp.Questions[0].Question)
	assert.Equal(t,
		"How does Paxos Consensus function within the system described in the text?",
		resp.Questions[1].Question,
	)
}

func TestFallbackCollisionGetsSuffix(t *testing.T) {
	used := map[string]bool{}

	first := fallbackQuestion(TypeMultipleChoice, 0, "Raft", used)
	second := fallbackQuestion(TypeMultipleChoice, 3, "Raft", used)
	assert.Equal(t, first.Question+" (expanded)", second.Question)

	d1 := fallbackQuestion(TypeDescriptive, 1, "Raft", used)
	d2 := fallbackQuestion(TypeDescriptive, 4, "Raft", used)
	assert.Equal(t, d1.Question+" (in detail)", d2.Question)
	assert.Contains(t, d1.Answer, "Raft encompasses several important aspects")
}

func TestGeneratePromptUsesTemplatesAndTruncatedFragment(t *testing.T) {
	long := "Leader Election " + strings.Repeat("x", 600)
	gen := &scriptedGenerator{err: errors.New("down")}
	f := newFixture(gen, &fakeRetriever{fixed: []string{long}})

	_, err := f.svc.Generate(context.Background(), testOwner, request(2, TypeDescriptive))
	require.NoError(t, err)
	require.Len(t, gen.prompts, 2)

	fragment := truncateRunes(long, fragmentLength)
	assert.True(t, strings.HasPrefix(gen.prompts[0], "Based on this text: "+fragment+"\n\n"))
	assert.NotContains(t, gen.prompts[0], long)
	assert.Contains(t, gen.prompts[0], "Create a descriptive question about Leader Election using this format:")
	assert.True(t, strings.HasPrefix(gen.prompts[1], "From the following content: "))
}

func TestBuildPoolStopsAtTwiceRequested(t *testing.T) {
	r := distinctRetriever()
	f := newFixture(&scriptedGenerator{}, r)

	pool, err := f.svc.buildPool(context.Background(), testDocID, 3)
	require.NoError(t, err)
	assert.Len(t, pool, 12)
	assert.Len(t, r.queries, poolTopics)

	r.queries = nil
	pool, err = f.svc.buildPool(context.Background(), testDocID, 10)
	require.NoError(t, err)
	assert.Len(t, pool, 20)
	assert.Equal(t, []string{"topic_0", "topic_1", "topic_2", "topic_3"}, r.queries[poolTopics:])
}

func TestBuildPoolDeduplicatesByPrefix(t *testing.T) {
	prefix := strings.Repeat("p", dedupPrefix)
	r := &fakeRetriever{fixed: []string{prefix + " tail one", prefix + " tail two"}}
	f := newFixture(&scriptedGenerator{}, r)

	pool, err := f.svc.buildPool(context.Background(), testDocID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + " tail one"}, pool)
	assert.Len(t, r.queries, poolTopics+extraTopics)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("empty pool", func(t *testing.T) {
		f := newFixture(&scriptedGenerator{}, &fakeRetriever{})
		_, err := f.svc.Generate(context.Background(), testOwner, request(3))
		assert.ErrorIs(t, err, ErrEmptyPool)
		assert.Empty(t, f.repo.records)
	})

	t.Run("foreign document", func(t *testing.T) {
		f := newFixture(&scriptedGenerator{}, paxosRetriever())
		_, err := f.svc.Generate(context.Background(), "intruder", request(3))
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("quota exhausted", func(t *testing.T) {
		gen := &scriptedGenerator{}
		f := newFixture(gen, paxosRetriever(), withQuota(quotaFunc(func(context.Context, string) error {
			return subscription.ErrQuestionLimit
		})))
		_, err := f.svc.Generate(context.Background(), testOwner, request(3))
		assert.ErrorIs(t, err, subscription.ErrQuestionLimit)
		assert.Zero(t, gen.calls)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		r := &fakeRetriever{err: fmt.Errorf("%w: embed query", core.ErrUpstream)}
		f := newFixture(&scriptedGenerator{}, r)
		_, err := f.svc.Generate(context.Background(), testOwner, request(3))
		assert.ErrorIs(t, err, core.ErrUpstream)
	})
}

func TestGenerateSurvivesRecordFailure(t *testing.T) {
	f := newFixture(&scriptedGenerator{err: errors.New("down")}, paxosRetriever())
	f.repo.err = errors.New("db down")

	resp, err := f.svc.Generate(context.Background(), testOwner, request(1))
	require.NoError(t, err)
	assert.Len(t, resp.Questions, 1)
}

func TestGenerateStructuredMode(t *testing.T) {
	gen := &jsonGenerator{
		jsonReplies: []string{
			`{"question": "Which protocol is described?", "options": ["Paxos", "Raft", "Gossip", "2PC"], "answer": "A - Paxos"}`,
			raftMC,
		},
	}
	f := newFixture(gen, paxosRetriever(), withStructured())

	resp, err := f.svc.Generate(context.Background(), testOwner, request(2, TypeMultipleChoice))
	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)

	assert.Equal(t, "Which protocol is described?", resp.Questions[0].Question)
	assert.Equal(t, []string{"Paxos", "Raft", "Gossip", "2PC"}, resp.Questions[0].Options)
	assert.Equal(t, "What does Raft elect?", resp.Questions[1].Question)

	assert.Zero(t, gen.calls)
	require.Len(t, gen.jsonPrompts, 2)
	assert.True(t, strings.HasPrefix(gen.jsonPrompts[0], "Respond only with a JSON object"))
}

func TestGenerateIgnoresStructuredWithoutSupport(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{raftMC}}
	f := newFixture(gen, paxosRetriever(), withStructured())

	resp, err := f.svc.Generate(context.Background(), testOwner, request(1, TypeMultipleChoice))
	require.NoError(t, err)
	assert.Equal(t, "What does Raft elect?", resp.Questions[0].Question)
	assert.Equal(t, 1, gen.calls)
}
