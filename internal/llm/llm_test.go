// AngelaMos | 2026
// llm_test.go

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/carterperez-dev/quizforge/internal/config"
)

type recordingModel struct {
	prompt string
	opts   llms.CallOptions
	reply  string
	err    error
}

func (m *recordingModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&m.opts)
	}
	m.prompt = messages[0].Parts[0].(llms.TextContent).Text

	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{MaxNewTokens: 250, Temperature: 0.4, TopP: 0.8}
}

func TestGenerateAppliesSamplingAndPreamble(t *testing.T) {
	m := &recordingModel{reply: "  Question: What?\nAnswer: That.  \n"}
	g := NewGeneratorWithModel(m, testLLMConfig())

	out, err := g.Generate(context.Background(), "Based on this text: hello")
	require.NoError(t, err)

	assert.Equal(t, "Question: What?\nAnswer: That.", out)
	assert.True(t, strings.HasPrefix(m.prompt, SystemPreamble+"\n\n"))
	assert.InDelta(t, 0.4, m.opts.Temperature, 1e-9)
	assert.InDelta(t, 0.8, m.opts.TopP, 1e-9)
	assert.Equal(t, 250, m.opts.MaxLength)
	assert.False(t, m.opts.JSONMode)
}

func TestGenerateJSONSetsJSONMode(t *testing.T) {
	m := &recordingModel{reply: `{"question":"q"}`}
	g := NewGeneratorWithModel(m, testLLMConfig())

	_, err := g.GenerateJSON(context.Background(), "p")
	require.NoError(t, err)
	assert.True(t, m.opts.JSONMode)
}

func TestGenerateWrapsModelError(t *testing.T) {
	g := NewGeneratorWithModel(&recordingModel{err: errors.New("503 loading")}, testLLMConfig())

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "text generation")
}

func TestBuildPromptCapsLength(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := BuildPrompt(long)

	assert.Len(t, got, len(SystemPreamble)+2+MaxPromptChars)
	assert.Equal(t, SystemPreamble+"\n\nshort", BuildPrompt("short"))
}
