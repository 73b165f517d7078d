// AngelaMos | 2026
// llm.go

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	hfembed "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"

	"github.com/carterperez-dev/quizforge/internal/config"
)

const (
	// SystemPreamble is prepended to every generation prompt.
	SystemPreamble = "Create clear questions based on the provided text. Format exactly as instructed."

	// MaxPromptChars bounds the user prompt before the preamble is added.
	MaxPromptChars = 800
)

func newModel(cfg config.LLMConfig, model string) (*huggingface.LLM, error) {
	opts := []huggingface.Option{
		huggingface.WithToken(cfg.HuggingFaceToken),
		huggingface.WithModel(model),
	}
	if cfg.InferenceURL != "" {
		opts = append(opts, huggingface.WithURL(cfg.InferenceURL))
	}

	m, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create huggingface client: %w", err)
	}
	return m, nil
}

// NewEmbedder builds the Hugging Face feature-extraction embedder.
func NewEmbedder(cfg config.LLMConfig) (embeddings.Embedder, error) {
	client, err := newModel(cfg, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	emb, err := hfembed.NewHuggingface(
		hfembed.WithClient(*client),
		hfembed.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return emb, nil
}

// Generator turns a prompt into one completion with fixed sampling settings.
type Generator struct {
	model       llms.Model
	maxTokens   int
	temperature float64
	topP        float64
}

func NewGenerator(cfg config.LLMConfig) (*Generator, error) {
	model, err := newModel(cfg, cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewGeneratorWithModel(model, cfg), nil
}

func NewGeneratorWithModel(model llms.Model, cfg config.LLMConfig) *Generator {
	return &Generator{
		model:       model,
		maxTokens:   cfg.MaxNewTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
}

// Generate sends the preamble and the capped prompt and returns the trimmed
// completion.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt)
}

// GenerateJSON asks the model for a JSON object reply.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, llms.WithJSONMode())
}

func (g *Generator) generate(
	ctx context.Context,
	prompt string,
	extra ...llms.CallOption,
) (string, error) {
	opts := append([]llms.CallOption{
		llms.WithTemperature(g.temperature),
		llms.WithTopP(g.topP),
		llms.WithMaxTokens(g.maxTokens),
		llms.WithMaxLength(g.maxTokens),
	}, extra...)

	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, BuildPrompt(prompt), opts...)
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// BuildPrompt caps the prompt at MaxPromptChars runes and prepends the
// system preamble.
func BuildPrompt(prompt string) string {
	if r := []rune(prompt); len(r) > MaxPromptChars {
		prompt = string(r[:MaxPromptChars])
	}
	return SystemPreamble + "\n\n" + prompt
}
