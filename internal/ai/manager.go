package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
	EmbedDim      int
}

// Manager fronts the configured generator and embedder with the guarantees
// the pipeline relies on: embeddings always have the configured dimension,
// oversized input is rejected rather than truncated, and there is exactly one
// attempt per provider call.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
	}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}
	if m.cfg.MaxInputChars > 0 && utf8.RuneCountInString(text) > m.cfg.MaxInputChars {
		return nil, fmt.Errorf("embedding input exceeds %d chars, chunk before embedding", m.cfg.MaxInputChars)
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	vec, err := m.embedder.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	// A wrong-dimension vector would corrupt every later comparison.
	if m.cfg.EmbedDim > 0 && len(vec) != m.cfg.EmbedDim {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), m.cfg.EmbedDim)
	}
	return vec, nil
}

// Answer builds the instruction+context+question prompt and issues a single
// generation call. An empty context is stated explicitly in the prompt so the
// model declines instead of answering from parametric knowledge.
func (m *Manager) Answer(ctx context.Context, question string, contextText string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured")
	}
	prompt := BuildAnswerPrompt(question, contextText)
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func BuildAnswerPrompt(question string, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return fmt.Sprintf(`You are an assistant answering questions about product manuals.
No grounding material was found in the indexed manuals for this question.
Say that the manuals contain no relevant information. Do not answer from general knowledge.

QUESTION:
%s`, question)
	}
	return fmt.Sprintf(`You are an assistant answering questions about product manuals.
Answer the question using ONLY the manual excerpts below.
- Cite the excerpt titles you relied on.
- If the excerpts do not contain the answer, say so.
- Use the same language as the question.

MANUAL EXCERPTS:
%s

QUESTION:
%s`, contextText, question)
}

func (m *Manager) EmbedDim() int {
	return m.cfg.EmbedDim
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}
