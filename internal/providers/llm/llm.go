package llm

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Request is a single chat-style call: system instruction plus user prompt.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSONMode asks the model for a single JSON object response.
	JSONMode bool
}

type Provider interface {
	// Complete returns the full response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream returns a stream of text chunks (incremental). The channels are
	// closed when the stream ends; cancelling ctx abandons the upstream call.
	Stream(ctx context.Context, req Request) (chunks <-chan string, errs <-chan error)
	Close() error
}

// NewFromEnv builds the configured provider. LLM_PROVIDER selects the backend
// ("openai" by default, "vertex" for Gemini on Vertex AI).
func NewFromEnv(ctx context.Context) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))) {
	case "", "openai":
		return NewOpenAI(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	case "vertex":
		return NewVertexGemini(ctx, os.Getenv("GCP_PROJECT_ID"), os.Getenv("GCP_LOCATION"), os.Getenv("VERTEX_MODEL"))
	default:
		return nil, errors.New("LLM_PROVIDER must be one of: openai, vertex")
	}
}
