package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/matchfit/matchfit/internal/utils"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) model(req Request) *vertexgenai.GenerativeModel {
	m := v.client.GenerativeModel(v.modelName)
	if req.System != "" {
		m.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(req.System)},
		}
	}
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	return m
}

func responseText(resp *vertexgenai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func (v *VertexGemini) Complete(ctx context.Context, req Request) (string, error) {
	const op = "VertexGemini.Complete"

	resp, err := v.model(req).GenerateContent(ctx, vertexgenai.Text(req.User))
	if err != nil {
		return "", classifyVertexError(op, err)
	}

	text := responseText(resp)
	if text == "" {
		return "", utils.E(utils.CodeBadResponse, op, "empty response from model", nil)
	}
	return text, nil
}

func (v *VertexGemini) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	const op = "VertexGemini.Stream"

	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		it := v.model(req).GenerateContentStream(ctx, vertexgenai.Text(req.User))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- classifyVertexError(op, err)
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					t, ok := part.(vertexgenai.Text)
					if !ok || string(t) == "" {
						continue
					}
					select {
					case out <- string(t):
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, errs
}

// Vertex surfaces gRPC status errors; without a stable per-cause contract the
// safe mapping is transient-unless-deadline.
func classifyVertexError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.E(utils.CodeTimeout, op, "model call timed out", err)
	}
	return utils.E(utils.CodeUnavailable, op, "model call failed", err)
}
