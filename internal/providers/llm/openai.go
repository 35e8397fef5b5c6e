package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/matchfit/matchfit/internal/utils"
)

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	const op = "llm.NewOpenAI"

	if strings.TrimSpace(apiKey) == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "OPENAI_API_KEY is not set", nil)
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}, nil
}

func (o *OpenAI) Close() error { return nil }

func (o *OpenAI) request(req Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.JSONMode {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	const op = "OpenAI.Complete"

	resp, err := o.client.CreateChatCompletion(ctx, o.request(req, false))
	if err != nil {
		return "", classifyOpenAIError(op, err)
	}

	if len(resp.Choices) == 0 {
		return "", utils.E(utils.CodeBadResponse, op, "empty response from model", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", utils.E(utils.CodeBadResponse, op, "empty response from model", nil)
	}
	return text, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	const op = "OpenAI.Stream"

	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		stream, err := o.client.CreateChatCompletionStream(ctx, o.request(req, true))
		if err != nil {
			errs <- classifyOpenAIError(op, err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- classifyOpenAIError(op, err)
				return
			}

			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- choice.Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

// classifyOpenAIError maps upstream failures onto the closed error taxonomy.
// Retryability comes from the code, never from message sniffing.
func classifyOpenAIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.E(utils.CodeTimeout, op, "model call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return utils.E(utils.CodeUnavailable, op, "model call cancelled", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return utils.E(utils.CodeUnauthorized, op, "invalid model credentials", err)
		case apiErr.Type == "insufficient_quota":
			return utils.E(utils.CodeQuotaExceeded, op, "model quota exceeded", err)
		case apiErr.Code == "content_filter" || apiErr.Type == "content_policy_violation":
			return utils.E(utils.CodeContentPolicy, op, "content policy violation", err)
		case apiErr.HTTPStatusCode == 404:
			return utils.E(utils.CodeUnavailable, op, "model unavailable", err)
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return utils.E(utils.CodeUnavailable, op, "model temporarily unavailable", err)
		}
	}
	return utils.E(utils.CodeUnavailable, op, "model call failed", err)
}
