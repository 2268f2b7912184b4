package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	domai "github.com/bryanwahyu/speech-coach/internal/domain/ai"
)

const defaultModel = "gemini-1.5-flash"

type generateFunc func(ctx context.Context, req domai.CompletionRequest) (*genai.GenerateContentResponse, error)

// Client completes prompts with a Gemini model hosted on Vertex AI.
// Authentication comes from application default credentials.
type Client struct {
	client   *genai.Client
	generate generateFunc
}

func NewClient(ctx context.Context, projectID, location, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	m := c.GenerativeModel(model)
	return &Client{
		client: c,
		generate: func(ctx context.Context, req domai.CompletionRequest) (*genai.GenerateContentResponse, error) {
			return withSampling(m, req).GenerateContent(ctx, genai.Text(req.Prompt))
		},
	}, nil
}

// withSampling returns a copy of m carrying the request's sampling settings.
// The shared model is never mutated, so concurrent calls do not race.
func withSampling(m *genai.GenerativeModel, req domai.CompletionRequest) *genai.GenerativeModel {
	cm := *m
	cm.SetTemperature(req.Temperature)
	cm.SetMaxOutputTokens(int32(req.MaxTokens))
	return &cm
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Complete(ctx context.Context, req domai.CompletionRequest) (string, error) {
	resp, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := collectText(resp)
	if strings.TrimSpace(text) == "" {
		return "", domai.ErrEmptyCompletion
	}
	return text, nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
