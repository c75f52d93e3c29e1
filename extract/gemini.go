package extract

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"kanban-api/domain"
)

// draftSchema constrains Gemini's structured output to the draft array
// shape, with the closed priority/tag enumerations inlined.
var draftSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"priority":    {Type: genai.TypeString, Enum: []string{"None", "Low", "Medium", "High", "Urgent"}},
			"tag":         {Type: genai.TypeString, Enum: []string{"Bug", "Feature", "Enhancement", "Learning", "Idea"}},
		},
		Required: []string{"title", "priority", "tag"},
	},
}

// GeminiClient calls the Gemini API with a JSON response schema.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client from the provider settings. An empty
// API key defers to the SDK's environment lookup; a custom endpoint
// overrides the API base URL.
func NewGeminiClient(ctx context.Context, ps domain.ProviderSettings) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  ps.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if ps.Endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: ps.Endpoint}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "failed to initialize the Gemini client", Cause: err}
	}
	return &GeminiClient{client: client, model: ps.Model}, nil
}

// Extract sends the input and returns the raw JSON payload text.
func (c *GeminiClient) Extract(ctx context.Context, input string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(input), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    draftSchema,
	})
	if err != nil {
		return "", mapGeminiError(err)
	}
	return resp.Text(), nil
}

// mapGeminiError folds Gemini failures into the taxonomy: the structured
// APIError code first, message sniffing only as a fallback.
func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.Code)
		if k, ok := classifyMessage(apiErr.Message); ok {
			kind = k
		}
		msg := apiErr.Message
		if msg == "" {
			msg = "the Gemini API rejected the request"
		}
		if kind == KindAuth {
			msg = "invalid API key; update it in settings"
		}
		return &Error{Kind: kind, Message: msg, Cause: err}
	}
	if k, ok := classifyMessage(err.Error()); ok {
		return &Error{Kind: k, Message: err.Error(), Cause: err}
	}
	return &Error{Kind: KindTransport, Message: "could not reach the Gemini API", Cause: err}
}
