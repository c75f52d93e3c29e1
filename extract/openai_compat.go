package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"kanban-api/domain"
)

// OpenAICompatClient calls any provider exposing the OpenAI Chat
// Completions API under a custom base URL. Zhipu GLM is the shipped
// configuration; the client itself is vendor-neutral.
type OpenAICompatClient struct {
	client openai.Client
	model  string
}

// NewOpenAICompatClient builds a Chat Completions client from the
// provider settings. The stored endpoint is the full completions URL, so
// the SDK's base URL is derived by trimming the well-known path suffix.
func NewOpenAICompatClient(ps domain.ProviderSettings) *OpenAICompatClient {
	opts := []option.RequestOption{option.WithAPIKey(sanitizeAPIKey(ps.APIKey))}
	if base := baseURLFromEndpoint(ps.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAICompatClient{
		client: openai.NewClient(opts...),
		model:  strings.ToLower(strings.TrimSpace(ps.Model)),
	}
}

// Extract sends the input with the task-extraction system prompt and
// returns the assistant message content.
func (c *OpenAICompatClient) Extract(ctx context.Context, input string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(input),
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "[]", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// mapOpenAIError folds OpenAI-shaped failures into the taxonomy. The
// structured status code and error type discriminate first; the vendor
// message is sniffed only when they are inconclusive. Zhipu reports an
// unknown model as error code 1211.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.StatusCode)
		switch {
		case apiErr.Type == "invalid_api_key":
			kind = KindAuth
		case apiErr.Code == "1211":
			kind = KindModel
		default:
			if k, ok := classifyMessage(apiErr.Message); ok {
				kind = k
			}
		}
		msg := apiErr.Message
		switch kind {
		case KindAuth:
			msg = "API token expired or incorrect; update your API key in settings"
		case KindModel:
			if msg == "" || apiErr.Code == "1211" {
				msg = "unknown model; pick a supported model in settings"
			}
		default:
			if msg == "" {
				msg = "the provider rejected the request"
			}
		}
		return &Error{Kind: kind, Message: msg, Cause: err}
	}
	if k, ok := classifyMessage(err.Error()); ok {
		return &Error{Kind: k, Message: err.Error(), Cause: err}
	}
	return &Error{Kind: KindTransport, Message: "could not reach the provider", Cause: err}
}

// sanitizeAPIKey drops non-ASCII bytes that would corrupt the
// Authorization header.
func sanitizeAPIKey(key string) string {
	key = strings.TrimSpace(key)
	var b strings.Builder
	for _, r := range key {
		if r <= 0x7F {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// baseURLFromEndpoint turns a stored completions URL into the SDK base.
func baseURLFromEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/chat/completions")
}
