// Package extract turns free-form text into validated card drafts via an
// external AI provider and folds every provider failure shape into one
// uniform error taxonomy.
package extract

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// systemPrompt instructs the model to emit a bare JSON array of tasks.
const systemPrompt = `You are a specialized JSON generator. You extract tasks from text.

RULES:
1. Output ONLY a valid JSON array. No text before or after.
2. No markdown formatting (no ` + "```json" + `).
3. Extract tasks with these specific fields:
   - "title": (string) Summary of the task
   - "description": (string) Details, or empty string
   - "priority": (enum) "None", "Low", "Medium", "High", "Urgent". Default "Medium".
   - "tag": (enum) "Bug", "Feature", "Enhancement", "Learning", "Idea". Default "Feature".

Example Output:
[{"title": "Fix login", "description": "Login button broken", "priority": "High", "tag": "Bug"}]`

// Client is a single provider's request contract: given the user's text,
// return the provider's raw response payload. Implementations never
// normalize; they only translate their vendor's error envelope into the
// taxonomy.
type Client interface {
	Extract(ctx context.Context, input string) (string, error)
}

// Service selects the provider client from validated settings and runs
// one extraction call. The service itself holds no state between calls;
// re-entrancy control (one request in flight per user action) is the
// caller's concern.
type Service struct {
	timeout time.Duration
	logger  *log.Logger
}

// NewService creates an extraction service. timeout bounds each provider
// call; zero means no deadline beyond the caller's context.
func NewService(timeout time.Duration, logger *log.Logger) *Service {
	return &Service{timeout: timeout, logger: logger}
}

// clientFor builds the provider client for the active settings variant.
func (s *Service) clientFor(ctx context.Context, settings domain.Settings) (Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	id, ps := settings.Active()
	switch id {
	case domain.ProviderGemini:
		return NewGeminiClient(ctx, ps)
	default:
		if ps.APIKey == "" {
			return nil, &Error{Kind: KindAuth, Message: "an API key is required for " + string(id) + "; configure it in settings"}
		}
		return NewOpenAICompatClient(ps), nil
	}
}

// Extract runs one provider call and normalizes the result. On any
// failure the returned error carries a taxonomy kind and the board is
// never touched; the caller decides whether to retry.
func (s *Service) Extract(ctx context.Context, settings domain.Settings, input string) ([]domain.Draft, error) {
	client, err := s.clientFor(ctx, settings)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := client.Extract(ctx, input)
	if err != nil {
		return nil, err
	}

	drafts, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(log.Fields{
			"provider": settings.Provider,
			"drafts":   len(drafts),
		}).Debug("extraction completed")
	}
	return drafts, nil
}
