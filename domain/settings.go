package domain

import "fmt"

// ProviderID identifies a task-extraction provider.
type ProviderID string

const (
	ProviderGemini ProviderID = "gemini"
	ProviderZhipu  ProviderID = "zhipu"
)

// Valid reports whether the provider id is known.
func (p ProviderID) Valid() bool {
	return p == ProviderGemini || p == ProviderZhipu
}

// ProviderSettings carries the per-provider connection details. Endpoint
// overrides the provider default when set.
type ProviderSettings struct {
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Settings selects the active extraction provider and holds the settings
// for each known provider. One variant per provider id, validated here at
// the settings boundary rather than ad hoc at every call site.
type Settings struct {
	Provider ProviderID                      `json:"provider"`
	Per      map[ProviderID]ProviderSettings `json:"providerSettings"`
}

// Default models and endpoints per provider, mirroring the shipped
// provider catalog.
const (
	DefaultGeminiModel   = "gemini-3.0-flash"
	DefaultZhipuModel    = "glm-4.7"
	DefaultZhipuEndpoint = "https://api.z.ai/api/coding/paas/v4/chat/completions"
)

// DefaultSettings returns settings with Gemini active and empty keys.
func DefaultSettings() Settings {
	return Settings{
		Provider: ProviderGemini,
		Per: map[ProviderID]ProviderSettings{
			ProviderGemini: {},
			ProviderZhipu:  {},
		},
	}
}

// Validate checks the settings document once, at the boundary.
func (s Settings) Validate() error {
	if !s.Provider.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown provider %q", s.Provider)}
	}
	for id := range s.Per {
		if !id.Valid() {
			return &ValidationError{Reason: fmt.Sprintf("settings for unknown provider %q", id)}
		}
	}
	return nil
}

// Active resolves the active provider's settings with defaults applied
// for model and endpoint.
func (s Settings) Active() (ProviderID, ProviderSettings) {
	ps := s.Per[s.Provider]
	switch s.Provider {
	case ProviderGemini:
		if ps.Model == "" {
			ps.Model = DefaultGeminiModel
		}
	case ProviderZhipu:
		if ps.Model == "" {
			ps.Model = DefaultZhipuModel
		}
		if ps.Endpoint == "" {
			ps.Endpoint = DefaultZhipuEndpoint
		}
	}
	return s.Provider, ps
}
