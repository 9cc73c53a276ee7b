// Package llm wraps sashabaranov/go-openai behind the two roles SPEC_FULL
// §C names: a text model for Markdown summarization (no layout_type hint
// is requested), and a vision model for cover-image description, which no
// adapter calls. The provider-registry shape follows the
// teacher's internal/models/provider package, trimmed to the two roles this
// domain needs instead of the teacher's full vendor matrix.
package llm

import "fmt"

// ProviderName identifies an OpenAI-API-compatible backend.
type ProviderName string

const (
	ProviderOpenAI  ProviderName = "openai"
	ProviderGeneric ProviderName = "generic"
)

// Config is the per-role connection config (§6: TEXT_LLM_* / VISION_LLM_*).
type Config struct {
	APIKey    string
	BaseURL   string
	ModelName string
}

// Provider validates a Config before a client is built from it.
type Provider interface {
	Name() ProviderName
	ValidateConfig(cfg *Config) error
}

type openAIProvider struct{}

func (openAIProvider) Name() ProviderName { return ProviderOpenAI }
func (openAIProvider) ValidateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required for the openai provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

type genericProvider struct{}

func (genericProvider) Name() ProviderName { return ProviderGeneric }
func (genericProvider) ValidateConfig(cfg *Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base URL is required for the generic provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

var registry = map[ProviderName]Provider{
	ProviderOpenAI:  openAIProvider{},
	ProviderGeneric: genericProvider{},
}

// Get returns the named provider, if registered.
func Get(name ProviderName) (Provider, bool) {
	p, ok := registry[name]
	return p, ok
}

// GetOrDefault returns the named provider, falling back to the generic
// OpenAI-compatible provider for any unrecognized name (self-hosted/local
// model gateways all look "generic" from here).
func GetOrDefault(name ProviderName) Provider {
	if p, ok := registry[name]; ok {
		return p
	}
	return registry[ProviderGeneric]
}

// DetectProvider classifies a base URL as openai or generic.
func DetectProvider(baseURL string) ProviderName {
	if baseURL == "" || baseURL == "https://api.openai.com/v1" {
		return ProviderOpenAI
	}
	return ProviderGeneric
}
