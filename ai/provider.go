// Package ai generates platform-tailored post content and images. The
// concrete provider is chosen by an explicit Config at construction time
// rather than a package-level singleton, so callers can run different
// providers side by side.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Kind selects one of the supported content providers.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindAnthropic Kind = "anthropic"
)

// Config selects and authenticates a provider.
type Config struct {
	Kind   Kind
	APIKey string
}

// Request carries everything the provider needs to write one post.
type Request struct {
	Topic      string
	Notes      string
	Platform   string
	BrandVoice string
}

// Generated is the provider's answer for a single platform post.
type Generated struct {
	Content     string   `json:"content" jsonschema_description:"The post text, without hashtags"`
	Hashtags    []string `json:"hashtags" jsonschema_description:"Relevant hashtags, without the leading # symbol"`
	ImagePrompt string   `json:"imagePrompt,omitempty" jsonschema_description:"A description for generating an accompanying image"`
}

// Provider produces post content for one topic/platform pair.
type Provider interface {
	GenerateContent(ctx context.Context, req Request) (*Generated, error)
}

// ConfigFromEnv builds a provider Config from AI_PROVIDER and the matching
// API key variable. Defaults to gemini, mirroring the free-tier-first setup.
func ConfigFromEnv() (Config, error) {
	kind := Kind(strings.ToLower(os.Getenv("AI_PROVIDER")))
	if kind == "" {
		kind = KindGemini
	}

	var keyVar string
	switch kind {
	case KindOpenAI:
		keyVar = "OPENAI_API_KEY"
	case KindAnthropic:
		keyVar = "ANTHROPIC_API_KEY"
	case KindGemini:
		keyVar = "GEMINI_API_KEY"
	default:
		return Config{}, fmt.Errorf("unknown AI_PROVIDER %q", kind)
	}

	key := os.Getenv(keyVar)
	if key == "" {
		return Config{}, fmt.Errorf("%s is not configured", keyVar)
	}
	return Config{Kind: kind, APIKey: key}, nil
}

// NewProvider builds the concrete provider for the config.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Kind {
	case KindOpenAI:
		return NewOpenAIProvider(cfg.APIKey), nil
	case KindGemini:
		return NewGeminiProvider(cfg.APIKey), nil
	case KindAnthropic:
		return NewAnthropicProvider(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
