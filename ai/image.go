package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ImageProvider turns an image prompt into raw image bytes.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// NewImageProviderFromEnv picks the primary image provider from
// IMAGE_PROVIDER and wraps it with the Pollinations fallback, matching the
// failover order of the content side.
func NewImageProviderFromEnv() ImageProvider {
	pollinations := NewPollinationsProvider()

	if os.Getenv("IMAGE_PROVIDER") == "openai" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return &FallbackImageProvider{
				Primary:  NewOpenAIImageProvider(key),
				Fallback: pollinations,
			}
		}
		log.Println("[ImageProvider] OPENAI_API_KEY not set, using Pollinations only")
	}
	return pollinations
}

// FallbackImageProvider tries Primary and falls back once on any failure.
type FallbackImageProvider struct {
	Primary  ImageProvider
	Fallback ImageProvider
}

func (f *FallbackImageProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	data, err := f.Primary.GenerateImage(ctx, prompt)
	if err == nil {
		return data, nil
	}
	log.Printf("[ImageProvider] primary provider failed, falling back: %v", err)

	fallbackData, fallbackErr := f.Fallback.GenerateImage(ctx, prompt)
	if fallbackErr != nil {
		// Surface the original failure when the fallback also dies.
		return nil, err
	}
	return fallbackData, nil
}

// OpenAIImageProvider generates images through the OpenAI Images API.
type OpenAIImageProvider struct {
	client openai.Client
}

func NewOpenAIImageProvider(apiKey string) *OpenAIImageProvider {
	return &OpenAIImageProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (p *OpenAIImageProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	res, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI image error: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("no image generated")
	}

	data, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}
	return data, nil
}

const defaultPollinationsBaseURL = "https://pollinations.ai"

// PollinationsProvider is the zero-config backup image generator.
type PollinationsProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewPollinationsProvider() *PollinationsProvider {
	return &PollinationsProvider{
		BaseURL:    defaultPollinationsBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

func (p *PollinationsProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/p/%s?width=1024&height=576&nologo=true",
		p.BaseURL, url.PathEscape(prompt))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Pollinations request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Pollinations error: %d", res.StatusCode)
	}

	return io.ReadAll(res.Body)
}
