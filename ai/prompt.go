package ai

import (
	"fmt"
	"strings"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
)

// buildPrompt renders the shared generation prompt. Every provider uses the
// same wording so switching providers doesn't change content style.
func buildPrompt(req Request) string {
	limits, ok := models.PlatformLimits[req.Platform]
	if !ok {
		limits = models.PlatformLimit{Text: 2000, Hashtags: 5}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a social media content expert. Generate a %s post about the following topic.\n\n", req.Platform)
	fmt.Fprintf(&b, "TOPIC: %s\n", req.Topic)
	if req.Notes != "" {
		fmt.Fprintf(&b, "ADDITIONAL CONTEXT: %s\n", req.Notes)
	}
	if req.BrandVoice != "" {
		fmt.Fprintf(&b, "BRAND VOICE: %s\n", req.BrandVoice)
	}

	b.WriteString("\nREQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Maximum %d characters for the post content\n", limits.Text)
	fmt.Fprintf(&b, "- Include up to %d relevant hashtags\n", limits.Hashtags)
	b.WriteString("- Make it engaging and professional\n")

	switch req.Platform {
	case models.PlatformLinkedIn:
		b.WriteString("- Use a professional, thought-leadership tone\n")
	case models.PlatformTwitter:
		b.WriteString("- Be concise and punchy, include 1-2 emojis\n")
	case models.PlatformFacebook:
		b.WriteString("- Be conversational and encourage engagement\n")
	case models.PlatformInstagram:
		b.WriteString("- Focus on visual storytelling, use emojis generously\n")
	}

	b.WriteString(`
RESPOND IN THIS EXACT JSON FORMAT:
{
  "content": "Your post content here without hashtags",
  "hashtags": ["hashtag1", "hashtag2", "hashtag3"],
  "imagePrompt": "A description for generating an accompanying image"
}

Respond ONLY with valid JSON, no additional text.`)

	return b.String()
}
