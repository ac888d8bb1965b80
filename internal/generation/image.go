package generation

import (
	"context"
	"fmt"
)

// ImageGenerator produces a visual asset for a prompt and returns its
// URL. The concrete backend (Replicate, Vertex, a local diffusion
// server) stays an external collaborator behind this interface.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// imageEnhancementTemplate is the default quality wrapper applied to
// raw image prompts.
const imageEnhancementTemplate = "high quality, detailed, professional, %s, 4k resolution, photorealistic"

// imageStyleTemplates are named style wrappers selectable per campaign.
var imageStyleTemplates = map[string]string{
	"photorealistic": "%s, photorealistic, high detail, professional photography",
	"artistic":       "%s, artistic interpretation, creative, unique style",
	"minimalist":     "%s, minimalist design, clean, simple, elegant",
	"vibrant":        "%s, vibrant colors, bold, eye-catching, energetic",
}

// EnhanceImagePrompt wraps a raw prompt in quality and style modifiers.
// Unknown or empty styles fall back to the default enhancement.
func EnhanceImagePrompt(prompt, style string) string {
	if tmpl, ok := imageStyleTemplates[style]; ok {
		return fmt.Sprintf(tmpl, prompt)
	}
	return fmt.Sprintf(imageEnhancementTemplate, prompt)
}

// BuildImagePrompt renders the campaign visual-asset prompt.
func BuildImagePrompt(req Request) string {
	return EnhanceImagePrompt(fmt.Sprintf("marketing visual for %s's '%s' campaign: %s",
		req.Brand, req.CampaignName, req.Objective), "")
}
