package pipeline

import (
	"fmt"

	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/job"
)

// ComposeEffectivePrompt builds the effective prompt: the raw prompt
// followed by an aspect-specific appendix reiterating canvas dimensions
// and safe margin.
func ComposeEffectivePrompt(rawPrompt string, aspect job.Aspect) string {
	canvas := job.CanvasFor(aspect)
	appendix := fmt.Sprintf(
		"Render for a %dx%d canvas with a %dpx safe margin on every edge.",
		canvas.WidthPx, canvas.HeightPx, canvas.SafeMarginPx,
	)
	return rawPrompt + "\n\n---\n" + appendix
}

// BuildUserInput assembles the user message content parts for a model
// call: text, plus an inline image part when imageDataURL is non-empty.
func BuildUserInput(text, imageDataURL string) agentclient.InputMessage {
	parts := []agentclient.InputContentPart{{Type: "input_text", Text: text}}
	if imageDataURL != "" {
		parts = append(parts, agentclient.InputContentPart{Type: "input_image", ImageURL: imageDataURL})
	}
	return agentclient.InputMessage{Role: "user", Content: parts}
}
