package gemini

import (
	"context"

	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by the generator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// scriptPromptData represents the data passed to the script template
type scriptPromptData struct {
	Duration    string
	Topic       string
	TargetWords int
}

// keywordPromptData represents the data passed to the keyword template
type keywordPromptData struct {
	Segments string
}
