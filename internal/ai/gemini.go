package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

//go:embed prompts/caption.txt
var captionPrompt string

const geminiMaxRetries = 3

// GeminiCaptioner captions photos with the Gemini API.
type GeminiCaptioner struct {
	client *genai.Client
	model  string
}

var _ Captioner = (*GeminiCaptioner)(nil)

// NewGeminiCaptioner creates a captioner backed by the Gemini API.
func NewGeminiCaptioner(ctx context.Context, apiKey, model string) (*GeminiCaptioner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCaptioner{client: client, model: model}, nil
}

func (g *GeminiCaptioner) Caption(ctx context.Context, imageData []byte) (*CaptionResult, error) {
	// Resize to cut upload size; captioning does not need full resolution.
	resized, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: captionPrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for range geminiMaxRetries {
		result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("Gemini API error: %w", err)
		}

		content := stripCodeFences(result.Text())
		var caption CaptionResult
		if err := json.Unmarshal([]byte(content), &caption); err != nil {
			lastErr = err
			continue
		}
		if caption.Caption == "" {
			lastErr = fmt.Errorf("empty caption in response: %s", content)
			continue
		}
		return &caption, nil
	}

	return nil, fmt.Errorf("failed to parse caption JSON after %d attempts: %w", geminiMaxRetries, lastErr)
}
