package ai

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

//go:embed prompts/objects.txt
var objectsPrompt string

const objectsModel = openai.ChatModelGPT4_1Mini

// OpenAIObjectDetector lists objects in a photo via an OpenAI vision model.
type OpenAIObjectDetector struct {
	client *openai.Client
}

var _ ObjectDetector = (*OpenAIObjectDetector)(nil)

func NewOpenAIObjectDetector(apiKey string) *OpenAIObjectDetector {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIObjectDetector{client: &client}
}

func (p *OpenAIObjectDetector) DetectObjects(ctx context.Context, imageData []byte) ([]Object, error) {
	const maxRetries = 3

	resized, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(objectsPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("List the objects in this photo."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastErr error
	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    objectsModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(500),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		content := resp.Choices[0].Message.Content
		var parsed struct {
			Objects []Object `json:"objects"`
		}
		if err := json.Unmarshal([]byte(stripCodeFences(content)), &parsed); err != nil {
			lastErr = err
			// Feed the parse error back so the model can fix its JSON.
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)),
						},
					},
				},
			)
			continue
		}
		return parsed.Objects, nil
	}

	return nil, fmt.Errorf("failed to parse objects JSON after %d attempts: %w", maxRetries, lastErr)
}
