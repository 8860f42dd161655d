// Package ai holds the model provider clients used by the enrichment
// pipeline. Each provider is a small interface so tests can stub it.
package ai

import "context"

// CaptionResult is the captioner output: one sentence plus short tags.
type CaptionResult struct {
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
}

// Object is a single object-detector hit.
type Object struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Emotion is the emotion distribution for one detected face.
type Emotion struct {
	Dominant string             `json:"dominant"`
	Scores   map[string]float64 `json:"scores"`
}

// Captioner produces a natural-language caption and tags for a photo.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (*CaptionResult, error)
}

// ObjectDetector lists objects visible in a photo.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, imageData []byte) ([]Object, error)
}

// EmotionDetector scores facial emotions. The caption is an optional
// hint; detectors may fall back to it when no model is reachable.
type EmotionDetector interface {
	DetectEmotions(ctx context.Context, imageData []byte, caption string) ([]Emotion, error)
}

// FaceDetector returns cropped face images found in a photo.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) ([][]byte, error)
}

// Embedder maps images and text into the shared embedding space.
type Embedder interface {
	EmbedImage(ctx context.Context, imageData []byte) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
