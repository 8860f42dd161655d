package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// emotionKeywords maps a dominant emotion to caption words that imply it.
// Used as a degraded fallback when no emotion model is reachable.
var emotionKeywords = map[string][]string{
	"happy":     {"smiling", "smile", "laughing", "laugh", "happy", "joyful", "grinning", "celebrating"},
	"sad":       {"crying", "sad", "tears", "frowning", "upset", "mourning"},
	"angry":     {"angry", "yelling", "shouting", "frustrated", "furious"},
	"surprised": {"surprised", "shocked", "astonished", "amazed"},
	"fearful":   {"scared", "afraid", "frightened", "terrified"},
}

// EmotionClient calls an external facial-emotion API. When no endpoint
// is configured, or the call fails, it falls back to a caption-keyword
// heuristic so the pipeline still produces a usable distribution.
type EmotionClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

var _ EmotionDetector = (*EmotionClient)(nil)

func NewEmotionClient(url, apiKey string) *EmotionClient {
	return &EmotionClient{
		url:    strings.TrimSuffix(url, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *EmotionClient) DetectEmotions(ctx context.Context, imageData []byte, caption string) ([]Emotion, error) {
	if c.url == "" {
		return CaptionEmotions(caption), nil
	}

	emotions, err := c.detectRemote(ctx, imageData)
	if err != nil {
		// Degrade to the heuristic rather than failing the stage.
		return CaptionEmotions(caption), nil
	}
	return emotions, nil
}

func (c *EmotionClient) detectRemote(ctx context.Context, imageData []byte) ([]Emotion, error) {
	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(imageData),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emotion API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emotion API returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Faces []struct {
			Emotions map[string]float64 `json:"emotions"`
		} `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode emotion response: %w", err)
	}

	var out []Emotion
	for _, face := range parsed.Faces {
		if len(face.Emotions) == 0 {
			continue
		}
		out = append(out, Emotion{
			Dominant: dominantEmotion(face.Emotions),
			Scores:   face.Emotions,
		})
	}
	return out, nil
}

// CaptionEmotions derives a single emotion from caption keywords. Returns
// nil when the caption implies nothing.
func CaptionEmotions(caption string) []Emotion {
	lower := strings.ToLower(caption)
	if lower == "" {
		return nil
	}

	// Stable iteration so repeated runs pick the same emotion.
	names := make([]string, 0, len(emotionKeywords))
	for name := range emotionKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, kw := range emotionKeywords[name] {
			if strings.Contains(lower, kw) {
				return []Emotion{{
					Dominant: name,
					Scores:   map[string]float64{name: 0.75, "neutral": 0.25},
				}}
			}
		}
	}
	return nil
}

func dominantEmotion(scores map[string]float64) string {
	var best string
	bestScore := -1.0
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if scores[name] > bestScore {
			best = name
			bestScore = scores[name]
		}
	}
	return best
}
