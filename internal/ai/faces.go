package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// FaceClient calls an external face-detection service that returns
// cropped face images.
type FaceClient struct {
	url        string
	httpClient *http.Client
}

var _ FaceDetector = (*FaceClient)(nil)

func NewFaceClient(url string) *FaceClient {
	return &FaceClient{
		url: strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *FaceClient) DetectFaces(ctx context.Context, imageData []byte) ([][]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/faces", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face API returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Faces []string `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode face response: %w", err)
	}

	crops := make([][]byte, 0, len(parsed.Faces))
	for i, encoded := range parsed.Faces {
		crop, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode face %d: %w", i, err)
		}
		crops = append(crops, crop)
	}
	return crops, nil
}
