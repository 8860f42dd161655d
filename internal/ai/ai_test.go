package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestResizeImage(t *testing.T) {
	data := testJPEG(t, 1600, 900)

	resized, err := ResizeImage(data, 800)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("expected width 800, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 450 {
		t.Errorf("expected height 450, got %d", img.Bounds().Dy())
	}
}

func TestResizeImageSmallPassthrough(t *testing.T) {
	data := testJPEG(t, 100, 80)

	resized, err := ResizeImage(data, 800)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("expected 100x80, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.input); got != tt.expected {
				t.Errorf("stripCodeFences(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCaptionEmotions(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		dominant string
		none     bool
	}{
		{name: "smiling implies happy", caption: "A smiling woman at the beach", dominant: "happy"},
		{name: "crying implies sad", caption: "a child crying at a party", dominant: "sad"},
		{name: "no emotional words", caption: "a mountain at sunset", none: true},
		{name: "empty caption", caption: "", none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CaptionEmotions(tt.caption)
			if tt.none {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one emotion, got %d", len(got))
			}
			if got[0].Dominant != tt.dominant {
				t.Errorf("expected dominant %q, got %q", tt.dominant, got[0].Dominant)
			}
			if got[0].Scores[tt.dominant] != 0.75 || got[0].Scores["neutral"] != 0.25 {
				t.Errorf("unexpected scores %+v", got[0].Scores)
			}
		})
	}
}

func TestEmotionClientFallsBackWithoutURL(t *testing.T) {
	client := NewEmotionClient("", "")
	got, err := client.DetectEmotions(context.Background(), nil, "a laughing man")
	if err != nil {
		t.Fatalf("DetectEmotions failed: %v", err)
	}
	if len(got) != 1 || got[0].Dominant != "happy" {
		t.Errorf("expected happy fallback, got %+v", got)
	}
}

func TestEmotionClientRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{"emotions": map[string]float64{"happy": 0.8, "neutral": 0.2}},
			},
		})
	}))
	defer server.Close()

	client := NewEmotionClient(server.URL, "key")
	got, err := client.DetectEmotions(context.Background(), []byte("img"), "")
	if err != nil {
		t.Fatalf("DetectEmotions failed: %v", err)
	}
	if len(got) != 1 || got[0].Dominant != "happy" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestFaceClient(t *testing.T) {
	crop := []byte{0xff, 0xd8, 0xff}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []string{base64.StdEncoding.EncodeToString(crop)},
		})
	}))
	defer server.Close()

	client := NewFaceClient(server.URL)
	faces, err := client.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if len(faces) != 1 || !bytes.Equal(faces[0], crop) {
		t.Errorf("unexpected faces %+v", faces)
	}
}

func TestEmbeddingClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed/image", "/embed/text":
			json.NewEncoder(w).Encode(embeddingResponse{
				Dim:       3,
				Embedding: []float32{0.1, 0.2, 0.3},
				Model:     "clip",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL)

	emb, err := client.EmbedImage(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("EmbedImage failed: %v", err)
	}
	if len(emb) != 3 {
		t.Errorf("expected 3-dim embedding, got %d", len(emb))
	}

	emb, err = client.EmbedText(context.Background(), "a dog on a beach")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(emb) != 3 {
		t.Errorf("expected 3-dim embedding, got %d", len(emb))
	}

	if _, err := client.EmbedText(context.Background(), "  "); err == nil {
		t.Error("expected error for empty text")
	}
}
