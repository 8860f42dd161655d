package quality

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/fotofindr/internal/database/memory"
)

var testResolutions = [][2]int{
	{1080, 1920},
	{1170, 2532},
	{1284, 2778},
	{390, 844},
}

// noisePNG builds a colorful high-frequency image that trips none of the
// quality heuristics. PNG keeps the noise lossless.
func noisePNG(t *testing.T, width, height int, seed uint32) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	state := seed
	next := func() uint8 {
		state = state*1664525 + 1013904223
		return uint8(state >> 24)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{next(), next(), next(), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func blackPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newScorer() *Scorer {
	return NewScorer(memory.NewStore(), testResolutions)
}

func TestScoreCleanPhoto(t *testing.T) {
	scorer := newScorer()
	data := noisePNG(t, 640, 480, 1)

	score, flags, err := scorer.Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected score 1.0, got %v", score)
	}
	if len(flags) != 0 {
		t.Errorf("expected no flags, got %v", flags)
	}
}

func TestScoreDuplicate(t *testing.T) {
	scorer := newScorer()
	data := noisePNG(t, 640, 480, 2)
	ctx := context.Background()

	if _, _, err := scorer.Score(ctx, "alice", data); err != nil {
		t.Fatalf("first Score failed: %v", err)
	}

	score, flags, err := scorer.Score(ctx, "alice", data)
	if err != nil {
		t.Fatalf("second Score failed: %v", err)
	}
	if score != 0.4 {
		t.Errorf("expected score 0.4, got %v", score)
	}
	if len(flags) != 1 || flags[0] != FlagDuplicate {
		t.Errorf("expected [duplicate], got %v", flags)
	}

	// Same bytes from another owner are not a duplicate.
	score, flags, err = scorer.Score(ctx, "bob", data)
	if err != nil {
		t.Fatalf("Score for other owner failed: %v", err)
	}
	if score != 1.0 || len(flags) != 0 {
		t.Errorf("expected clean result for other owner, got %v %v", score, flags)
	}
}

func TestScoreDarkImage(t *testing.T) {
	scorer := newScorer()
	data := blackPNG(t, 640, 480)

	score, flags, err := scorer.Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Flat black trips blurry, dark and monochrome: 1 - 0.4 - 0.3 - 0.2.
	if score != 0.1 {
		t.Errorf("expected score 0.1, got %v", score)
	}
	want := map[string]bool{FlagBlurry: true, FlagDark: true, FlagMonochrome: true}
	for _, f := range flags {
		if !want[f] {
			t.Errorf("unexpected flag %q", f)
		}
		delete(want, f)
	}
	for f := range want {
		t.Errorf("missing flag %q", f)
	}
}

func TestScoreExtremeAspectRatio(t *testing.T) {
	scorer := newScorer()
	data := noisePNG(t, 100, 300, 3)

	score, flags, err := scorer.Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.7 {
		t.Errorf("expected score 0.7, got %v", score)
	}
	if len(flags) != 1 || flags[0] != FlagScreenshot {
		t.Errorf("expected [screenshot], got %v", flags)
	}
}

func TestScoreExactScreenResolution(t *testing.T) {
	scorer := newScorer()
	data := noisePNG(t, 390, 844, 4)

	score, flags, err := scorer.Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.8 {
		t.Errorf("expected score 0.8, got %v", score)
	}
	if len(flags) != 1 || flags[0] != FlagScreenshot {
		t.Errorf("expected single screenshot flag, got %v", flags)
	}
}

func TestScoreDeterministic(t *testing.T) {
	data := noisePNG(t, 640, 480, 5)

	a, aFlags, err := newScorer().Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	b, bFlags, err := newScorer().Score(context.Background(), "alice", data)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if a != b || len(aFlags) != len(bFlags) {
		t.Errorf("score not deterministic: %v/%v vs %v/%v", a, aFlags, b, bFlags)
	}
}

func TestScoreBadImage(t *testing.T) {
	scorer := newScorer()
	if _, _, err := scorer.Score(context.Background(), "alice", []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
