// Package quality scores photos with deterministic heuristics. Low-value
// photos (screenshots, duplicates, blurry shots) get a reduced importance
// score so search can push them down or filter them out.
package quality

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/fotofindr/internal/database"
)

// Penalty weights and feature thresholds. Tuned against a personal photo
// library; changing them changes stored importance scores.
const (
	duplicatePenalty        = 0.6
	screenshotRatioPenalty  = 0.3
	screenshotExactPenalty  = 0.2
	blurryPenalty           = 0.4
	darkPenalty             = 0.3
	monochromePenalty       = 0.2
	ratioHighThreshold      = 2.5
	ratioLowThreshold       = 0.4
	blurVarianceThreshold   = 50.0
	darkBrightnessThreshold = 20.0
	monochromeStdThreshold  = 10.0
)

// Flag values recorded on low-value photos.
const (
	FlagDuplicate  = "duplicate"
	FlagScreenshot = "screenshot"
	FlagBlurry     = "blurry"
	FlagDark       = "dark"
	FlagMonochrome = "monochrome"
)

// Scorer computes importance scores. The hash index makes duplicate
// detection durable across restarts.
type Scorer struct {
	hashes      database.HashIndex
	resolutions map[[2]int]struct{}
}

// NewScorer creates a scorer. Resolutions are exact screen sizes that
// mark a photo as a screenshot in either orientation.
func NewScorer(hashes database.HashIndex, resolutions [][2]int) *Scorer {
	lookup := make(map[[2]int]struct{}, len(resolutions)*2)
	for _, r := range resolutions {
		lookup[[2]int{r[0], r[1]}] = struct{}{}
		lookup[[2]int{r[1], r[0]}] = struct{}{}
	}
	return &Scorer{hashes: hashes, resolutions: lookup}
}

// Score computes the importance score and low-value flags for a photo.
// The same bytes always produce the same score for a given hash-index
// state; the only stateful feature is duplicate detection.
func (s *Scorer) Score(ctx context.Context, ownerID string, imageData []byte) (float64, []string, error) {
	sum := sha256.Sum256(imageData)
	duplicate, err := s.hashes.Seen(ctx, ownerID, hex.EncodeToString(sum[:]))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to check content hash: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	feat := analyze(img)

	var penalty float64
	var flags []string
	addFlag := func(flag string) {
		for _, f := range flags {
			if f == flag {
				return
			}
		}
		flags = append(flags, flag)
	}

	if duplicate {
		penalty += duplicatePenalty
		addFlag(FlagDuplicate)
	}

	ratio := float64(feat.width) / float64(feat.height)
	if ratio > ratioHighThreshold || ratio < ratioLowThreshold {
		penalty += screenshotRatioPenalty
		addFlag(FlagScreenshot)
	}
	if _, ok := s.resolutions[[2]int{feat.width, feat.height}]; ok {
		penalty += screenshotExactPenalty
		addFlag(FlagScreenshot)
	}

	if feat.laplacianVariance < blurVarianceThreshold {
		penalty += blurryPenalty
		addFlag(FlagBlurry)
	}
	if feat.brightness < darkBrightnessThreshold {
		penalty += darkPenalty
		addFlag(FlagDark)
	}
	if feat.channelStd < monochromeStdThreshold {
		penalty += monochromePenalty
		addFlag(FlagMonochrome)
	}

	score := math.Max(0, 1-penalty)
	return math.Round(score*1000) / 1000, flags, nil
}

type features struct {
	width             int
	height            int
	brightness        float64
	channelStd        float64
	laplacianVariance float64
}

// analyze extracts all pixel features in one pass plus one Laplacian
// convolution over the grayscale plane.
func analyze(img image.Image) features {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([]float64, width*height)
	var sum [3]float64
	var sumSq [3]float64

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r16, g16, b16, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r := float64(r16 >> 8)
			g := float64(g16 >> 8)
			b := float64(b16 >> 8)

			sum[0] += r
			sum[1] += g
			sum[2] += b
			sumSq[0] += r * r
			sumSq[1] += g * g
			sumSq[2] += b * b

			gray[y*width+x] = (r + g + b) / 3
		}
	}

	n := float64(width * height)
	var brightness, stdSum float64
	for c := 0; c < 3; c++ {
		mean := sum[c] / n
		brightness += mean
		variance := sumSq[c]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		stdSum += math.Sqrt(variance)
	}

	return features{
		width:             width,
		height:            height,
		brightness:        brightness / 3,
		channelStd:        stdSum / 3,
		laplacianVariance: laplacianVariance(gray, width, height),
	}
}

// laplacianVariance convolves the grayscale plane with the 4-neighbour
// Laplacian kernel and returns the variance of the response. Sharp images
// have strong edges and therefore high variance.
func laplacianVariance(gray []float64, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}

	innerW := width - 2
	innerH := height - 2
	n := float64(innerW * innerH)

	var sum, sumSq float64
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			v := gray[(y-1)*width+x] +
				gray[(y+1)*width+x] +
				gray[y*width+x-1] +
				gray[y*width+x+1] -
				4*gray[y*width+x]
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return variance
}
