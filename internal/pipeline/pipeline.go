// Package pipeline orchestrates the concurrent enrichment of uploaded
// photos: captioning, object detection, emotions, face clustering,
// quality scoring and embedding. Stages are isolated; a failing provider
// degrades its own output to a neutral default and the run still
// completes. Only the final persist can fail a photo.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/fotofindr/internal/ai"
	"github.com/kozaktomas/fotofindr/internal/cluster"
	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/quality"
	"github.com/kozaktomas/fotofindr/internal/storage"
)

// Providers bundles the model clients the pipeline fans out to. A nil
// provider skips its stage with a recorded degradation.
type Providers struct {
	Captioner ai.Captioner
	Objects   ai.ObjectDetector
	Emotions  ai.EmotionDetector
	Faces     ai.FaceDetector
	Embedder  ai.Embedder
}

// Options tunes the orchestrator.
type Options struct {
	// StageTimeout bounds each individual provider call.
	StageTimeout time.Duration
	// CaptionBudget is how long the emotion stage waits for the caption
	// before proceeding without it.
	CaptionBudget time.Duration
	// Workers bounds concurrent CPU-heavy quality scoring across runs.
	Workers int
}

// Orchestrator runs the enrichment pipeline for single photos.
type Orchestrator struct {
	providers Providers
	photos    database.PhotoStore
	blobs     storage.BlobStore
	scorer    *quality.Scorer
	resolver  *cluster.Resolver
	opts      Options
	cpu       chan struct{}
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(providers Providers, photos database.PhotoStore, blobs storage.BlobStore, scorer *quality.Scorer, resolver *cluster.Resolver, opts Options) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 30 * time.Second
	}
	if opts.CaptionBudget <= 0 {
		opts.CaptionBudget = 10 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Orchestrator{
		providers: providers,
		photos:    photos,
		blobs:     blobs,
		scorer:    scorer,
		resolver:  resolver,
		opts:      opts,
		cpu:       make(chan struct{}, opts.Workers),
	}
}

// Enrich runs all stages for one photo and persists the merged result in
// a single write. Stage failures degrade that stage's contribution;
// only a persist failure returns an error and marks the photo failed.
// Concurrent runs for the same photo are last-write-wins.
func (o *Orchestrator) Enrich(ctx context.Context, photoID, ownerID string, imageData []byte) (*database.PipelineResult, error) {
	if photoID == "" || ownerID == "" || len(imageData) == 0 {
		return nil, fmt.Errorf("enrich photo: %w", database.ErrInvalidInput)
	}

	if err := o.photos.SetStatus(ctx, photoID, database.StatusProcessing, ""); err != nil {
		log.Printf("pipeline: failed to mark photo %s processing: %v", photoID, err)
	}

	var degraded degradations

	// The caption feeds both the emotion stage (bounded wait) and the
	// final embedding (full wait), so it runs outside the WaitGroup.
	var caption ai.CaptionResult
	var captionErr error
	captionDone := make(chan struct{})
	go func() {
		defer close(captionDone)
		if o.providers.Captioner == nil {
			captionErr = errNotConfigured
			return
		}
		sctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
		defer cancel()
		res, err := o.providers.Captioner.Caption(sctx, imageData)
		if err != nil {
			captionErr = err
			return
		}
		caption = *res
	}()

	var (
		wg         sync.WaitGroup
		objects    []ai.Object
		emotions   []ai.Emotion
		personIDs  []string
		importance = 1.0
		flags      []string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.providers.Objects == nil {
			degraded.add("objects", errNotConfigured)
			return
		}
		sctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
		defer cancel()
		res, err := o.providers.Objects.DetectObjects(sctx, imageData)
		if err != nil {
			degraded.add("objects", err)
			return
		}
		objects = res
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.scorer == nil {
			degraded.add("quality", errNotConfigured)
			return
		}
		select {
		case o.cpu <- struct{}{}:
			defer func() { <-o.cpu }()
		case <-ctx.Done():
			degraded.add("quality", ctx.Err())
			return
		}
		score, lowValue, err := o.scorer.Score(ctx, ownerID, imageData)
		if err != nil {
			degraded.add("quality", err)
			return
		}
		importance = score
		flags = lowValue
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ids, err := o.resolveFaces(ctx, ownerID, imageData)
		if err != nil {
			degraded.add("faces", err)
		}
		personIDs = ids
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.providers.Emotions == nil {
			degraded.add("emotions", errNotConfigured)
			return
		}

		// Soft dependency: wait for the caption only up to the budget.
		hint := ""
		select {
		case <-captionDone:
			hint = caption.Caption
		case <-time.After(o.opts.CaptionBudget):
		case <-ctx.Done():
			degraded.add("emotions", ctx.Err())
			return
		}

		sctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
		defer cancel()
		res, err := o.providers.Emotions.DetectEmotions(sctx, imageData, hint)
		if err != nil {
			degraded.add("emotions", err)
			return
		}
		emotions = res
	}()

	wg.Wait()
	<-captionDone
	if captionErr != nil {
		degraded.add("caption", captionErr)
	}

	embedding := o.embed(ctx, &degraded, caption, imageData)

	result := &database.PipelineResult{
		PhotoID:         photoID,
		Caption:         caption.Caption,
		Tags:            caption.Tags,
		DetectedObjects: convertObjects(objects),
		Emotions:        convertEmotions(emotions),
		PersonIDs:       personIDs,
		ImportanceScore: importance,
		LowValueFlags:   flags,
		Embedding:       embedding,
	}

	if msg := degraded.summary(); msg != "" {
		log.Printf("pipeline: photo %s completed with degraded stages: %s", photoID, msg)
	}

	if err := o.photos.UpdatePipelineResult(ctx, result); err != nil {
		msg := fmt.Sprintf("failed to persist enrichment: %v", err)
		if serr := o.photos.SetStatus(ctx, photoID, database.StatusFailed, msg); serr != nil {
			log.Printf("pipeline: failed to mark photo %s failed: %v", photoID, serr)
		}
		return nil, fmt.Errorf("failed to persist enrichment for photo %s: %w", photoID, err)
	}

	return result, nil
}

// Reprocess re-runs the full pipeline for a stored photo using the
// original bytes from blob storage.
func (o *Orchestrator) Reprocess(ctx context.Context, photoID string) (*database.PipelineResult, error) {
	rec, err := o.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	data, err := o.blobs.Load(ctx, rec.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo %s from storage: %w", photoID, err)
	}

	return o.Enrich(ctx, photoID, rec.OwnerID, data)
}

// resolveFaces detects faces, embeds each crop and resolves it to a
// person profile. Per-face errors degrade only that face.
func (o *Orchestrator) resolveFaces(ctx context.Context, ownerID string, imageData []byte) ([]string, error) {
	if o.providers.Faces == nil || o.providers.Embedder == nil {
		return nil, errNotConfigured
	}

	sctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	crops, err := o.providers.Faces.DetectFaces(sctx, imageData)
	cancel()
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{})
	var firstErr error
	for _, crop := range crops {
		ectx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
		emb, err := o.providers.Embedder.EmbedImage(ectx, crop)
		cancel()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		id, err := o.resolver.Resolve(ctx, ownerID, emb)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, firstErr
}

// embed builds the photo embedding from the caption and tags, falling
// back to an image embedding when no text survived the caption stage.
func (o *Orchestrator) embed(ctx context.Context, degraded *degradations, caption ai.CaptionResult, imageData []byte) []float32 {
	if o.providers.Embedder == nil {
		degraded.add("embedding", errNotConfigured)
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	text := strings.TrimSpace(caption.Caption + " " + strings.Join(caption.Tags, " "))
	var embedding []float32
	var err error
	if text != "" {
		embedding, err = o.providers.Embedder.EmbedText(sctx, text)
	} else {
		embedding, err = o.providers.Embedder.EmbedImage(sctx, imageData)
	}
	if err != nil {
		degraded.add("embedding", err)
		return nil
	}
	return embedding
}

var errNotConfigured = fmt.Errorf("provider not configured")

// degradations collects per-stage failures for the completion log line.
type degradations struct {
	mu    sync.Mutex
	notes []string
}

func (d *degradations) add(stage string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = append(d.notes, fmt.Sprintf("%s: %v", stage, err))
}

func (d *degradations) summary() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.notes, "; ")
}

func convertObjects(in []ai.Object) []database.DetectedObject {
	if len(in) == 0 {
		return nil
	}
	out := make([]database.DetectedObject, len(in))
	for i, o := range in {
		out[i] = database.DetectedObject{Label: o.Label, Confidence: o.Confidence}
	}
	return out
}

func convertEmotions(in []ai.Emotion) []database.EmotionScore {
	if len(in) == 0 {
		return nil
	}
	out := make([]database.EmotionScore, len(in))
	for i, e := range in {
		out[i] = database.EmotionScore{Dominant: e.Dominant, Scores: e.Scores}
	}
	return out
}
