package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/fotofindr/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPhotoLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	photo := &database.PhotoRecord{ID: "p1", OwnerID: "alice", StorageURL: "/uploads/p1.jpg"}
	if err := store.InsertPhoto(ctx, photo); err != nil {
		t.Fatalf("InsertPhoto failed: %v", err)
	}

	if err := store.SetStatus(ctx, "p1", database.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	result := &database.PipelineResult{
		PhotoID:         "p1",
		Caption:         "a dog on a beach",
		Tags:            []string{"dog", "beach"},
		DetectedObjects: []database.DetectedObject{{Label: "dog", Confidence: 0.92}},
		Emotions:        []database.EmotionScore{{Dominant: "happy", Scores: map[string]float64{"happy": 0.9}}},
		PersonIDs:       []string{"person-1"},
		ImportanceScore: 0.8,
		LowValueFlags:   []string{"screenshot"},
		Embedding:       []float32{0.1, 0.2, 0.3},
	}
	if err := store.UpdatePipelineResult(ctx, result); err != nil {
		t.Fatalf("UpdatePipelineResult failed: %v", err)
	}

	got, err := store.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != database.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Caption != "a dog on a beach" {
		t.Errorf("unexpected caption %q", got.Caption)
	}
	if len(got.DetectedObjects) != 1 || got.DetectedObjects[0].Label != "dog" {
		t.Errorf("unexpected objects %+v", got.DetectedObjects)
	}
	if len(got.Emotions) != 1 || got.Emotions[0].Dominant != "happy" {
		t.Errorf("unexpected emotions %+v", got.Emotions)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("expected embedding to round-trip, got %v", got.Embedding)
	}

	// Completed must not regress.
	if err := store.SetStatus(ctx, "p1", database.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ = store.GetByID(ctx, "p1")
	if got.Status != database.StatusCompleted {
		t.Errorf("status regressed to %s", got.Status)
	}

	processed, total, err := store.CountByOwner(ctx, "alice")
	if err != nil || processed != 1 || total != 1 {
		t.Errorf("CountByOwner = %d/%d, %v", processed, total, err)
	}

	_, err = store.GetByID(ctx, "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryByOwnerWithEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []struct {
		id  string
		emb []float32
	}{
		{"p1", []float32{1, 0}},
		{"p2", nil},
		{"p3", []float32{0, 1}},
	} {
		photo := &database.PhotoRecord{ID: p.id, OwnerID: "alice", StorageURL: "/uploads/" + p.id}
		if err := store.InsertPhoto(ctx, photo); err != nil {
			t.Fatalf("InsertPhoto failed: %v", err)
		}
		if p.emb != nil {
			res := &database.PipelineResult{PhotoID: p.id, ImportanceScore: 1.0, Embedding: p.emb}
			if err := store.UpdatePipelineResult(ctx, res); err != nil {
				t.Fatalf("UpdatePipelineResult failed: %v", err)
			}
		}
	}

	got, err := store.QueryByOwnerWithEmbedding(ctx, "alice")
	if err != nil {
		t.Fatalf("QueryByOwnerWithEmbedding failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestProfilesAndHashes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &database.PersonProfile{ID: "person-1", OwnerID: "alice", Centroid: []float32{0.5, 0.5}}
	if err := store.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if err := store.IncrementCount(ctx, "person-1"); err != nil {
		t.Fatalf("IncrementCount failed: %v", err)
	}
	if err := store.Rename(ctx, "person-1", "Jake"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	centroids, err := store.ListCentroidsForOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCentroidsForOwner failed: %v", err)
	}
	if len(centroids) != 1 || centroids[0].Name != "Jake" || centroids[0].PhotoCount != 1 {
		t.Errorf("unexpected profile %+v", centroids)
	}

	if err := store.Rename(ctx, "missing", "x"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	seen, err := store.Seen(ctx, "alice", "deadbeef")
	if err != nil || seen {
		t.Fatalf("first Seen = %v, %v", seen, err)
	}
	seen, err = store.Seen(ctx, "alice", "deadbeef")
	if err != nil || !seen {
		t.Fatalf("second Seen = %v, %v", seen, err)
	}
}
