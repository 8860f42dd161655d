//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/fotofindr/internal/database"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	store, err := NewStore(dbURL, Options{MaxOpenConns: 5, MaxIdleConns: 2, PhotoDim: 4, FaceDim: 4})
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return store, func() {
		store.Close()
		container.Terminate(ctx)
	}
}

func TestPhotoLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	photo := &database.PhotoRecord{
		ID:         "p1",
		OwnerID:    "alice",
		StorageURL: "/uploads/p1.jpg",
	}
	if err := store.InsertPhoto(ctx, photo); err != nil {
		t.Fatalf("InsertPhoto failed: %v", err)
	}

	got, err := store.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != database.StatusUploaded {
		t.Errorf("expected uploaded, got %s", got.Status)
	}
	if got.ImportanceScore != 1.0 {
		t.Errorf("expected default importance 1.0, got %v", got.ImportanceScore)
	}
	if got.Embedding != nil {
		t.Errorf("expected nil embedding before enrichment")
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
		Embedding:       []float32{0.1, 0.2, 0.3, 0.4},
	}
	if err := store.UpdatePipelineResult(ctx, result); err != nil {
		t.Fatalf("UpdatePipelineResult failed: %v", err)
	}

	got, err = store.GetByID(ctx, "p1")
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
	if len(got.Embedding) != 4 {
		t.Errorf("expected 4-dim embedding, got %d", len(got.Embedding))
	}

	// Status must not regress after completion.
	if err := store.SetStatus(ctx, "p1", database.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ = store.GetByID(ctx, "p1")
	if got.Status != database.StatusCompleted {
		t.Errorf("status regressed to %s", got.Status)
	}

	processed, total, err := store.CountByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("CountByOwner failed: %v", err)
	}
	if processed != 1 || total != 1 {
		t.Errorf("expected 1/1, got %d/%d", processed, total)
	}

	_, err = store.GetByID(ctx, "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryByOwnerWithEmbedding(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i, emb := range [][]float32{{1, 0, 0, 0}, nil, {0, 1, 0, 0}} {
		id := fmt.Sprintf("p%d", i)
		photo := &database.PhotoRecord{ID: id, OwnerID: "alice", StorageURL: "/uploads/" + id}
		if err := store.InsertPhoto(ctx, photo); err != nil {
			t.Fatalf("InsertPhoto failed: %v", err)
		}
		if emb != nil {
			res := &database.PipelineResult{PhotoID: id, ImportanceScore: 1.0, Embedding: emb}
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
	for _, rec := range got {
		if len(rec.Embedding) == 0 {
			t.Errorf("record %s returned without embedding", rec.ID)
		}
	}
}

func TestProfilesAndHashes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	p := &database.PersonProfile{
		ID:       "person-1",
		OwnerID:  "alice",
		Centroid: []float32{0.5, 0.5, 0, 0},
	}
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
	if len(centroids[0].Centroid) != 4 {
		t.Errorf("expected centroid to round-trip, got %v", centroids[0].Centroid)
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
	seen, err = store.Seen(ctx, "bob", "deadbeef")
	if err != nil || seen {
		t.Fatalf("cross-owner Seen = %v, %v", seen, err)
	}
}
