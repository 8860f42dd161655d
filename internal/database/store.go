package database

import (
	"context"
)

// PhotoStore persists photo records and their enrichment results.
type PhotoStore interface {
	// InsertPhoto creates a new photo record. ID, OwnerID and StorageURL
	// must be set; CreatedAt/UpdatedAt are filled by the store.
	InsertPhoto(ctx context.Context, photo *PhotoRecord) error
	// UpdatePipelineResult folds one enrichment run into the record in a
	// single write and marks it completed. Returns ErrNotFound for an
	// unknown photo id.
	UpdatePipelineResult(ctx context.Context, result *PipelineResult) error
	// SetStatus moves the record through its lifecycle. Writes that would
	// move a record backwards (completed -> processing) are ignored.
	SetStatus(ctx context.Context, photoID string, status Status, errorMessage string) error
	// GetByID retrieves a single photo record, ErrNotFound if missing.
	GetByID(ctx context.Context, photoID string) (*PhotoRecord, error)
	// QueryByOwnerWithEmbedding returns all records for the owner that have
	// an embedding, most recently created first.
	QueryByOwnerWithEmbedding(ctx context.Context, ownerID string) ([]PhotoRecord, error)
	// ListByOwner returns all records for the owner, most recently created first.
	ListByOwner(ctx context.Context, ownerID string) ([]PhotoRecord, error)
	// CountByOwner returns how many of the owner's photos have finished
	// processing and how many exist in total.
	CountByOwner(ctx context.Context, ownerID string) (processed int, total int, err error)
}

// ProfileStore persists person profiles (identity clusters).
type ProfileStore interface {
	// ListCentroidsForOwner returns the owner's profiles with centroids
	// loaded, ordered by creation time then id so matching is deterministic.
	ListCentroidsForOwner(ctx context.Context, ownerID string) ([]PersonProfile, error)
	// ListProfiles returns the owner's profiles ordered by photo count
	// descending, without centroids.
	ListProfiles(ctx context.Context, ownerID string) ([]PersonProfile, error)
	// CreateProfile stores a new anonymous profile.
	CreateProfile(ctx context.Context, profile *PersonProfile) error
	// IncrementCount bumps the profile's photo count by one.
	IncrementCount(ctx context.Context, personID string) error
	// Rename sets the profile's display name. Metadata only, the centroid
	// and counts are untouched. Returns ErrNotFound for an unknown id.
	Rename(ctx context.Context, personID, name string) error
}

// HashIndex is a durable owner-scoped content-hash index used for
// duplicate detection.
type HashIndex interface {
	// Seen records the hash for the owner and reports whether it was
	// already present before this call.
	Seen(ctx context.Context, ownerID, hash string) (bool, error)
}

// Store bundles everything a running server needs from a backend.
type Store interface {
	PhotoStore
	ProfileStore
	HashIndex

	Close() error
}
