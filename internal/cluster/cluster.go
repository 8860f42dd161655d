// Package cluster groups face embeddings into person profiles using
// nearest-centroid matching.
package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/fotofindr/internal/database"
)

// MatchThreshold is the minimum cosine similarity (inclusive) between a
// face embedding and a profile centroid to count as the same person.
const MatchThreshold = 0.75

// Resolver maps face embeddings to person profiles. The read-decide-write
// sequence is serialized per owner so concurrent pipeline runs never
// create two profiles for the same face.
type Resolver struct {
	profiles  database.ProfileStore
	threshold float64

	mu         sync.Mutex
	ownerLocks map[string]*sync.Mutex
}

// NewResolver creates a resolver with the default match threshold.
func NewResolver(profiles database.ProfileStore) *Resolver {
	return &Resolver{
		profiles:   profiles,
		threshold:  MatchThreshold,
		ownerLocks: make(map[string]*sync.Mutex),
	}
}

func (r *Resolver) ownerLock(ownerID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.ownerLocks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		r.ownerLocks[ownerID] = lock
	}
	return lock
}

// Resolve finds the owner's best-matching profile for the face embedding,
// or creates a new anonymous profile when nothing reaches the threshold.
// Returns the profile id. The centroid stays pinned to the face that
// created the profile; a match only increments the photo count.
func (r *Resolver) Resolve(ctx context.Context, ownerID string, faceEmbedding []float32) (string, error) {
	if ownerID == "" || len(faceEmbedding) == 0 {
		return "", fmt.Errorf("resolve face: %w", database.ErrInvalidInput)
	}

	lock := r.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	profiles, err := r.profiles.ListCentroidsForOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to list profiles: %w", err)
	}

	// Strictly-greater comparison keeps the first profile in store order
	// on an exact tie.
	bestID := ""
	bestSim := -1.0
	for _, p := range profiles {
		sim := database.CosineSimilarity(faceEmbedding, p.Centroid)
		if sim > bestSim {
			bestSim = sim
			bestID = p.ID
		}
	}

	if bestID != "" && bestSim >= r.threshold {
		if err := r.profiles.IncrementCount(ctx, bestID); err != nil {
			return "", fmt.Errorf("failed to increment photo count: %w", err)
		}
		return bestID, nil
	}

	profile := &database.PersonProfile{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Centroid:   append([]float32(nil), faceEmbedding...),
		PhotoCount: 1,
	}
	if err := r.profiles.CreateProfile(ctx, profile); err != nil {
		return "", fmt.Errorf("failed to create profile: %w", err)
	}
	return profile.ID, nil
}

// Rename updates the profile's display name. Metadata only; cluster
// membership never changes.
func (r *Resolver) Rename(ctx context.Context, personID, name string) error {
	if personID == "" {
		return fmt.Errorf("rename profile: %w", database.ErrInvalidInput)
	}
	return r.profiles.Rename(ctx, personID, name)
}
