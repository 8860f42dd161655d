// Package memory provides an in-memory implementation of database.Store.
// It backs unit tests and the zero-configuration local mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/fotofindr/internal/database"
)

var _ database.Store = (*Store)(nil)

// Store keeps all records in process memory behind a single RWMutex.
type Store struct {
	mu           sync.RWMutex
	photos       map[string]*database.PhotoRecord
	photoOrder   []string
	profiles     map[string]*database.PersonProfile
	profileOrder []string
	hashes       map[string]struct{}

	clock func() time.Time

	// UpdateResultErr, when set, is returned by UpdatePipelineResult.
	// Lets tests exercise persist failures.
	UpdateResultErr error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		photos:   make(map[string]*database.PhotoRecord),
		profiles: make(map[string]*database.PersonProfile),
		hashes:   make(map[string]struct{}),
		clock:    time.Now,
	}
}

// SetClock overrides the time source. Tests use it to control CreatedAt
// ordering.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) InsertPhoto(_ context.Context, photo *database.PhotoRecord) error {
	if photo.ID == "" || photo.OwnerID == "" {
		return fmt.Errorf("insert photo: %w", database.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.photos[photo.ID]; exists {
		return fmt.Errorf("insert photo %s: already exists", photo.ID)
	}

	now := s.clock()
	stored := *photo
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = database.StatusUploaded
	}
	if stored.ImportanceScore == 0 {
		stored.ImportanceScore = 1.0
	}

	s.photos[photo.ID] = &stored
	s.photoOrder = append(s.photoOrder, photo.ID)
	photo.CreatedAt = now
	photo.UpdatedAt = now
	return nil
}

func (s *Store) UpdatePipelineResult(_ context.Context, result *database.PipelineResult) error {
	if s.UpdateResultErr != nil {
		return s.UpdateResultErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.photos[result.PhotoID]
	if !ok {
		return fmt.Errorf("update result for photo %s: %w", result.PhotoID, database.ErrNotFound)
	}

	rec.Caption = result.Caption
	rec.Tags = result.Tags
	rec.DetectedObjects = result.DetectedObjects
	rec.Emotions = result.Emotions
	rec.PersonIDs = result.PersonIDs
	rec.ImportanceScore = result.ImportanceScore
	rec.LowValueFlags = result.LowValueFlags
	rec.Embedding = result.Embedding
	rec.Status = database.StatusCompleted
	rec.ErrorMessage = ""
	rec.UpdatedAt = s.clock()
	return nil
}

func (s *Store) SetStatus(_ context.Context, photoID string, status database.Status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.photos[photoID]
	if !ok {
		return fmt.Errorf("set status for photo %s: %w", photoID, database.ErrNotFound)
	}
	if !database.ValidTransition(rec.Status, status) {
		return nil
	}

	rec.Status = status
	rec.ErrorMessage = errorMessage
	rec.UpdatedAt = s.clock()
	return nil
}

func (s *Store) GetByID(_ context.Context, photoID string) (*database.PhotoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.photos[photoID]
	if !ok {
		return nil, fmt.Errorf("photo %s: %w", photoID, database.ErrNotFound)
	}

	cp := *rec
	return &cp, nil
}

func (s *Store) QueryByOwnerWithEmbedding(_ context.Context, ownerID string) ([]database.PhotoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PhotoRecord
	for i := len(s.photoOrder) - 1; i >= 0; i-- {
		rec := s.photos[s.photoOrder[i]]
		if rec.OwnerID == ownerID && len(rec.Embedding) > 0 {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]database.PhotoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PhotoRecord
	for i := len(s.photoOrder) - 1; i >= 0; i-- {
		rec := s.photos[s.photoOrder[i]]
		if rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *Store) CountByOwner(_ context.Context, ownerID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var processed, total int
	for _, rec := range s.photos {
		if rec.OwnerID != ownerID {
			continue
		}
		total++
		if rec.Status == database.StatusCompleted {
			processed++
		}
	}
	return processed, total, nil
}

func (s *Store) ListCentroidsForOwner(_ context.Context, ownerID string) ([]database.PersonProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PersonProfile
	for _, id := range s.profileOrder {
		p := s.profiles[id]
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ListProfiles returns profiles ordered by photo count descending.
func (s *Store) ListProfiles(_ context.Context, ownerID string) ([]database.PersonProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PersonProfile
	for _, id := range s.profileOrder {
		p := s.profiles[id]
		if p.OwnerID == ownerID {
			cp := *p
			cp.Centroid = nil
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PhotoCount > out[j].PhotoCount
	})
	return out, nil
}

func (s *Store) CreateProfile(_ context.Context, profile *database.PersonProfile) error {
	if profile.ID == "" || profile.OwnerID == "" {
		return fmt.Errorf("create profile: %w", database.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *profile
	stored.CreatedAt = s.clock()
	s.profiles[profile.ID] = &stored
	s.profileOrder = append(s.profileOrder, profile.ID)
	profile.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) IncrementCount(_ context.Context, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[personID]
	if !ok {
		return fmt.Errorf("profile %s: %w", personID, database.ErrNotFound)
	}
	p.PhotoCount++
	return nil
}

func (s *Store) Rename(_ context.Context, personID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[personID]
	if !ok {
		return fmt.Errorf("profile %s: %w", personID, database.ErrNotFound)
	}
	p.Name = name
	return nil
}

func (s *Store) Seen(_ context.Context, ownerID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerID + "\x00" + hash
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	s.hashes[key] = struct{}{}
	return false, nil
}
