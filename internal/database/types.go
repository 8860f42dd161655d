package database

import (
	"time"
)

// Status represents the processing lifecycle of a photo.
type Status string

// Status values for a photo record. Transitions are monotonic: a record
// never moves back to an earlier state, but a reprocess run may flip a
// record between completed and failed (last write wins).
const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusRank = map[Status]int{
	StatusUploaded:   0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// ValidTransition reports whether moving from one status to another is allowed.
func ValidTransition(from, to Status) bool {
	return statusRank[to] >= statusRank[from]
}

// DetectedObject is a single object-detector hit on a photo.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// EmotionScore holds the emotion distribution for one detected face.
type EmotionScore struct {
	Dominant string             `json:"dominant"`
	Scores   map[string]float64 `json:"scores"`
}

// PhotoRecord is the stored representation of one photo and its enrichment.
// Embedding is nil until the embedding stage of the pipeline succeeds.
type PhotoRecord struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"owner_id"`
	StorageURL      string           `json:"storage_url"`
	Caption         string           `json:"caption,omitempty"`
	Tags            []string         `json:"tags"`
	DetectedObjects []DetectedObject `json:"detected_objects"`
	Emotions        []EmotionScore   `json:"emotions"`
	PersonIDs       []string         `json:"person_ids"`
	ImportanceScore float64          `json:"importance_score"`
	LowValueFlags   []string         `json:"low_value_flags"`
	Embedding       []float32        `json:"-"`
	Status          Status           `json:"status"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PersonProfile is an identity cluster built from face embeddings.
// Name is empty until the user assigns one. Centroid is the representative
// embedding used for nearest-centroid matching.
type PersonProfile struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name,omitempty"`
	Centroid      []float32 `json:"-"`
	PhotoCount    int       `json:"photo_count"`
	CoverPhotoURL string    `json:"cover_photo_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchFilter narrows a vector search with structured metadata predicates.
// Zero values mean "no filter".
type SearchFilter struct {
	PersonID        string   `json:"person_id,omitempty"`
	Objects         []string `json:"objects,omitempty"`
	Emotion         string   `json:"emotion,omitempty"`
	ExcludeLowValue bool     `json:"exclude_low_value,omitempty"`
}

// IsZero reports whether the filter contains no predicates at all.
func (f SearchFilter) IsZero() bool {
	return f.PersonID == "" && len(f.Objects) == 0 && f.Emotion == "" && !f.ExcludeLowValue
}

// PipelineResult is the merged output of one enrichment run for a photo.
// It is not persisted on its own; it is folded into the PhotoRecord.
type PipelineResult struct {
	PhotoID         string
	Caption         string
	Tags            []string
	DetectedObjects []DetectedObject
	Emotions        []EmotionScore
	PersonIDs       []string
	ImportanceScore float64
	LowValueFlags   []string
	Embedding       []float32
}

// ScoredPhoto is a search hit: a photo record annotated with its
// cosine similarity to the query embedding.
type ScoredPhoto struct {
	PhotoRecord
	Similarity float64 `json:"similarity"`
}
