package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/fotofindr/internal/database"
)

const photoColumns = `id, owner_id, storage_url, caption, tags, detected_objects,
	emotions, person_ids, importance_score, low_value_flags, embedding,
	status, error_message, created_at, updated_at`

func (s *Store) InsertPhoto(ctx context.Context, photo *database.PhotoRecord) error {
	if photo.ID == "" || photo.OwnerID == "" {
		return fmt.Errorf("insert photo: %w", database.ErrInvalidInput)
	}

	status := photo.Status
	if status == "" {
		status = database.StatusUploaded
	}

	query := `
		INSERT INTO photos (id, owner_id, storage_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query, photo.ID, photo.OwnerID, photo.StorageURL, string(status)).
		Scan(&photo.CreatedAt, &photo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert photo %s: %w", photo.ID, err)
	}
	return nil
}

func (s *Store) UpdatePipelineResult(ctx context.Context, result *database.PipelineResult) error {
	objects, err := json.Marshal(orEmptyObjects(result.DetectedObjects))
	if err != nil {
		return fmt.Errorf("failed to marshal detected objects: %w", err)
	}
	emotions, err := json.Marshal(orEmptyEmotions(result.Emotions))
	if err != nil {
		return fmt.Errorf("failed to marshal emotions: %w", err)
	}

	var embedding any
	if len(result.Embedding) > 0 {
		embedding = pgvector.NewVector(result.Embedding)
	}

	query := `
		UPDATE photos
		SET caption = $2,
		    tags = $3,
		    detected_objects = $4,
		    emotions = $5,
		    person_ids = $6,
		    importance_score = $7,
		    low_value_flags = $8,
		    embedding = $9,
		    status = 'completed',
		    error_message = '',
		    updated_at = now()
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		result.PhotoID,
		result.Caption,
		pq.Array(orEmpty(result.Tags)),
		objects,
		emotions,
		pq.Array(orEmpty(result.PersonIDs)),
		result.ImportanceScore,
		pq.Array(orEmpty(result.LowValueFlags)),
		embedding,
	)
	if err != nil {
		return fmt.Errorf("failed to update photo %s: %w", result.PhotoID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update result for photo %s: %w", result.PhotoID, database.ErrNotFound)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, photoID string, status database.Status, errorMessage string) error {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM photos WHERE id = $1`, photoID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("set status for photo %s: %w", photoID, database.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read photo status: %w", err)
	}

	if !database.ValidTransition(database.Status(current), status) {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE photos SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`,
		photoID, string(status), errorMessage)
	if err != nil {
		return fmt.Errorf("failed to set photo status: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, photoID string) (*database.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	rec, err := scanPhoto(s.db.QueryRowContext(ctx, query, photoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo %s: %w", photoID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo %s: %w", photoID, err)
	}
	return rec, nil
}

func (s *Store) QueryByOwnerWithEmbedding(ctx context.Context, ownerID string) ([]database.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + `
		FROM photos
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY created_at DESC, id DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]database.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + `
		FROM photos
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, int, error) {
	var processed, total int
	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'completed'), COUNT(*)
		FROM photos WHERE owner_id = $1`
	if err := s.db.QueryRowContext(ctx, query, ownerID).Scan(&processed, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return processed, total, nil
}

func (s *Store) queryPhotos(ctx context.Context, query string, args ...any) ([]database.PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var out []database.PhotoRecord
	for rows.Next() {
		rec, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*database.PhotoRecord, error) {
	var rec database.PhotoRecord
	var objects, emotions []byte
	var embedding nullVector
	var status string

	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.StorageURL,
		&rec.Caption,
		pq.Array(&rec.Tags),
		&objects,
		&emotions,
		pq.Array(&rec.PersonIDs),
		&rec.ImportanceScore,
		pq.Array(&rec.LowValueFlags),
		&embedding,
		&status,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(objects, &rec.DetectedObjects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detected objects: %w", err)
	}
	if err := json.Unmarshal(emotions, &rec.Emotions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal emotions: %w", err)
	}
	rec.Embedding = embedding.slice()
	rec.Status = database.Status(status)
	return &rec, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyObjects(s []database.DetectedObject) []database.DetectedObject {
	if s == nil {
		return []database.DetectedObject{}
	}
	return s
}

func orEmptyEmotions(s []database.EmotionScore) []database.EmotionScore {
	if s == nil {
		return []database.EmotionScore{}
	}
	return s
}
