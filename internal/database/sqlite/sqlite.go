// Package sqlite implements database.Store on an embedded SQLite file
// using the pure-Go modernc driver. Vectors and arrays are stored as
// JSON text; similarity is computed in process by the retrieval engine.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/fotofindr/internal/database"
)

var _ database.Store = (*Store)(nil)

// Store wraps a single-writer SQLite connection.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database file and runs migrations.
func NewStore(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The modernc driver serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent pipeline workers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS photos (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			storage_url TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			detected_objects TEXT NOT NULL DEFAULT '[]',
			emotions TEXT NOT NULL DEFAULT '[]',
			person_ids TEXT NOT NULL DEFAULT '[]',
			importance_score REAL NOT NULL DEFAULT 1.0,
			low_value_flags TEXT NOT NULL DEFAULT '[]',
			embedding TEXT,
			status TEXT NOT NULL DEFAULT 'uploaded',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner_id)`,
		`CREATE TABLE IF NOT EXISTS people (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			centroid TEXT NOT NULL,
			photo_count INTEGER NOT NULL DEFAULT 1,
			cover_photo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_people_owner ON people(owner_id)`,
		`CREATE TABLE IF NOT EXISTS photo_hashes (
			owner_id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			PRIMARY KEY (owner_id, content_hash)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

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
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (id, owner_id, storage_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		photo.ID, photo.OwnerID, photo.StorageURL, string(status), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert photo %s: %w", photo.ID, err)
	}
	photo.CreatedAt = now
	photo.UpdatedAt = now
	return nil
}

func (s *Store) UpdatePipelineResult(ctx context.Context, result *database.PipelineResult) error {
	tags, err := marshalJSON(result.Tags)
	if err != nil {
		return err
	}
	objects, err := marshalJSON(result.DetectedObjects)
	if err != nil {
		return err
	}
	emotions, err := marshalJSON(result.Emotions)
	if err != nil {
		return err
	}
	personIDs, err := marshalJSON(result.PersonIDs)
	if err != nil {
		return err
	}
	flags, err := marshalJSON(result.LowValueFlags)
	if err != nil {
		return err
	}

	var embedding any
	if len(result.Embedding) > 0 {
		embedding, err = marshalJSON(result.Embedding)
		if err != nil {
			return err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE photos
		SET caption = ?, tags = ?, detected_objects = ?, emotions = ?,
		    person_ids = ?, importance_score = ?, low_value_flags = ?,
		    embedding = ?, status = 'completed', error_message = '', updated_at = ?
		WHERE id = ?`,
		result.Caption, tags, objects, emotions, personIDs,
		result.ImportanceScore, flags, embedding, time.Now().UTC(), result.PhotoID)
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
	err := s.db.QueryRowContext(ctx, `SELECT status FROM photos WHERE id = ?`, photoID).Scan(&current)
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
		`UPDATE photos SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errorMessage, time.Now().UTC(), photoID)
	if err != nil {
		return fmt.Errorf("failed to set photo status: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, photoID string) (*database.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = ?`
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
		WHERE owner_id = ? AND embedding IS NOT NULL
		ORDER BY created_at DESC, id DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]database.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + `
		FROM photos
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, int, error) {
	var processed, total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(CASE WHEN status = 'completed' THEN 1 END), COUNT(*)
		FROM photos WHERE owner_id = ?`, ownerID).Scan(&processed, &total)
	if err != nil {
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
	var tags, objects, emotions, personIDs, flags string
	var embedding sql.NullString
	var status string

	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.StorageURL,
		&rec.Caption,
		&tags,
		&objects,
		&emotions,
		&personIDs,
		&rec.ImportanceScore,
		&flags,
		&embedding,
		&status,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(tags, &rec.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(objects, &rec.DetectedObjects); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(emotions, &rec.Emotions); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(personIDs, &rec.PersonIDs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(flags, &rec.LowValueFlags); err != nil {
		return nil, err
	}
	if embedding.Valid {
		if err := unmarshalJSON(embedding.String, &rec.Embedding); err != nil {
			return nil, err
		}
	}
	rec.Status = database.Status(status)
	return &rec, nil
}

func (s *Store) ListCentroidsForOwner(ctx context.Context, ownerID string) ([]database.PersonProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, centroid, photo_count, cover_photo_url, created_at
		FROM people
		WHERE owner_id = ?
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var out []database.PersonProfile
	for rows.Next() {
		var p database.PersonProfile
		var centroid string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &centroid, &p.PhotoCount, &p.CoverPhotoURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		if err := unmarshalJSON(centroid, &p.Centroid); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}
	return out, nil
}

func (s *Store) ListProfiles(ctx context.Context, ownerID string) ([]database.PersonProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, photo_count, cover_photo_url, created_at
		FROM people
		WHERE owner_id = ?
		ORDER BY photo_count DESC, created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var out []database.PersonProfile
	for rows.Next() {
		var p database.PersonProfile
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.PhotoCount, &p.CoverPhotoURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}
	return out, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *database.PersonProfile) error {
	if profile.ID == "" || profile.OwnerID == "" || len(profile.Centroid) == 0 {
		return fmt.Errorf("create profile: %w", database.ErrInvalidInput)
	}

	centroid, err := marshalJSON(profile.Centroid)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO people (id, owner_id, name, centroid, photo_count, cover_photo_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.OwnerID, profile.Name, centroid,
		profile.PhotoCount, profile.CoverPhotoURL, now)
	if err != nil {
		return fmt.Errorf("failed to create profile %s: %w", profile.ID, err)
	}
	profile.CreatedAt = now
	return nil
}

func (s *Store) IncrementCount(ctx context.Context, personID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE people SET photo_count = photo_count + 1 WHERE id = ?`, personID)
	if err != nil {
		return fmt.Errorf("failed to increment photo count: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile %s: %w", personID, database.ErrNotFound)
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, personID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE people SET name = ? WHERE id = ?`, name, personID)
	if err != nil {
		return fmt.Errorf("failed to rename profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile %s: %w", personID, database.ErrNotFound)
	}
	return nil
}

func (s *Store) Seen(ctx context.Context, ownerID, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO photo_hashes (owner_id, content_hash)
		VALUES (?, ?)`, ownerID, hash)
	if err != nil {
		return false, fmt.Errorf("failed to record content hash: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 0, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON[T any](data string, out *T) error {
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}
