package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/fotofindr/internal/database"
)

func (s *Store) ListCentroidsForOwner(ctx context.Context, ownerID string) ([]database.PersonProfile, error) {
	query := `
		SELECT id, owner_id, name, centroid, photo_count, cover_photo_url, created_at
		FROM people
		WHERE owner_id = $1
		ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var out []database.PersonProfile
	for rows.Next() {
		var p database.PersonProfile
		var centroid pgvector.Vector
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &centroid, &p.PhotoCount, &p.CoverPhotoURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		p.Centroid = centroid.Slice()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}
	return out, nil
}

func (s *Store) ListProfiles(ctx context.Context, ownerID string) ([]database.PersonProfile, error) {
	query := `
		SELECT id, owner_id, name, photo_count, cover_photo_url, created_at
		FROM people
		WHERE owner_id = $1
		ORDER BY photo_count DESC, created_at, id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
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

	query := `
		INSERT INTO people (id, owner_id, name, centroid, photo_count, cover_photo_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := s.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.OwnerID,
		profile.Name,
		pgvector.NewVector(profile.Centroid),
		profile.PhotoCount,
		profile.CoverPhotoURL,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile %s: %w", profile.ID, err)
	}
	return nil
}

func (s *Store) IncrementCount(ctx context.Context, personID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE people SET photo_count = photo_count + 1 WHERE id = $1`, personID)
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
		`UPDATE people SET name = $2 WHERE id = $1`, personID, name)
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
