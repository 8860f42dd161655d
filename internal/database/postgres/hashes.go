package postgres

import (
	"context"
	"fmt"
)

// Seen inserts the content hash for the owner. A conflict means the hash
// was already recorded, which marks the photo as a duplicate.
func (s *Store) Seen(ctx context.Context, ownerID, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO photo_hashes (owner_id, content_hash)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, ownerID, hash)
	if err != nil {
		return false, fmt.Errorf("failed to record content hash: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 0, nil
}
