// Package postgres implements database.Store on PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/fotofindr/internal/database"
)

var _ database.Store = (*Store)(nil)

// Store holds the connection pool. Methods are split across photos.go,
// people.go and hashes.go.
type Store struct {
	db       *sql.DB
	photoDim int
	faceDim  int
}

// Options tunes the connection pool and the vector column dimensions.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	PhotoDim     int
	FaceDim      int
}

// NewStore connects to the database and verifies the connection.
func NewStore(databaseURL string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, photoDim: opts.PhotoDim, faceDim: opts.FaceDim}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the pgvector extension and all tables if they do not
// exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS photos (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			storage_url TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			detected_objects JSONB NOT NULL DEFAULT '[]',
			emotions JSONB NOT NULL DEFAULT '[]',
			person_ids TEXT[] NOT NULL DEFAULT '{}',
			importance_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			low_value_flags TEXT[] NOT NULL DEFAULT '{}',
			embedding vector(%d),
			status TEXT NOT NULL DEFAULT 'uploaded',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.photoDim),
		`CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_owner_embedded ON photos(owner_id) WHERE embedding IS NOT NULL`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS people (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			centroid vector(%d) NOT NULL,
			photo_count INTEGER NOT NULL DEFAULT 1,
			cover_photo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.faceDim),
		`CREATE INDEX IF NOT EXISTS idx_people_owner ON people(owner_id)`,
		`CREATE TABLE IF NOT EXISTS photo_hashes (
			owner_id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
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

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullVector) slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}
