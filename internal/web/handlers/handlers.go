// Package handlers implements the HTTP API.
package handlers

import (
	"github.com/kozaktomas/fotofindr/internal/ai"
	"github.com/kozaktomas/fotofindr/internal/cluster"
	"github.com/kozaktomas/fotofindr/internal/config"
	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/pipeline"
	"github.com/kozaktomas/fotofindr/internal/search"
	"github.com/kozaktomas/fotofindr/internal/storage"
)

// Handlers carries the shared dependencies for all endpoints.
type Handlers struct {
	cfg      *config.Config
	photos   database.PhotoStore
	profiles database.ProfileStore
	blobs    storage.BlobStore
	queue    *pipeline.Queue
	engine   *search.Engine
	embedder ai.Embedder
	resolver *cluster.Resolver
}

// New creates the handler set.
func New(
	cfg *config.Config,
	photos database.PhotoStore,
	profiles database.ProfileStore,
	blobs storage.BlobStore,
	queue *pipeline.Queue,
	engine *search.Engine,
	embedder ai.Embedder,
	resolver *cluster.Resolver,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		photos:   photos,
		profiles: profiles,
		blobs:    blobs,
		queue:    queue,
		engine:   engine,
		embedder: embedder,
		resolver: resolver,
	}
}
