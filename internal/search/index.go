package search

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/fotofindr/internal/database"
)

const (
	hnswMaxNeighbors = 16
	// Below this many candidates a brute-force scan beats the graph.
	hnswMinCandidates = 256
)

// Index caches one HNSW graph per owner for the unfiltered fast path.
// A graph is rebuilt lazily whenever the owner's candidate count changes;
// correctness never depends on it because the engine re-scores hits with
// exact cosine similarity.
type Index struct {
	mu     sync.Mutex
	owners map[string]*ownerGraph
}

type ownerGraph struct {
	graph *hnsw.Graph[string]
	size  int
}

// NewIndex creates an empty per-owner graph cache.
func NewIndex() *Index {
	return &Index{owners: make(map[string]*ownerGraph)}
}

// Search returns the ids of the approximate top-k candidates for the
// query. Candidates must all belong to the same owner and carry
// embeddings.
func (idx *Index) Search(ownerID string, candidates []database.PhotoRecord, query []float32, k int) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	og, ok := idx.owners[ownerID]
	if !ok || og.size != len(candidates) {
		og = &ownerGraph{graph: buildGraph(candidates), size: len(candidates)}
		idx.owners[ownerID] = og
	}

	neighbors := og.graph.Search(query, k)
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.Key)
	}
	return ids
}

func buildGraph(candidates []database.PhotoRecord) *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	for _, rec := range candidates {
		g.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
	}
	return g
}
