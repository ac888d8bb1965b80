// Package index implements a flat Euclidean nearest-neighbor index over
// brand guideline chunks. Vectors and their source texts are parallel
// append-only sequences: row i of the vector matrix always corresponds
// to documents[i], and every mutation appends to both or neither.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"brandstudio/internal/embedding"
	"brandstudio/internal/logging"
)

// ErrIndexNotFound is returned by Load when a persisted artifact is
// missing. Unlike absent policy files this is fatal: retrieval without
// an index is meaningless.
var ErrIndexNotFound = errors.New("index artifacts not found")

// Result is one search hit. Distance is squared Euclidean (flat-L2
// ranking order); Relevance maps it into (0, 1] via 1/(1+distance).
type Result struct {
	Text      string
	Distance  float64
	Relevance float64
	Rank      int
}

// Index is a flat L2 index with its parallel document sequence.
type Index struct {
	engine embedding.Engine

	mu        sync.RWMutex
	vectors   [][]float32
	documents []string
}

// New creates an empty index backed by the given embedding engine.
func New(engine embedding.Engine) *Index {
	return &Index{engine: engine}
}

// Len returns the number of stored documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.documents)
}

// AddDocuments embeds texts and appends vector/text pairs. The append
// happens only after the whole batch embedded successfully, so a
// mid-batch failure never leaves the sequences misaligned.
func (ix *Index) AddDocuments(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryIndex, "AddDocuments")
	defer timer.Stop()

	vecs, err := ix.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d texts", len(vecs), len(texts))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = append(ix.vectors, vecs...)
	ix.documents = append(ix.documents, texts...)

	logging.Index("indexed %d documents (total %d)", len(texts), len(ix.documents))
	return nil
}

// Search embeds the query and returns up to k results ordered by
// ascending distance, rank 1 first. An empty index yields an empty
// result list, not an error; k larger than the stored count returns
// everything.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ix.mu.RLock()
	empty := len(ix.documents) == 0
	ix.mu.RUnlock()
	if empty {
		logging.IndexDebug("search on empty index: %q", query)
		return []Result{}, nil
	}

	qvec, err := ix.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, 0, len(ix.vectors))
	for i, vec := range ix.vectors {
		d, err := squaredL2(qvec, vec)
		if err != nil {
			logging.Get(logging.CategoryIndex).Warn("skipping row %d: %v", i, err)
			continue
		}
		hits = append(hits, hit{pos: i, dist: d})
	}

	// Stable so that equal distances keep insertion order.
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })

	if k > len(hits) {
		k = len(hits)
	}

	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{
			Text:      ix.documents[hits[i].pos],
			Distance:  hits[i].dist,
			Relevance: 1 / (1 + hits[i].dist),
			Rank:      i + 1,
		}
	}
	return results, nil
}

// squaredL2 computes the squared Euclidean distance between two vectors.
func squaredL2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}

// snapshot returns aligned copies of the vector and document sequences.
func (ix *Index) snapshot() ([][]float32, []string) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	vecs := make([][]float32, len(ix.vectors))
	copy(vecs, ix.vectors)
	docs := make([]string, len(ix.documents))
	copy(docs, ix.documents)
	return vecs, docs
}
