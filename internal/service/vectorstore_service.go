// Package service wires the ingestion and retrieval use cases on top of
// the embedder and vector index ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/port"
)

// dimensionProbe is embedded once to discover the model's vector
// dimensionality before the collection is created.
const dimensionProbe = "dimension probe"

// VectorStoreService pairs an embedding model with a vector index and
// keeps the two consistent: every vector written or searched in the
// collection comes from the same model.
type VectorStoreService struct {
	embedder   port.Embedder
	index      port.VectorIndex
	collection string
	metric     domain.Distance

	mu      sync.Mutex
	ensured bool
}

// NewVectorStoreService creates a vector store bound to one collection.
func NewVectorStoreService(embedder port.Embedder, index port.VectorIndex, collection string, metric domain.Distance) *VectorStoreService {
	return &VectorStoreService{
		embedder:   embedder,
		index:      index,
		collection: collection,
		metric:     metric,
	}
}

// CollectionName returns the collection this store writes to.
func (s *VectorStoreService) CollectionName() string {
	return s.collection
}

// EnsureCollection creates the collection on first use. The vector
// dimensionality is discovered by embedding a probe text, so the
// collection always matches the configured model. Safe to call
// concurrently; losing a creation race to another process is not an
// error.
func (s *VectorStoreService) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	exists, err := s.index.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("ensure collection %s: %w", s.collection, err)
	}
	if exists {
		s.ensured = true
		return nil
	}

	probe, err := s.embedder.Embed(ctx, dimensionProbe)
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}

	err = s.index.CreateCollection(ctx, s.collection, len(probe), s.metric)
	if err != nil && !errors.Is(err, port.ErrCollectionExists) {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}

	slog.Info("collection ready",
		"collection", s.collection,
		"dimension", len(probe),
		"metric", s.metric,
		"model", s.embedder.ModelName())
	s.ensured = true
	return nil
}

// AddBatch embeds the chunks and upserts them as one batch. Either the
// whole batch lands in the index or none of it does; the returned count
// is the number of points written.
func (s *VectorStoreService) AddBatch(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch of %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]domain.Point, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"text":   chunk.Content,
			"source": chunk.Metadata.Source,
		}
		if chunk.Metadata.Page != nil {
			payload["page"] = *chunk.Metadata.Page
		}
		points[i] = domain.Point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := s.index.Upsert(ctx, s.collection, points); err != nil {
		return 0, fmt.Errorf("upsert batch: %w", err)
	}
	return len(points), nil
}

// Search embeds the query and returns the limit nearest chunks
// best-first.
func (s *VectorStoreService) Search(ctx context.Context, query string, limit int) ([]domain.ScoredPoint, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Search(ctx, s.collection, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Stats reads the collection's current point count.
func (s *VectorStoreService) Stats(ctx context.Context) (domain.CollectionStats, error) {
	count, err := s.index.PointCount(ctx, s.collection)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("collection stats: %w", err)
	}
	return domain.CollectionStats{PointCount: count}, nil
}
