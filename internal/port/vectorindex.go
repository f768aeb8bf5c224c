package port

import (
	"context"

	"github.com/easyrag/easyrag/internal/domain"
)

// VectorIndex abstracts the vector index engine (Qdrant, pgvector).
// The client handle is long-lived and safe for concurrent use.
type VectorIndex interface {
	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given vector
	// dimensionality and distance metric. A creation race lost to
	// another writer is reported as ErrCollectionExists.
	CreateCollection(ctx context.Context, name string, dimension int, metric domain.Distance) error

	// Upsert inserts or updates the given points in one batch.
	Upsert(ctx context.Context, collection string, points []domain.Point) error

	// Search returns the limit nearest points to the query vector in the
	// engine's native best-first order.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.ScoredPoint, error)

	// PointCount returns the number of points stored in the collection.
	PointCount(ctx context.Context, collection string) (uint64, error)

	// Close releases the underlying connection.
	Close() error
}
