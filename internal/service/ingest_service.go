package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/easyrag/easyrag/internal/chunker"
	"github.com/easyrag/easyrag/internal/loader"
)

// IngestService runs the upload pipeline: load a document in batches,
// chunk each batch, embed and index the chunks. Ingestion is
// at-least-once; a failed batch aborts the run but already indexed
// batches stay in the collection.
type IngestService struct {
	loader  *loader.Loader
	chunker *chunker.Chunker
	store   *VectorStoreService
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(l *loader.Loader, c *chunker.Chunker, store *VectorStoreService) *IngestService {
	return &IngestService{loader: l, chunker: c, store: store}
}

// Ingest indexes the document at path under its declared name and
// returns the number of chunks written.
func (s *IngestService) Ingest(ctx context.Context, path, declaredName string) (int, error) {
	it, err := s.loader.Load(ctx, path, declaredName)
	if err != nil {
		return 0, err
	}

	total := 0
	batches := 0
	for {
		records, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read batch from %s: %w", declaredName, err)
		}

		chunks := s.chunker.Chunk(records)
		if len(chunks) == 0 {
			continue
		}

		written, err := s.store.AddBatch(ctx, chunks)
		if err != nil {
			return total, fmt.Errorf("index batch from %s: %w", declaredName, err)
		}

		total += written
		batches++
		slog.Info("batch indexed", "source", declaredName, "batch", batches, "chunks", written)
	}

	slog.Info("document indexed", "source", declaredName, "batches", batches, "chunks", total)
	return total, nil
}
