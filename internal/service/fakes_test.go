package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/easyrag/easyrag/internal/domain"
)

// fakeEmbedder returns deterministic three-dimensional vectors.
type fakeEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	batchErr   error
	shortBatch bool
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	n := len(texts)
	if f.shortBatch {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out, nil
}

// fakeIndex keeps points in memory and records how it was called.
type fakeIndex struct {
	mu          sync.Mutex
	exists      bool
	createCalls int
	createErr   error
	points      map[string][]domain.Point
	lastLimit   int
	searchHits  []domain.ScoredPoint
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string][]domain.Point{}}
}

func (f *fakeIndex) CollectionExists(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, nil
}

func (f *fakeIndex) CreateCollection(_ context.Context, _ string, dimension int, _ domain.Distance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if dimension <= 0 {
		return fmt.Errorf("bad dimension %d", dimension)
	}
	f.exists = true
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, collection string, points []domain.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points[collection] = append(f.points[collection], points...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, collection string, _ []float32, limit int) ([]domain.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.searchHits != nil {
		return f.searchHits, nil
	}
	stored := f.points[collection]
	if limit > len(stored) {
		limit = len(stored)
	}
	hits := make([]domain.ScoredPoint, 0, limit)
	for i := 0; i < limit; i++ {
		hits = append(hits, domain.ScoredPoint{
			Score:   1 - float32(i)*0.1,
			Payload: stored[i].Payload,
		})
	}
	return hits, nil
}

func (f *fakeIndex) PointCount(_ context.Context, collection string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.points[collection])), nil
}

func (f *fakeIndex) Close() error { return nil }
