package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/port"
)

func intPtr(n int) *int { return &n }

func newStore(index *fakeIndex) (*VectorStoreService, *fakeEmbedder) {
	embedder := &fakeEmbedder{}
	return NewVectorStoreService(embedder, index, "rag_store", domain.DistanceCosine), embedder
}

func TestEnsureCollection_CreatesOnce(t *testing.T) {
	index := newFakeIndex()
	store, embedder := newStore(index)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.EnsureCollection(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, index.createCalls)
	assert.Equal(t, 1, embedder.embedCalls, "one dimension probe")
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	index := newFakeIndex()
	index.exists = true
	store, embedder := newStore(index)

	require.NoError(t, store.EnsureCollection(context.Background()))
	assert.Zero(t, index.createCalls)
	assert.Zero(t, embedder.embedCalls)
}

func TestEnsureCollection_LostRace(t *testing.T) {
	index := newFakeIndex()
	index.createErr = port.ErrCollectionExists
	store, _ := newStore(index)

	assert.NoError(t, store.EnsureCollection(context.Background()),
		"another writer creating the collection first is not an error")
}

func TestAddBatchThenStats(t *testing.T) {
	index := newFakeIndex()
	store, _ := newStore(index)

	chunks := []domain.Chunk{
		{Content: "first", Metadata: domain.Metadata{Source: "doc.pdf", Page: intPtr(1)}},
		{Content: "second", Metadata: domain.Metadata{Source: "doc.pdf", Page: intPtr(2)}},
		{Content: "third", Metadata: domain.Metadata{Source: "notes.txt"}},
	}
	written, err := store.AddBatch(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.PointCount)

	points := index.points["rag_store"]
	require.Len(t, points, 3)
	assert.Equal(t, "first", points[0].Payload["text"])
	assert.Equal(t, "doc.pdf", points[0].Payload["source"])
	assert.Equal(t, 1, points[0].Payload["page"])
	assert.NotContains(t, points[2].Payload, "page", "pageless chunks carry no page key")
	assert.NotEmpty(t, points[0].ID)
	assert.NotEqual(t, points[0].ID, points[1].ID)
}

func TestAddBatch_Empty(t *testing.T) {
	store, embedder := newStore(newFakeIndex())

	written, err := store.AddBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, embedder.batchCalls)
}

func TestAddBatch_EmbedFailure(t *testing.T) {
	index := newFakeIndex()
	index.exists = true
	store, embedder := newStore(index)
	embedder.batchErr = errors.New("model offline")

	_, err := store.AddBatch(context.Background(), []domain.Chunk{{Content: "x"}})
	require.Error(t, err)
	assert.Empty(t, index.points["rag_store"], "nothing indexed on embed failure")
}

func TestAddBatch_VectorCountMismatch(t *testing.T) {
	index := newFakeIndex()
	index.exists = true
	store, embedder := newStore(index)
	embedder.shortBatch = true

	_, err := store.AddBatch(context.Background(), []domain.Chunk{{Content: "a"}, {Content: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vectors")
}
