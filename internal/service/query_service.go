package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/easyrag/easyrag/internal/domain"
)

// QueryService answers semantic queries against the vector store.
type QueryService struct {
	store    *VectorStoreService
	defaultK int
	maxK     int
}

// NewQueryService creates a query service with its result-count bounds.
func NewQueryService(store *VectorStoreService, defaultK, maxK int) *QueryService {
	return &QueryService{store: store, defaultK: defaultK, maxK: maxK}
}

// Answer searches the collection for the query and returns ranked
// results. k <= 0 selects the configured default; the effective k is
// clamped to the configured maximum and to the collection's point
// count, so the index is never asked for more neighbors than exist. An
// empty collection yields a message instead of an error.
func (s *QueryService) Answer(ctx context.Context, query string, k int) (domain.QueryAnswer, error) {
	if err := s.store.EnsureCollection(ctx); err != nil {
		return domain.QueryAnswer{}, err
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return domain.QueryAnswer{}, err
	}
	if stats.PointCount == 0 {
		return domain.QueryAnswer{
			Query:   query,
			Results: []domain.DocumentResult{},
			Message: "no documents indexed yet, upload documents first",
		}, nil
	}

	if k <= 0 {
		k = s.defaultK
	}
	if k > s.maxK {
		k = s.maxK
	}
	if uint64(k) > stats.PointCount {
		k = int(stats.PointCount)
	}

	points, err := s.store.Search(ctx, query, k)
	if err != nil {
		return domain.QueryAnswer{}, err
	}

	results := make([]domain.DocumentResult, 0, len(points))
	for _, point := range points {
		source, _ := point.Payload["source"].(string)
		text, _ := point.Payload["text"].(string)
		results = append(results, domain.DocumentResult{
			Source: source,
			Text:   text,
			Score:  point.Score,
			Page:   coercePage(point.Payload["page"]),
		})
	}

	slog.Info("query answered", "k", k, "results", len(results))
	return domain.QueryAnswer{Query: query, Results: results}, nil
}

// coercePage normalizes the stored page value to *int. Index engines
// hand integers back in different shapes; anything malformed becomes
// nil rather than an error.
func coercePage(value any) *int {
	switch v := value.(type) {
	case int:
		return &v
	case int64:
		page := int(v)
		return &page
	case uint64:
		page := int(v)
		return &page
	case float64:
		page := int(v)
		return &page
	case string:
		page, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		return &page
	default:
		return nil
	}
}
