// Package index contains vector index engine adapters behind
// port.VectorIndex.
package index

import (
	"context"
	"fmt"
	"strings"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/port"
)

// QdrantIndex talks to a Qdrant server over gRPC. The connection is
// long-lived and safe for concurrent use.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

// NewQdrantIndex connects to the Qdrant gRPC endpoint (host:port).
func NewQdrantIndex(addr string) (*QdrantIndex, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}
	return &QdrantIndex{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
	}, nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// CollectionExists reports whether the named collection exists.
func (q *QdrantIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateCollection creates the collection with the given dimensionality
// and metric. A lost creation race surfaces as port.ErrCollectionExists.
func (q *QdrantIndex) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Distance) error {
	req := &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantDistance(metric),
				},
			},
		},
	}
	if _, err := q.collections.Create(ctx, req); err != nil {
		if isAlreadyExists(err) {
			return port.ErrCollectionExists
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes the points in a single batch, waiting until they are
// persisted.
func (q *QdrantIndex) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	wait := true
	structs := make([]*qdrantclient.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: toPayload(p.Payload),
		}
	}
	_, err := q.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search returns the limit nearest points best-first in Qdrant's native
// score order.
func (q *QdrantIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	resp, err := q.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text", "source", "page"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	results := make([]domain.ScoredPoint, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		results = append(results, domain.ScoredPoint{
			Score:   point.GetScore(),
			Payload: fromPayload(point.GetPayload()),
		})
	}
	return results, nil
}

// PointCount reads the collection's point counter.
func (q *QdrantIndex) PointCount(ctx context.Context, collection string) (uint64, error) {
	resp, err := q.collections.Get(ctx, &qdrantclient.GetCollectionInfoRequest{
		CollectionName: collection,
	})
	if err != nil {
		return 0, fmt.Errorf("collection info %s: %w", collection, err)
	}
	return resp.GetResult().GetPointsCount(), nil
}

func qdrantDistance(metric domain.Distance) qdrantclient.Distance {
	switch metric {
	case domain.DistanceEuclidean:
		return qdrantclient.Distance_Euclid
	case domain.DistanceDot:
		return qdrantclient.Distance_Dot
	default:
		return qdrantclient.Distance_Cosine
	}
}

// isAlreadyExists matches the error Qdrant returns when a concurrent
// caller created the collection first.
func isAlreadyExists(err error) bool {
	if status.Code(err) == codes.AlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func toPayload(payload map[string]any) map[string]*qdrantclient.Value {
	out := make(map[string]*qdrantclient.Value, len(payload))
	for key, val := range payload {
		switch v := val.(type) {
		case string:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: v}}
		case int:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: v}}
		case float64:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: v}}
		case bool:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_BoolValue{BoolValue: v}}
		default:
			out[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: fmt.Sprintf("%v", v)}}
		}
	}
	return out
}

func fromPayload(payload map[string]*qdrantclient.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, val := range payload {
		switch kind := val.GetKind().(type) {
		case *qdrantclient.Value_StringValue:
			out[key] = kind.StringValue
		case *qdrantclient.Value_IntegerValue:
			out[key] = kind.IntegerValue
		case *qdrantclient.Value_DoubleValue:
			out[key] = kind.DoubleValue
		case *qdrantclient.Value_BoolValue:
			out[key] = kind.BoolValue
		}
	}
	return out
}
