package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/port"
)

// PgVectorIndex implements port.VectorIndex on Postgres with the
// pgvector extension. Each collection is a table named after it. Unlike
// Qdrant, pgvector applies the distance metric at query time, so the
// index carries the configured metric.
type PgVectorIndex struct {
	db     *sql.DB
	metric domain.Distance
}

// NewPgVectorIndex opens a connection pool and verifies connectivity.
func NewPgVectorIndex(databaseURL string, metric domain.Distance) (*PgVectorIndex, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PgVectorIndex{db: db, metric: metric}, nil
}

// newPgVectorIndexWithDB wires an existing handle; used by tests.
func newPgVectorIndexWithDB(db *sql.DB, metric domain.Distance) *PgVectorIndex {
	return &PgVectorIndex{db: db, metric: metric}
}

// Close closes the connection pool.
func (p *PgVectorIndex) Close() error {
	return p.db.Close()
}

// CollectionExists reports whether the collection's table exists.
func (p *PgVectorIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates the collection table with a vector column of
// the given dimensionality. A lost creation race surfaces as
// port.ErrCollectionExists.
func (p *PgVectorIndex) CreateCollection(ctx context.Context, name string, dimension int, _ domain.Distance) error {
	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	query := fmt.Sprintf(`CREATE TABLE %s (
		id uuid PRIMARY KEY,
		content text NOT NULL,
		source text NOT NULL DEFAULT '',
		page integer,
		embedding vector(%d) NOT NULL
	)`, pq.QuoteIdentifier(name), dimension)

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		if isDuplicateTable(err) {
			return port.ErrCollectionExists
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes the batch inside one transaction; any failed insert
// fails the whole batch.
func (p *PgVectorIndex) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (id, content, source, page, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			page = EXCLUDED.page,
			embedding = EXCLUDED.embedding`, pq.QuoteIdentifier(collection))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, point := range points {
		text, _ := point.Payload["text"].(string)
		source, _ := point.Payload["source"].(string)
		if _, err := stmt.ExecContext(ctx,
			point.ID, text, source, payloadPage(point.Payload), vectorToString(point.Vector),
		); err != nil {
			return fmt.Errorf("insert point %s: %w", point.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert of %d points: %w", len(points), err)
	}
	return nil
}

// Search ranks by the configured metric's operator, best-first.
func (p *PgVectorIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	var scoreExpr string
	var operator string
	switch p.metric {
	case domain.DistanceEuclidean:
		operator = "<->"
		scoreExpr = "embedding <-> $1::vector"
	case domain.DistanceDot:
		operator = "<#>"
		scoreExpr = "-(embedding <#> $1::vector)"
	default:
		operator = "<=>"
		scoreExpr = "1 - (embedding <=> $1::vector)"
	}

	query := fmt.Sprintf(`SELECT content, source, page, %s AS score
		FROM %s
		ORDER BY embedding %s $1::vector
		LIMIT $2`, scoreExpr, pq.QuoteIdentifier(collection), operator)

	rows, err := p.db.QueryContext(ctx, query, vectorToString(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var results []domain.ScoredPoint
	for rows.Next() {
		var content, source string
		var page sql.NullInt64
		var score float64
		if err := rows.Scan(&content, &source, &page, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		payload := map[string]any{"text": content, "source": source}
		if page.Valid {
			payload["page"] = page.Int64
		}
		results = append(results, domain.ScoredPoint{Score: float32(score), Payload: payload})
	}
	return results, rows.Err()
}

// PointCount counts the rows in the collection table.
func (p *PgVectorIndex) PointCount(ctx context.Context, collection string) (uint64, error) {
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, pq.QuoteIdentifier(collection))
	var count uint64
	if err := p.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// isDuplicateTable matches Postgres error 42P07 (duplicate_table).
func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P07" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func payloadPage(payload map[string]any) any {
	switch v := payload["page"].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return nil
	}
}

// vectorToString renders a pgvector literal: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
