package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/pagecite/internal/types"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// VectorStore keeps chunk embeddings in a pgvector table.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.VectorStore = (*VectorStore)(nil)

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "page_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// seq records insertion order and breaks distance ties.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Upsert writes rows in transactions of at most BatchSize rows.
func (vs *VectorStore) Upsert(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error {
	if len(ids) != len(texts) || len(ids) != len(embeddings) {
		return fmt.Errorf("ids, texts and embeddings length mismatch: %d/%d/%d", len(ids), len(texts), len(embeddings))
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for start := 0; start < len(ids); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		for i := start; i < end; i++ {
			if _, err := tx.Exec(ctx, stmt, ids[i], texts[i], pgvector.NewVector(embeddings[i])); err != nil {
				tx.Rollback(ctx)
				return fmt.Errorf("failed to upsert chunk %s: %w", ids[i], err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	return nil
}

func (vs *VectorStore) QueryVector(ctx context.Context, embedding []float32, k int) (types.QueryResult, error) {
	query := fmt.Sprintf(`
		SELECT id, content, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance, seq
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var result types.QueryResult
	for rows.Next() {
		var (
			id, content string
			distance    float64
		)
		if err := rows.Scan(&id, &content, &distance); err != nil {
			return types.QueryResult{}, fmt.Errorf("failed to scan row: %w", err)
		}
		result.IDs = append(result.IDs, id)
		result.Documents = append(result.Documents, content)
		result.Distances = append(result.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return types.QueryResult{}, fmt.Errorf("failed to read rows: %w", err)
	}

	return result, nil
}

// Reset empties the collection before a new ingest.
func (vs *VectorStore) Reset(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", vs.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to reset table: %w", err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
