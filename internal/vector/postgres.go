package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/prasadk/complyscan/internal/model"
)

// Embedder turns text into a vector. Satisfied by OllamaEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Index stores segment embeddings in Postgres with the pgvector extension
// and answers nearest-neighbour queries over them.
type Index struct {
	pool       *pgxpool.Pool
	embedder   Embedder
	dimensions int
}

// NewIndex connects to Postgres, ensures the schema and returns the index.
// The pgvector extension must already be installed on the server.
func NewIndex(ctx context.Context, connStr string, embedder Embedder, dimensions int) (*Index, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	idx := &Index{pool: pool, embedder: embedder, dimensions: dimensions}
	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) initialize(ctx context.Context) error {
	_, err := idx.pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS document_segments (
            id SERIAL PRIMARY KEY,
            document_id TEXT NOT NULL,
            position INTEGER NOT NULL,
            section TEXT NOT NULL,
            kind TEXT NOT NULL,
            content TEXT NOT NULL,
            embedding vector(%d) NOT NULL,
            UNIQUE (document_id, position)
        )
    `, idx.dimensions))
	if err != nil {
		return fmt.Errorf("failed to create document_segments table: %w", err)
	}

	_, err = idx.pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS document_segments_embedding_idx ON document_segments
        USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
    `)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	_, err = idx.pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS document_segments_document_idx ON document_segments (document_id)
    `)
	if err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}
	return nil
}

// IndexSegments embeds and stores a document's segments, replacing any
// previous rows for the document. Embedding calls run concurrently.
func (idx *Index) IndexSegments(ctx context.Context, documentID string, segments []model.Segment) error {
	embeddings := make([][]float64, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexingConcurrency)
	for i, seg := range segments {
		g.Go(func() error {
			emb, err := idx.embedder.Embed(gctx, seg.Section+"\n"+seg.Text)
			if err != nil {
				return fmt.Errorf("segment %d (%s): %w", seg.Position, seg.Section, err)
			}
			embeddings[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to embed segments: %w", err)
	}

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_segments WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear previous segments: %w", err)
	}

	for i, seg := range segments {
		_, err := tx.Exec(ctx, `
            INSERT INTO document_segments (document_id, position, section, kind, content, embedding)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, documentID, seg.Position, seg.Section, string(seg.Kind), seg.Text, vectorLiteral(embeddings[i]))
		if err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", seg.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}
	return nil
}

// SimilaritySearch returns the k segments of the document closest to the
// query by cosine distance, best first.
func (idx *Index) SimilaritySearch(ctx context.Context, documentID, query string, k int) ([]model.ScoredSegment, error) {
	embedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := idx.pool.Query(ctx, `
        SELECT document_id, position, section, kind, content,
               1 - (embedding <=> $2) AS similarity
        FROM document_segments
        WHERE document_id = $1
        ORDER BY embedding <=> $2
        LIMIT $3
    `, documentID, vectorLiteral(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar segments: %w", err)
	}
	defer rows.Close()

	var hits []model.ScoredSegment
	for rows.Next() {
		var seg model.Segment
		var kind string
		var score float64
		if err := rows.Scan(&seg.DocumentID, &seg.Position, &seg.Section, &kind, &seg.Text, &score); err != nil {
			return nil, fmt.Errorf("failed to scan segment row: %w", err)
		}
		seg.Kind = model.SegmentKind(kind)
		hits = append(hits, model.ScoredSegment{Segment: seg, Score: score})
	}
	return hits, rows.Err()
}

// DeleteDocument removes all indexed segments for a document
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := idx.pool.Exec(ctx, `DELETE FROM document_segments WHERE document_id = $1`, documentID)
	return err
}

func (idx *Index) Close() {
	idx.pool.Close()
}

// vectorLiteral renders an embedding in pgvector's input syntax, e.g.
// "[0.1,0.2]". Sending the literal keeps the wire format independent of
// any driver-level vector codec.
func vectorLiteral(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
