// Package store persists documents, their segments and validation runs in
// SQLite. Runs are insert-only: a new run supersedes older ones, it never
// mutates them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/prasadk/complyscan/internal/model"
	"github.com/prasadk/complyscan/internal/score"
)

// ErrRunNotFound is returned when a run id has no row
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed document and run store. Safe for concurrent use;
// database/sql serializes access to the single connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs migrations
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        segment_count INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS segments (
        document_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        section TEXT NOT NULL,
        kind TEXT NOT NULL,
        content TEXT NOT NULL,
        PRIMARY KEY (document_id, position)
    );
    CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        document_id TEXT NOT NULL,
        framework TEXT NOT NULL,
        score INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS verdicts (
        run_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        rule_id TEXT NOT NULL,
        rule_name TEXT NOT NULL,
        severity TEXT NOT NULL,
        mandatory INTEGER NOT NULL,
        status TEXT NOT NULL,
        evidence JSON,
        explanation TEXT NOT NULL,
        confidence REAL NOT NULL,
        sections JSON,
        from_cache INTEGER NOT NULL,
        PRIMARY KEY (run_id, position)
    );
    CREATE INDEX IF NOT EXISTS runs_document_idx ON runs (document_id, created_at);
    `
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument registers a document and replaces its segments atomically
func (s *Store) SaveDocument(ctx context.Context, doc model.Document, segments []model.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO documents (id, name, segment_count, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name,
            segment_count = excluded.segment_count,
            created_at = excluded.created_at
    `, doc.ID, doc.Name, len(segments), doc.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	for _, seg := range segments {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO segments (document_id, position, section, kind, content)
            VALUES (?, ?, ?, ?, ?)
        `, doc.ID, seg.Position, seg.Section, string(seg.Kind), seg.Text)
		if err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", seg.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// GetDocument returns the document row, or ok=false when unregistered
func (s *Store) GetDocument(ctx context.Context, documentID string) (model.Document, bool, error) {
	var doc model.Document
	err := s.db.QueryRowContext(ctx, `
        SELECT id, name, segment_count, created_at FROM documents WHERE id = ?
    `, documentID).Scan(&doc.ID, &doc.Name, &doc.SegmentCount, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, true, nil
}

// Documents lists registered documents, newest first
func (s *Store) Documents(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, segment_count, created_at FROM documents ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.SegmentCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Segments returns the ordered segments of a document. An unregistered
// document yields an empty slice, which the orchestrator reports as a
// missing document.
func (s *Store) Segments(ctx context.Context, documentID string) ([]model.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT document_id, position, section, kind, content
        FROM segments
        WHERE document_id = ?
        ORDER BY position
    `, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		var kind string
		if err := rows.Scan(&seg.DocumentID, &seg.Position, &seg.Section, &kind, &seg.Text); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		seg.Kind = model.SegmentKind(kind)
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// SaveRun persists a completed validation run with its verdicts
func (s *Store) SaveRun(ctx context.Context, run *model.ValidationRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO runs (id, document_id, framework, score, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, run.ID, run.DocumentID, run.Framework, run.Score.Value, run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, v := range run.Verdicts {
		evidence, err := json.Marshal(v.Evidence)
		if err != nil {
			return fmt.Errorf("failed to encode evidence: %w", err)
		}
		sections, err := json.Marshal(v.Sections)
		if err != nil {
			return fmt.Errorf("failed to encode sections: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO verdicts (run_id, position, rule_id, rule_name, severity,
                                  mandatory, status, evidence, explanation,
                                  confidence, sections, from_cache)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `, run.ID, i, v.RuleID, v.RuleName, string(v.Severity), v.Mandatory,
			string(v.Status), string(evidence), v.Explanation, v.Confidence,
			string(sections), v.FromCache)
		if err != nil {
			return fmt.Errorf("failed to insert verdict %s: %w", v.RuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun loads a run with its verdicts. The score and gap list are rebuilt
// from the stored verdicts, so both stay consistent by construction.
func (s *Store) GetRun(ctx context.Context, runID string) (*model.ValidationRun, error) {
	run := &model.ValidationRun{}
	err := s.db.QueryRowContext(ctx, `
        SELECT id, document_id, framework, created_at FROM runs WHERE id = ?
    `, runID).Scan(&run.ID, &run.DocumentID, &run.Framework, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	verdicts, err := s.runVerdicts(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Verdicts = verdicts
	run.Score = score.Aggregate(verdicts)
	return run, nil
}

// RunsForDocument lists a document's run summaries, newest first. Verdicts
// are not loaded; use GetRun for the full detail.
func (s *Store) RunsForDocument(ctx context.Context, documentID string) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, document_id, framework, score, created_at
        FROM runs
        WHERE document_id = ?
        ORDER BY created_at DESC
    `, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []model.RunSummary
	for rows.Next() {
		var sum model.RunSummary
		if err := rows.Scan(&sum.ID, &sum.DocumentID, &sum.Framework, &sum.Score, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// LatestRun returns the newest run for a document and framework, or
// ErrRunNotFound when the document has never been validated against it.
func (s *Store) LatestRun(ctx context.Context, documentID, framework string) (*model.ValidationRun, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `
        SELECT id FROM runs
        WHERE document_id = ? AND framework = ?
        ORDER BY created_at DESC
        LIMIT 1
    `, documentID, framework).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no runs for document %q framework %q", ErrRunNotFound, documentID, framework)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest run: %w", err)
	}
	return s.GetRun(ctx, runID)
}

func (s *Store) runVerdicts(ctx context.Context, runID string) ([]model.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT rule_id, rule_name, severity, mandatory, status, evidence,
               explanation, confidence, sections, from_cache
        FROM verdicts
        WHERE run_id = ?
        ORDER BY position
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []model.Verdict
	for rows.Next() {
		var v model.Verdict
		var severity, status string
		var evidence, sections sql.NullString
		if err := rows.Scan(&v.RuleID, &v.RuleName, &severity, &v.Mandatory,
			&status, &evidence, &v.Explanation, &v.Confidence,
			&sections, &v.FromCache); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Severity = model.Severity(severity)
		v.Status = model.VerdictStatus(status)
		if evidence.Valid {
			if err := json.Unmarshal([]byte(evidence.String), &v.Evidence); err != nil {
				return nil, fmt.Errorf("failed to decode evidence for %s: %w", v.RuleID, err)
			}
		}
		if sections.Valid {
			if err := json.Unmarshal([]byte(sections.String), &v.Sections); err != nil {
				return nil, fmt.Errorf("failed to decode sections for %s: %w", v.RuleID, err)
			}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}
