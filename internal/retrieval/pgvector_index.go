package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PGIndex is a pgvector-backed index. Every query carries the tenant/user
// WHERE clause.
type PGIndex struct {
	db    *sql.DB
	table string
}

func NewPGIndex(db *sql.DB, table string) (*PGIndex, error) {
	if db == nil {
		return nil, errors.New("vault database is nil")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid vault table name %q", table)
	}
	return &PGIndex{db: db, table: table}, nil
}

// Current makes the index its own Source; the database is always the live view.
func (p *PGIndex) Current() VectorIndex {
	return p
}

// EnsureSchema creates the extension and table when missing.
func (p *PGIndex) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, user_id, chunk_id)
		)`, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure vault schema: %w", err)
		}
	}
	return nil
}

func (p *PGIndex) Search(ctx context.Context, query []float64, k int, f Filter) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	if f.TenantID == "" || f.UserID == "" {
		return nil, errors.New("tenant id and user id are required")
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_id,
			tenant_id,
			user_id,
			source,
			content,
			embedding,
			embedding <=> $3 AS distance
		FROM %s
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY embedding <=> $3
		LIMIT $4
	`, p.table), f.TenantID, f.UserID, pgvector.NewVector(toFloat32(query)), k)
	if err != nil {
		return nil, fmt.Errorf("search vault: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var vec pgvector.Vector
		if err := rows.Scan(&c.ChunkID, &c.TenantID, &c.UserID, &c.Source, &c.Text, &vec, &c.Distance); err != nil {
			return nil, fmt.Errorf("scan vault chunk: %w", err)
		}
		c.Embedding = toFloat64(vec.Slice())
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault chunks: %w", err)
	}
	return out, nil
}

func (p *PGIndex) MMRSearch(ctx context.Context, query []float64, k, fetchK int, lambda float64, f Filter) ([]Candidate, error) {
	if fetchK < k {
		fetchK = k
	}
	pool, err := p.Search(ctx, query, fetchK, f)
	if err != nil {
		return nil, err
	}
	out := mmrFromCandidates(query, pool, k, lambda)
	for i := range out {
		out[i].Distance = 0
	}
	return out, nil
}

func (p *PGIndex) ReplaceUserDocuments(ctx context.Context, tenantID, userID string, entries []Entry) error {
	if tenantID == "" || userID == "" {
		return errors.New("tenant id and user id are required")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE tenant_id = $1 AND user_id = $2
	`, p.table), tenantID, userID); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	if len(entries) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (chunk_id, tenant_id, user_id, source, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.table))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.ChunkID, tenantID, userID, e.Source, e.Text,
				pgvector.NewVector(toFloat32(e.Embedding))); err != nil {
				return fmt.Errorf("insert chunk %s: %w", e.ChunkID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
