// Package postgres persists the PYQ corpus and upload history. The corpus
// table is the source of truth for every index build: re-ingestion replaces
// a subject's rows in one transaction, then the index is rebuilt from them.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/intelliject/intelliject/internal/core/domain"
)

type PYQRepository struct {
	db *sql.DB
}

func NewPYQRepository(db *sql.DB) *PYQRepository {
	return &PYQRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PYQRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/loader startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pyqs (
	id BIGSERIAL PRIMARY KEY,
	subject TEXT NOT NULL,
	question TEXT NOT NULL,
	sub_topic TEXT NOT NULL DEFAULT '',
	marks DOUBLE PRECISION NOT NULL DEFAULT 0,
	year TEXT NOT NULL DEFAULT '',
	semester TEXT NOT NULL DEFAULT '',
	branch TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_pyqs_subject ON pyqs(subject);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// ListBySubject returns the subject's records in insertion order. The order
// is load-bearing: index ordinals and tie-breaking follow it.
func (r *PYQRepository) ListBySubject(ctx context.Context, subject string) ([]domain.PYQRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, subject, question, sub_topic, marks, year, semester, branch, unit
FROM pyqs
WHERE subject = $1
ORDER BY id
`, subject)
	if err != nil {
		return nil, fmt.Errorf("query pyqs: %w", err)
	}
	defer rows.Close()

	var out []domain.PYQRecord
	for rows.Next() {
		var rec domain.PYQRecord
		if err := rows.Scan(&rec.ID, &rec.Subject, &rec.Question, &rec.SubTopic,
			&rec.Marks, &rec.Year, &rec.Semester, &rec.Branch, &rec.Unit); err != nil {
			return nil, fmt.Errorf("scan pyq: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pyqs: %w", err)
	}
	return out, nil
}

// ReplaceSubject swaps a subject's corpus in one transaction. Any invalid
// record aborts the whole batch and leaves the previous rows untouched.
func (r *PYQRepository) ReplaceSubject(ctx context.Context, subject string, records []domain.PYQRecord) (int, error) {
	for _, rec := range records {
		if err := rec.Validate(subject); err != nil {
			return 0, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pyqs WHERE subject = $1`, subject); err != nil {
		return 0, fmt.Errorf("delete subject rows: %w", err)
	}

	const insert = `
INSERT INTO pyqs (subject, question, sub_topic, marks, year, semester, branch, unit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, insert,
			subject, rec.Question, rec.SubTopic, rec.Marks, rec.Year, rec.Semester, rec.Branch, rec.Unit); err != nil {
			return 0, fmt.Errorf("insert pyq: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace tx: %w", err)
	}
	return len(records), nil
}
