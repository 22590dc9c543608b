package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// SQLLog implements Log using database/sql.
// It supports both Postgres and SQLite via standard drivers. The primary key on
// (kind, block_number) rejects forks even across processes sharing one database.
type SQLLog struct {
	db      *sql.DB
	backend string
}

func NewSQLLog(db *sql.DB, backend string) *SQLLog {
	return &SQLLog{db: db, backend: backend}
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	kind TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	id TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (kind, block_number),
	UNIQUE (kind, id)
);
`

// Init creates the schema if it does not exist.
func (s *SQLLog) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLLog) Append(ctx context.Context, e contracts.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var tail sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(block_number) FROM ledger_entries WHERE kind = $1`, string(e.Kind),
	).Scan(&tail); err != nil {
		return fmt.Errorf("store: read tail: %w", err)
	}
	if uint64(tail.Int64)+1 != e.BlockNumber {
		return fmt.Errorf("%w: %s block %d, tail is %d", ErrConflict, e.Kind, e.BlockNumber, tail.Int64)
	}

	query := `
		INSERT INTO ledger_entries (kind, block_number, id, prev_hash, hash, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		string(e.Kind), int64(e.BlockNumber), e.ID, e.PrevHash, e.Hash,
		e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Payload),
	); err != nil {
		return fmt.Errorf("store: insert %s/%d: %w", e.Kind, e.BlockNumber, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *SQLLog) Scan(ctx context.Context, kind contracts.Kind, fn func(contracts.Entry) error) error {
	query := `
		SELECT kind, block_number, id, prev_hash, hash, created_at, payload
		FROM ledger_entries WHERE kind = $1 ORDER BY block_number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return fmt.Errorf("store: query %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			e       contracts.Entry
			k       string
			block   int64
			created string
			payload string
		)
		if err := rows.Scan(&k, &block, &e.ID, &e.PrevHash, &e.Hash, &created, &payload); err != nil {
			return fmt.Errorf("store: scan %s: %w", kind, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return fmt.Errorf("store: parse timestamp of %s/%d: %w", kind, block, err)
		}
		e.Kind = contracts.Kind(k)
		e.BlockNumber = uint64(block)
		e.Timestamp = ts
		e.Payload = []byte(payload)
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLLog) Backend() string { return s.backend }

func (s *SQLLog) Close() error { return s.db.Close() }
