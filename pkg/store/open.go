package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendLevelDB  = "leveldb"
)

// Options selects and locates a backend.
type Options struct {
	Backend     string
	DataDir     string
	DatabaseURL string
}

// Open constructs the configured Log. SQL backends have their schema initialized.
func Open(ctx context.Context, opts Options) (Log, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryLog(), nil
	case BackendFile, "":
		return NewFileLog(filepath.Join(opts.DataDir, "ledger"))
	case BackendLevelDB:
		return NewLevelDBLog(filepath.Join(opts.DataDir, "ledger.ldb"))
	case BackendSQLite:
		if err := os.MkdirAll(opts.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
		dsn := opts.DatabaseURL
		if dsn == "" {
			dsn = filepath.Join(opts.DataDir, "ecoledger.db")
		}
		return openSQL(ctx, "sqlite", dsn, BackendSQLite)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("store: postgres backend requires a database url")
		}
		return openSQL(ctx, "postgres", opts.DatabaseURL, BackendPostgres)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}

func openSQL(ctx context.Context, driver, dsn, backend string) (*SQLLog, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", backend, err)
	}
	if driver == "sqlite" {
		// single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", backend, err)
	}
	l := NewSQLLog(db, backend)
	if err := l.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return l, nil
}
