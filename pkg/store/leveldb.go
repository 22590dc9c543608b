package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// LevelDBLog stores entries in a LevelDB database.
//
//	entry/<kind>/<block, 20 digits>  -> JSON entry
//	id/<kind>/<id>                   -> block number
//	tail/<kind>                      -> block number
type LevelDBLog struct {
	db *leveldb.DB
	mu sync.Mutex
}

// NewLevelDBLog opens (or creates) a database at path.
func NewLevelDBLog(path string) (*LevelDBLog, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb: %w", err)
	}
	return &LevelDBLog{db: db}, nil
}

func entryKey(kind contracts.Kind, block uint64) []byte {
	return []byte(fmt.Sprintf("entry/%s/%020d", kind, block))
}

func idKey(kind contracts.Kind, id string) []byte {
	return []byte(fmt.Sprintf("id/%s/%s", kind, id))
}

func tailKey(kind contracts.Kind) []byte {
	return []byte("tail/" + string(kind))
}

func (l *LevelDBLog) tail(kind contracts.Kind) (uint64, error) {
	raw, err := l.db.Get(tailKey(kind), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	if _, err := fmt.Sscanf(string(raw), "%d", &n); err != nil {
		return 0, fmt.Errorf("store: corrupt tail for %s: %w", kind, err)
	}
	return n, nil
}

func (l *LevelDBLog) Append(_ context.Context, e contracts.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail, err := l.tail(e.Kind)
	if err != nil {
		return fmt.Errorf("store: read tail: %w", err)
	}
	if e.BlockNumber != tail+1 {
		return fmt.Errorf("%w: %s block %d, tail is %d", ErrConflict, e.Kind, e.BlockNumber, tail)
	}
	exists, err := l.db.Has(idKey(e.Kind, e.ID), nil)
	if err != nil {
		return fmt.Errorf("store: check id: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s id %q exists", ErrConflict, e.Kind, e.ID)
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: encode entry: %w", err)
	}
	block := []byte(fmt.Sprintf("%d", e.BlockNumber))

	batch := new(leveldb.Batch)
	batch.Put(entryKey(e.Kind, e.BlockNumber), value)
	batch.Put(idKey(e.Kind, e.ID), block)
	batch.Put(tailKey(e.Kind), block)
	if err := l.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("store: write %s/%d: %w", e.Kind, e.BlockNumber, err)
	}
	return nil
}

func (l *LevelDBLog) Scan(ctx context.Context, kind contracts.Kind, fn func(contracts.Entry) error) error {
	iter := l.db.NewIterator(util.BytesPrefix([]byte("entry/"+string(kind)+"/")), nil)
	defer iter.Release()

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var e contracts.Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return fmt.Errorf("store: decode %s: %w", kind, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (l *LevelDBLog) Backend() string { return "leveldb" }

func (l *LevelDBLog) Close() error { return l.db.Close() }
