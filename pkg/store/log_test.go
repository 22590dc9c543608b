package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

func entry(kind contracts.Kind, block uint64) contracts.Entry {
	return contracts.Entry{
		Kind:        kind,
		ID:          fmt.Sprintf("%s-%d", kind, block),
		BlockNumber: block,
		PrevHash:    fmt.Sprintf("prev-%d", block),
		Hash:        fmt.Sprintf("hash-%d", block),
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, int(block)*1000+7, time.UTC),
		Payload:     json.RawMessage(fmt.Sprintf(`{"n":%d}`, block)),
	}
}

// runLogSuite exercises the Log contract shared by every backend.
func runLogSuite(t *testing.T, open func(t *testing.T) Log) {
	ctx := context.Background()

	t.Run("append and scan in order", func(t *testing.T) {
		l := open(t)
		for i := uint64(1); i <= 3; i++ {
			require.NoError(t, l.Append(ctx, entry(contracts.KindReport, i)))
		}
		require.NoError(t, l.Append(ctx, entry(contracts.KindCredit, 1)))

		got, err := ScanAll(ctx, l, contracts.KindReport)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, e := range got {
			want := entry(contracts.KindReport, uint64(i+1))
			assert.Equal(t, want.ID, e.ID)
			assert.Equal(t, want.BlockNumber, e.BlockNumber)
			assert.Equal(t, want.Hash, e.Hash)
			assert.Equal(t, want.PrevHash, e.PrevHash)
			assert.True(t, want.Timestamp.Equal(e.Timestamp), "timestamp %v != %v", want.Timestamp, e.Timestamp)
			assert.JSONEq(t, string(want.Payload), string(e.Payload))
		}

		credits, err := ScanAll(ctx, l, contracts.KindCredit)
		require.NoError(t, err)
		assert.Len(t, credits, 1)

		txs, err := ScanAll(ctx, l, contracts.KindTransaction)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("rejects gaps and duplicate blocks", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, entry(contracts.KindReport, 1)))
		assert.ErrorIs(t, l.Append(ctx, entry(contracts.KindReport, 1)), ErrConflict)
		assert.ErrorIs(t, l.Append(ctx, entry(contracts.KindReport, 3)), ErrConflict)

		got, err := ScanAll(ctx, l, contracts.KindReport)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("scan stops on callback error", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, entry(contracts.KindCredit, 1)))
		require.NoError(t, l.Append(ctx, entry(contracts.KindCredit, 2)))

		stop := errors.New("stop")
		calls := 0
		err := l.Scan(ctx, contracts.KindCredit, func(contracts.Entry) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestMemoryLog(t *testing.T) {
	runLogSuite(t, func(t *testing.T) Log {
		l := NewMemoryLog()
		t.Cleanup(func() { _ = l.Close() })
		return l
	})
}

func TestFileLog(t *testing.T) {
	runLogSuite(t, func(t *testing.T) Log {
		l, err := NewFileLog(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	})
}

func TestLevelDBLog(t *testing.T) {
	runLogSuite(t, func(t *testing.T) Log {
		l, err := NewLevelDBLog(filepath.Join(t.TempDir(), "ldb"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	})
}

func TestSQLiteLog(t *testing.T) {
	runLogSuite(t, func(t *testing.T) Log {
		l, err := Open(context.Background(), Options{Backend: BackendSQLite, DataDir: t.TempDir()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	})
}

func TestMemoryLog_Closed(t *testing.T) {
	l := NewMemoryLog()
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Append(context.Background(), entry(contracts.KindReport, 1)), ErrClosed)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "mongodb"})
	require.Error(t, err)

	_, err = Open(context.Background(), Options{Backend: BackendPostgres})
	require.Error(t, err)
}
