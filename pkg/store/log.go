// Package store provides durable append-only logs for ledger entries.
package store

import (
	"context"
	"errors"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

var (
	// ErrConflict is returned when an entry does not extend its sequence by exactly one block
	// or reuses an id already present in the sequence.
	ErrConflict = errors.New("store: conflicting append")
	// ErrClosed is returned by operations on a closed log.
	ErrClosed = errors.New("store: log closed")
)

// Log is an ordered, durable append log partitioned into sequences by entry kind.
//
// Append is atomic: on error nothing becomes visible to Scan.
type Log interface {
	// Append durably persists e at the tail of its sequence.
	Append(ctx context.Context, e contracts.Entry) error

	// Scan calls fn for every entry of kind in block order. A non-nil error from fn stops the scan.
	Scan(ctx context.Context, kind contracts.Kind, fn func(contracts.Entry) error) error

	// Backend names the implementation, for diagnostics.
	Backend() string

	Close() error
}

// ScanAll collects a whole sequence.
func ScanAll(ctx context.Context, l Log, kind contracts.Kind) ([]contracts.Entry, error) {
	out := make([]contracts.Entry, 0)
	err := l.Scan(ctx, kind, func(e contracts.Entry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}
