// Package archive exports the ledger's hash-chained sequences as a portable
// bundle and stores bundles in content-addressed sinks.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/01phanto/EcoLedger/pkg/canonicalize"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
)

// FormatVersion is written into every exported bundle.
const FormatVersion = "1.0.0"

// supportedFormats is the range of bundle versions this build can read.
const supportedFormats = "^1"

// Source is the read side of a ledger that can be exported.
type Source interface {
	Entries(kind contracts.Kind) []contracts.Entry
	Backend() string
}

// Bundle is a full copy of every sequence at export time.
type Bundle struct {
	FormatVersion string                               `json:"format_version"`
	ExportedAt    time.Time                            `json:"exported_at"`
	Backend       string                               `json:"backend"`
	Sequences     map[contracts.Kind][]contracts.Entry `json:"sequences"`
}

// Export snapshots src. Each sequence is copied under the chain's read lock,
// so a bundle never contains a partially appended entry.
func Export(ctx context.Context, src Source) (*Bundle, error) {
	b := &Bundle{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		Backend:       src.Backend(),
		Sequences:     make(map[contracts.Kind][]contracts.Entry, len(contracts.Kinds())),
	}
	for _, kind := range contracts.Kinds() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries := src.Entries(kind)
		if entries == nil {
			entries = []contracts.Entry{}
		}
		b.Sequences[kind] = entries
	}
	return b, nil
}

// Encode returns the canonical JSON form of the bundle. Equal bundles encode
// to equal bytes, so the encoding can be content-addressed.
func (b *Bundle) Encode() ([]byte, error) {
	return canonicalize.JCS(b)
}

// Decode parses a bundle. It does not verify it.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("archive: decode bundle: %w", err)
	}
	return &b, nil
}

// Size returns the number of entries across all sequences.
func (b *Bundle) Size() int {
	n := 0
	for _, entries := range b.Sequences {
		n += len(entries)
	}
	return n
}

// VerifyBundle checks the format version and re-verifies every hash and link.
func VerifyBundle(b *Bundle) error {
	constraint, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return err
	}
	v, err := semver.NewVersion(b.FormatVersion)
	if err != nil {
		return fmt.Errorf("archive: invalid format version %q: %w", b.FormatVersion, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("archive: bundle format %s is not supported (want %s)", b.FormatVersion, supportedFormats)
	}

	for kind := range b.Sequences {
		if !kind.Valid() {
			return fmt.Errorf("archive: unknown sequence %q", kind)
		}
	}
	for _, kind := range contracts.Kinds() {
		if err := ledger.VerifySequence(kind, b.Sequences[kind]); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}
