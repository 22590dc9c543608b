package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/01phanto/EcoLedger/pkg/canonicalize"
	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// hashInput is the preimage of an entry hash. The stored hash is never part of it.
type hashInput struct {
	BlockNumber uint64          `json:"block_number"`
	ID          string          `json:"id"`
	Kind        contracts.Kind  `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	PrevHash    string          `json:"prev_hash"`
	Timestamp   string          `json:"timestamp"`
}

// ComputeHash returns the SHA-256 hex digest of the RFC 8785 canonical form of e,
// excluding e.Hash.
func ComputeHash(e contracts.Entry) (string, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	b, err := canonicalize.JCS(hashInput{
		BlockNumber: e.BlockNumber,
		ID:          e.ID,
		Kind:        e.Kind,
		Payload:     payload,
		PrevHash:    e.PrevHash,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("ledger: hash %s/%s: %w", e.Kind, e.ID, err)
	}
	return canonicalize.HashBytes(b), nil
}

// VerifyEntry checks that e is the next link after prevHash at position block.
func VerifyEntry(e contracts.Entry, block uint64, prevHash string) error {
	if e.BlockNumber != block {
		return fmt.Errorf("%w: %s sequence gap: expected block %d, got %d", contracts.ErrChainCorrupted, e.Kind, block, e.BlockNumber)
	}
	if e.PrevHash != prevHash {
		return fmt.Errorf("%w: %s block %d: prev_hash %s does not match %s", contracts.ErrChainCorrupted, e.Kind, block, e.PrevHash, prevHash)
	}
	want, err := ComputeHash(e)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrChainCorrupted, err)
	}
	if want != e.Hash {
		return fmt.Errorf("%w: %s block %d: hash mismatch", contracts.ErrChainCorrupted, e.Kind, block)
	}
	return nil
}

// VerifySequence walks one sequence from genesis, recomputing every hash and link.
func VerifySequence(kind contracts.Kind, entries []contracts.Entry) error {
	prev := contracts.GenesisHash
	for i, e := range entries {
		if e.Kind != kind {
			return fmt.Errorf("%w: %s block %d has kind %q", contracts.ErrChainCorrupted, kind, i+1, e.Kind)
		}
		if err := VerifyEntry(e, uint64(i)+1, prev); err != nil {
			return err
		}
		prev = e.Hash
	}
	return nil
}

// encodePayload canonicalizes a record for storage and hashing.
func encodePayload(v any) (json.RawMessage, error) {
	b, err := canonicalize.JCS(v)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode payload: %w", err)
	}
	return b, nil
}
