package contracts

import (
	"encoding/json"
	"time"
)

// Kind names one of the independently numbered ledger sequences.
type Kind string

const (
	KindReport      Kind = "report"
	KindCredit      Kind = "credit"
	KindTransaction Kind = "transaction"
)

// Kinds lists every sequence in replay order: credits reference reports and
// transactions reference credits.
func Kinds() []Kind {
	return []Kind{KindReport, KindCredit, KindTransaction}
}

// Valid reports whether k is a known sequence.
func (k Kind) Valid() bool {
	switch k {
	case KindReport, KindCredit, KindTransaction:
		return true
	}
	return false
}

// GenesisHash is the prev_hash of the first entry in every sequence.
const GenesisHash = "genesis"

// Entry is the generic hash-chained envelope persisted by a ledger log.
type Entry struct {
	Kind        Kind            `json:"kind"`
	ID          string          `json:"id"`
	BlockNumber uint64          `json:"block_number"`
	PrevHash    string          `json:"prev_hash"`
	Hash        string          `json:"hash"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}
