//go:build property
// +build property

package ledger_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
)

func entryFor(block uint64, prev, note string, amount int, sec int64) contracts.Entry {
	payload, _ := json.Marshal(map[string]any{"note": note, "amount": amount})
	return contracts.Entry{
		Kind:        contracts.KindCredit,
		ID:          fmt.Sprintf("c-%d", block),
		BlockNumber: block,
		PrevHash:    prev,
		Timestamp:   time.Unix(sec, 0).UTC(),
		Payload:     payload,
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("same entry, same hash; stored hash ignored", prop.ForAll(
		func(block uint64, note string, amount int, sec int64) bool {
			e := entryFor(block, contracts.GenesisHash, note, amount, sec)
			h1, err := ledger.ComputeHash(e)
			if err != nil {
				return false
			}
			e.Hash = "anything"
			h2, err := ledger.ComputeHash(e)
			return err == nil && h1 == h2 && len(h1) == 64
		},
		gen.UInt64Range(1, 1<<40),
		gen.AlphaString(),
		gen.IntRange(-1000, 1000),
		gen.Int64Range(0, 4102444800),
	))

	properties.Property("payload change alters the hash", prop.ForAll(
		func(note string, amount int) bool {
			a := entryFor(1, contracts.GenesisHash, note, amount, 0)
			b := entryFor(1, contracts.GenesisHash, note, amount+1, 0)
			ha, errA := ledger.ComputeHash(a)
			hb, errB := ledger.ComputeHash(b)
			return errA == nil && errB == nil && ha != hb
		},
		gen.AlphaString(),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

func TestLinkedSequenceVerifies(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("linked entries verify and a tampered one does not", prop.ForAll(
		func(n, victim int) bool {
			entries := make([]contracts.Entry, 0, n)
			prev := contracts.GenesisHash
			for i := 1; i <= n; i++ {
				e := entryFor(uint64(i), prev, "x", i, int64(i))
				h, err := ledger.ComputeHash(e)
				if err != nil {
					return false
				}
				e.Hash = h
				entries = append(entries, e)
				prev = h
			}
			if ledger.VerifySequence(contracts.KindCredit, entries) != nil {
				return false
			}
			i := victim % n
			entries[i].Payload = json.RawMessage(`{"amount":-1,"note":"tampered"}`)
			return ledger.VerifySequence(contracts.KindCredit, entries) != nil
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
