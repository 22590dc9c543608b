package ledger

import (
	"context"
	"sort"

	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/store"
)

// Get returns the stored envelope of an entry.
func (c *Chain) Get(kind contracts.Kind, id string) (contracts.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.byID[kind][id]
	if !ok {
		return contracts.Entry{}, &contracts.NotFoundError{Kind: kind, ID: id}
	}
	return c.entries[kind][idx], nil
}

// Entries returns a copy of one sequence in block order.
func (c *Chain) Entries(kind contracts.Kind) []contracts.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]contracts.Entry{}, c.entries[kind]...)
}

// Head returns the block number and hash of the tail of a sequence.
func (c *Chain) Head(kind contracts.Kind) (uint64, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h := c.heads[kind]
	return h.block, h.hash
}

// Report returns a stored report.
func (c *Chain) Report(id string) (*contracts.Report, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.reports[id]
	if !ok {
		return nil, &contracts.NotFoundError{Kind: contracts.KindReport, ID: id}
	}
	out := *r
	return &out, nil
}

// Credit returns the live projection of a credit record.
func (c *Chain) Credit(id string) (*contracts.CreditRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.credits[id]
	if !ok {
		return nil, &contracts.NotFoundError{Kind: contracts.KindCredit, ID: id}
	}
	out := *rec
	return &out, nil
}

// Transaction returns a stored transfer.
func (c *Chain) Transaction(id string) (*contracts.Transaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, ok := c.txs[id]
	if !ok {
		return nil, &contracts.NotFoundError{Kind: contracts.KindTransaction, ID: id}
	}
	return cloneTx(tx), nil
}

// Credits returns every credit record in issuance order.
func (c *Chain) Credits() []contracts.CreditRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]contracts.CreditRecord, 0, len(c.entries[contracts.KindCredit]))
	for _, e := range c.entries[contracts.KindCredit] {
		out = append(out, *c.credits[e.ID])
	}
	return out
}

// CreditsOf returns the records issued to holder in issuance order.
func (c *Chain) CreditsOf(holder string) []contracts.CreditRecord {
	holder = contracts.NormalizeHolderID(holder)

	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.holdings[holder]
	out := make([]contracts.CreditRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *c.credits[id])
	}
	return out
}

// Holders returns every holder that was issued credits, sorted.
func (c *Chain) Holders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.holdings))
	for h := range c.holdings {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Balance is the sum of available credits across the holder's records.
func (c *Chain) Balance(holder string) float64 {
	holder = contracts.NormalizeHolderID(holder)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balanceLocked(holder)
}

// Transactions returns every transfer in block order.
func (c *Chain) Transactions() []contracts.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]contracts.Transaction, 0, len(c.txs))
	for _, e := range c.entries[contracts.KindTransaction] {
		out = append(out, *cloneTx(c.txs[e.ID]))
	}
	return out
}

// TransactionsOf returns the transfers a holder sent or received, in block order.
func (c *Chain) TransactionsOf(holder string) []contracts.Transaction {
	holder = contracts.NormalizeHolderID(holder)
	var out []contracts.Transaction
	for _, tx := range c.Transactions() {
		if tx.FromID == holder || tx.ToID == holder {
			out = append(out, tx)
		}
	}
	return out
}

// PendingRelay lists records whose relay submission failed, for manual reconciliation.
func (c *Chain) PendingRelay() []contracts.CreditRecord {
	var out []contracts.CreditRecord
	for _, rec := range c.Credits() {
		if rec.Status == contracts.CreditPendingOnChain {
			out = append(out, rec)
		}
	}
	return out
}

// Stats summarizes the ledger.
type Stats struct {
	Backend          string  `json:"backend"`
	Reports          uint64  `json:"reports"`
	Credits          uint64  `json:"credit_records"`
	Transactions     uint64  `json:"transactions"`
	Holders          int     `json:"holders"`
	TotalIssued      float64 `json:"total_credits_issued"`
	TotalAvailable   float64 `json:"total_available_credits"`
	TotalBuffer      float64 `json:"total_buffer_credits"`
	TotalTransferred float64 `json:"total_credits_transferred"`
	TotalTradeValue  float64 `json:"total_trade_value"`
	OnChain          int     `json:"onchain_records"`
	PendingRelay     int     `json:"pending_relay_records"`
	ReportsHead      string  `json:"reports_head"`
	CreditsHead      string  `json:"credits_head"`
	TransactionsHead string  `json:"transactions_head"`
}

// Stats computes ledger-wide totals.
func (c *Chain) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Backend:          c.log.Backend(),
		Reports:          c.heads[contracts.KindReport].block,
		Credits:          c.heads[contracts.KindCredit].block,
		Transactions:     c.heads[contracts.KindTransaction].block,
		Holders:          len(c.holdings),
		ReportsHead:      c.heads[contracts.KindReport].hash,
		CreditsHead:      c.heads[contracts.KindCredit].hash,
		TransactionsHead: c.heads[contracts.KindTransaction].hash,
	}
	for _, e := range c.entries[contracts.KindCredit] {
		rec := c.credits[e.ID]
		s.TotalIssued += rec.TotalCredits
		s.TotalAvailable += rec.AvailableCredits
		s.TotalBuffer += rec.BufferCredits
		switch rec.Status {
		case contracts.CreditIssuedOnChain:
			s.OnChain++
		case contracts.CreditPendingOnChain:
			s.PendingRelay++
		}
	}
	for _, e := range c.entries[contracts.KindTransaction] {
		tx := c.txs[e.ID]
		s.TotalTransferred += tx.CreditsAmount
		s.TotalTradeValue += tx.TotalAmount
	}
	return s
}

// Verify re-reads every sequence from the durable log and checks hashes and links.
func (c *Chain) Verify(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, kind := range contracts.Kinds() {
		entries, err := store.ScanAll(ctx, c.log, kind)
		if err != nil {
			return err
		}
		if err := VerifySequence(kind, entries); err != nil {
			return err
		}
	}
	return nil
}

func cloneTx(tx *contracts.Transaction) *contracts.Transaction {
	out := *tx
	out.Debits = append([]contracts.Debit(nil), tx.Debits...)
	return &out
}
