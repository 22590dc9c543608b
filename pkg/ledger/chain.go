// Package ledger implements the hash-chained credit ledger.
//
// Three independently numbered sequences (reports, credits, transactions) are
// persisted through a store.Log. Each entry is hash-chained to its predecessor
// starting from the "genesis" sentinel. An in-memory index is rebuilt by replaying
// the log on Open and updated only after a durable append succeeds.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/store"
)

// balanceEpsilon absorbs floating-point drift in balance comparisons.
const balanceEpsilon = 1e-9

// DefaultPricePerCredit applies when an issuance does not name a price.
const DefaultPricePerCredit = 15.0

// DefaultRelayTimeout bounds a single relay submission.
const DefaultRelayTimeout = 10 * time.Second

// Relay forwards issuances to an external distributed ledger. It is best-effort.
type Relay interface {
	Name() string
	// Submit returns an external reference for the accepted record.
	Submit(ctx context.Context, rec contracts.CreditRecord) (string, error)
}

type head struct {
	block uint64
	hash  string
}

// Chain is the ledger. Writes are serialized by one lock that covers head read,
// hashing, durable append and index update; readers never observe an entry before
// its append has returned.
type Chain struct {
	mu  sync.RWMutex
	log store.Log

	heads   map[contracts.Kind]head
	entries map[contracts.Kind][]contracts.Entry
	byID    map[contracts.Kind]map[string]int

	reports map[string]*contracts.Report
	credits map[string]*contracts.CreditRecord
	// credit ids per holder, in block order
	holdings map[string][]string
	txs      map[string]*contracts.Transaction

	relay        Relay
	relayTimeout time.Duration
	defaultPrice float64
	clock        func() time.Time
	newID        func() string
	logger       *slog.Logger

	subMu       sync.RWMutex
	subscribers map[int]func(contracts.Entry)
	nextSub     int
}

// Option configures a Chain.
type Option func(*Chain)

// WithRelay enables best-effort relaying of issuances. A zero timeout uses DefaultRelayTimeout.
func WithRelay(r Relay, timeout time.Duration) Option {
	return func(c *Chain) {
		c.relay = r
		if timeout > 0 {
			c.relayTimeout = timeout
		}
	}
}

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(c *Chain) { c.clock = clock }
}

// WithIDGenerator overrides credit and transaction id generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Chain) { c.newID = fn }
}

// WithDefaultPrice sets the price used when an issuance omits one.
func WithDefaultPrice(p float64) Option {
	return func(c *Chain) { c.defaultPrice = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// Open replays and verifies every sequence in log and returns a ready Chain.
// A log that fails verification yields contracts.ErrChainCorrupted.
func Open(ctx context.Context, log store.Log, opts ...Option) (*Chain, error) {
	c := &Chain{
		log:          log,
		heads:        make(map[contracts.Kind]head),
		entries:      make(map[contracts.Kind][]contracts.Entry),
		byID:         make(map[contracts.Kind]map[string]int),
		reports:      make(map[string]*contracts.Report),
		credits:      make(map[string]*contracts.CreditRecord),
		holdings:     make(map[string][]string),
		txs:          make(map[string]*contracts.Transaction),
		relayTimeout: DefaultRelayTimeout,
		defaultPrice: DefaultPricePerCredit,
		clock:        time.Now,
		newID:        uuid.NewString,
		logger:       slog.Default().With("component", "ledger"),
		subscribers:  make(map[int]func(contracts.Entry)),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, kind := range contracts.Kinds() {
		c.heads[kind] = head{hash: contracts.GenesisHash}
		c.byID[kind] = make(map[string]int)
	}

	if err := c.replay(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("ledger opened",
		"backend", log.Backend(),
		"reports", c.heads[contracts.KindReport].block,
		"credits", c.heads[contracts.KindCredit].block,
		"transactions", c.heads[contracts.KindTransaction].block,
	)
	return c, nil
}

func (c *Chain) replay(ctx context.Context) error {
	for _, kind := range contracts.Kinds() {
		err := c.log.Scan(ctx, kind, func(e contracts.Entry) error {
			h := c.heads[kind]
			if err := VerifyEntry(e, h.block+1, h.hash); err != nil {
				return err
			}
			apply, err := c.stage(e)
			if err != nil {
				return fmt.Errorf("%w: %s block %d: %v", contracts.ErrChainCorrupted, kind, e.BlockNumber, err)
			}
			c.index(e, apply)
			return nil
		})
		if err != nil {
			return fmt.Errorf("ledger: replay %s: %w", kind, err)
		}
	}
	return nil
}

// Append hashes payload onto the tail of the kind sequence and persists it.
// The payload must decode as the record type of kind and be consistent with the ledger.
func (c *Chain) Append(ctx context.Context, kind contracts.Kind, id string, payload any) (contracts.Entry, error) {
	if !kind.Valid() {
		return contracts.Entry{}, contracts.Invalid("kind", "unknown sequence %q", kind)
	}
	if id == "" {
		return contracts.Entry{}, contracts.Invalid("id", "must not be empty")
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return contracts.Entry{}, err
	}

	c.mu.Lock()
	e, err := c.commitLocked(ctx, kind, id, raw, c.clock().UTC())
	c.mu.Unlock()
	if err != nil {
		return contracts.Entry{}, err
	}
	c.publish(e)
	return e, nil
}

// commitLocked builds, validates, persists and indexes one entry. Callers hold c.mu.
// Nothing is written when validation fails and the index is untouched when the append fails.
func (c *Chain) commitLocked(ctx context.Context, kind contracts.Kind, id string, payload json.RawMessage, ts time.Time) (contracts.Entry, error) {
	h := c.heads[kind]
	e := contracts.Entry{
		Kind:        kind,
		ID:          id,
		BlockNumber: h.block + 1,
		PrevHash:    h.hash,
		Timestamp:   ts,
		Payload:     payload,
	}
	hash, err := ComputeHash(e)
	if err != nil {
		return contracts.Entry{}, err
	}
	e.Hash = hash

	apply, err := c.stage(e)
	if err != nil {
		return contracts.Entry{}, err
	}
	if err := c.log.Append(ctx, e); err != nil {
		return contracts.Entry{}, fmt.Errorf("ledger: append %s: %w", kind, err)
	}
	c.index(e, apply)
	return e, nil
}

func (c *Chain) index(e contracts.Entry, apply func()) {
	c.byID[e.Kind][e.ID] = len(c.entries[e.Kind])
	c.entries[e.Kind] = append(c.entries[e.Kind], e)
	c.heads[e.Kind] = head{block: e.BlockNumber, hash: e.Hash}
	apply()
}

// stage decodes e and checks it against the current projection. The returned
// function applies it; it must only be called once e is durable.
func (c *Chain) stage(e contracts.Entry) (func(), error) {
	if _, dup := c.byID[e.Kind][e.ID]; dup {
		return nil, contracts.Invalid("id", "%s %q already exists", e.Kind, e.ID)
	}
	switch e.Kind {
	case contracts.KindReport:
		return c.stageReport(e)
	case contracts.KindCredit:
		return c.stageCredit(e)
	case contracts.KindTransaction:
		return c.stageTransaction(e)
	}
	return nil, contracts.Invalid("kind", "unknown sequence %q", e.Kind)
}

func (c *Chain) stageReport(e contracts.Entry) (func(), error) {
	var r contracts.Report
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return nil, contracts.Invalid("payload", "not a report: %v", err)
	}
	if r.ReportID != e.ID {
		return nil, contracts.Invalid("report_id", "payload id %q does not match entry id %q", r.ReportID, e.ID)
	}
	return func() {
		r.BlockNumber, r.PrevHash, r.Hash = e.BlockNumber, e.PrevHash, e.Hash
		c.reports[r.ReportID] = &r
	}, nil
}

func (c *Chain) stageCredit(e contracts.Entry) (func(), error) {
	var rec contracts.CreditRecord
	if err := json.Unmarshal(e.Payload, &rec); err != nil {
		return nil, contracts.Invalid("payload", "not a credit record: %v", err)
	}
	if rec.CreditID != e.ID {
		return nil, contracts.Invalid("credit_id", "payload id %q does not match entry id %q", rec.CreditID, e.ID)
	}
	if _, ok := c.reports[rec.ReportID]; !ok {
		return nil, &contracts.NotFoundError{Kind: contracts.KindReport, ID: rec.ReportID}
	}
	if rec.NGOID == "" {
		return nil, contracts.Invalid("ngo_id", "must not be empty")
	}
	if rec.TotalCredits <= 0 || rec.AvailableCredits < 0 || rec.BufferCredits < 0 {
		return nil, contracts.Invalid("total_credits", "credit amounts must be positive")
	}
	return func() {
		rec.BlockNumber, rec.PrevHash, rec.Hash = e.BlockNumber, e.PrevHash, e.Hash
		c.credits[rec.CreditID] = &rec
		c.holdings[rec.NGOID] = append(c.holdings[rec.NGOID], rec.CreditID)
	}, nil
}

func (c *Chain) stageTransaction(e contracts.Entry) (func(), error) {
	var tx contracts.Transaction
	if err := json.Unmarshal(e.Payload, &tx); err != nil {
		return nil, contracts.Invalid("payload", "not a transaction: %v", err)
	}
	if tx.TransactionID != e.ID {
		return nil, contracts.Invalid("transaction_id", "payload id %q does not match entry id %q", tx.TransactionID, e.ID)
	}
	var sum float64
	for _, d := range tx.Debits {
		rec, ok := c.credits[d.CreditID]
		if !ok {
			return nil, &contracts.NotFoundError{Kind: contracts.KindCredit, ID: d.CreditID}
		}
		if rec.NGOID != tx.FromID {
			return nil, contracts.Invalid("debits", "credit %q is not held by %q", d.CreditID, tx.FromID)
		}
		if d.Amount <= 0 || d.Amount > rec.AvailableCredits+balanceEpsilon {
			return nil, &contracts.InsufficientBalanceError{HolderID: tx.FromID, Available: rec.AvailableCredits, Requested: d.Amount}
		}
		sum += d.Amount
	}
	if len(tx.Debits) == 0 || sum < tx.CreditsAmount-balanceEpsilon || sum > tx.CreditsAmount+balanceEpsilon {
		return nil, contracts.Invalid("debits", "debits total %v does not cover amount %v", sum, tx.CreditsAmount)
	}
	return func() {
		for _, d := range tx.Debits {
			rec := c.credits[d.CreditID]
			rec.AvailableCredits -= d.Amount
			rec.DebitedCredits += d.Amount
			if rec.AvailableCredits < balanceEpsilon {
				rec.DebitedCredits += rec.AvailableCredits
				rec.AvailableCredits = 0
			}
		}
		tx.BlockNumber, tx.PrevHash, tx.Hash = e.BlockNumber, e.PrevHash, e.Hash
		c.txs[tx.TransactionID] = &tx
	}, nil
}

// Subscribe registers fn to receive every committed entry. The returned function unsubscribes.
// fn runs on the committing goroutine after the write lock is released and must not block.
func (c *Chain) Subscribe(fn func(contracts.Entry)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Chain) publish(e contracts.Entry) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for _, fn := range c.subscribers {
		fn(e)
	}
}

// Backend names the durable log in use.
func (c *Chain) Backend() string { return c.log.Backend() }

// Close closes the underlying log.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Close()
}
