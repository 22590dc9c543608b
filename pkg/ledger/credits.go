package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/01phanto/EcoLedger/pkg/carbon"
	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// SubmitReport appends a scored report to the reports sequence and returns it with chain fields set.
func (c *Chain) SubmitReport(ctx context.Context, r contracts.Report) (*contracts.Report, error) {
	if r.ReportID == "" {
		return nil, contracts.Invalid("report_id", "must not be empty")
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = c.clock()
	}
	r.Timestamp = ts.UTC()
	r.BlockNumber, r.PrevHash, r.Hash = 0, "", ""

	raw, err := encodePayload(r)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, err := c.commitLocked(ctx, contracts.KindReport, r.ReportID, raw, r.Timestamp)
	var stored contracts.Report
	if err == nil {
		stored = *c.reports[r.ReportID]
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.publish(e)
	c.logger.Info("report recorded", "report_id", r.ReportID, "block", e.BlockNumber, "final_score", r.FinalScore)
	return &stored, nil
}

// IssueRequest asks for credits against a stored report.
type IssueRequest struct {
	ReportID       string
	NGOID          string
	Amount         float64
	PricePerCredit *float64 // nil uses the chain default
}

func (req IssueRequest) validate() error {
	if req.ReportID == "" {
		return contracts.Invalid("report_id", "must not be empty")
	}
	if contracts.NormalizeHolderID(req.NGOID) == "" {
		return contracts.Invalid("ngo_id", "must not be empty")
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return contracts.Invalid("credits_amount", "must be a positive number, got %v", req.Amount)
	}
	if p := req.PricePerCredit; p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0) {
		return contracts.Invalid("price_per_credit", "must be a non-negative number, got %v", *p)
	}
	return nil
}

// IssueCredits records a credit issuance against an existing report.
//
// A missing report fails with a *contracts.NotFoundError before anything is written
// or relayed. When a relay is configured it is called once, outside the write lock;
// its failure marks the record pending_on_chain and never fails the issuance.
func (c *Chain) IssueCredits(ctx context.Context, req IssueRequest) (*contracts.CreditRecord, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	report, ok := c.reports[req.ReportID]
	var score float64
	if ok {
		score = report.FinalScore
	}
	c.mu.RUnlock()
	if !ok {
		return nil, &contracts.NotFoundError{Kind: contracts.KindReport, ID: req.ReportID}
	}

	price := c.defaultPrice
	if req.PricePerCredit != nil {
		price = *req.PricePerCredit
	}
	now := c.clock().UTC()
	split := carbon.Split(req.Amount)
	rec := contracts.CreditRecord{
		CreditID:             c.newID(),
		ReportID:             req.ReportID,
		NGOID:                contracts.NormalizeHolderID(req.NGOID),
		TotalCredits:         split.Total,
		BufferCredits:        split.Buffer,
		AvailableCredits:     split.Available,
		BufferRate:           split.BufferRate,
		PricePerCredit:       price,
		VerificationScore:    score,
		Status:               contracts.CreditIssuedLocal,
		VintageYear:          now.Year(),
		ProjectType:          contracts.ProjectTypeMangrove,
		VerificationStandard: contracts.VerificationStandard,
		IssuedAt:             now,
	}
	c.submitRelay(ctx, &rec)

	raw, err := encodePayload(rec)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	e, err := c.commitLocked(ctx, contracts.KindCredit, rec.CreditID, raw, now)
	var stored contracts.CreditRecord
	if err == nil {
		stored = *c.credits[rec.CreditID]
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.publish(e)
	c.logger.Info("credits issued",
		"credit_id", rec.CreditID, "ngo_id", rec.NGOID, "credits", rec.TotalCredits,
		"status", rec.Status, "block", e.BlockNumber)
	return &stored, nil
}

func (c *Chain) submitRelay(ctx context.Context, rec *contracts.CreditRecord) {
	if c.relay == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, c.relayTimeout)
	defer cancel()

	ref, err := c.relay.Submit(rctx, *rec)
	if err != nil {
		var relayErr *contracts.RelayError
		if !errors.As(err, &relayErr) {
			err = &contracts.RelayError{Relay: c.relay.Name(), Err: err}
		}
		rec.Status = contracts.CreditPendingOnChain
		rec.OnchainError = err.Error()
		c.logger.Warn("relay submission failed, credit pending external confirmation",
			"credit_id", rec.CreditID, "relay", c.relay.Name(), "error", err)
		return
	}
	rec.Status = contracts.CreditIssuedOnChain
	rec.Onchain = true
	rec.RelayReference = ref
}

// TransferRequest moves credits between holders.
type TransferRequest struct {
	FromID         string
	ToID           string
	Amount         float64
	PricePerCredit float64
}

func (req *TransferRequest) normalize() error {
	req.FromID = contracts.NormalizeHolderID(req.FromID)
	req.ToID = contracts.NormalizeHolderID(req.ToID)
	switch {
	case req.FromID == "":
		return contracts.Invalid("from_id", "must not be empty")
	case req.ToID == "":
		return contracts.Invalid("to_id", "must not be empty")
	case req.FromID == req.ToID:
		return contracts.Invalid("to_id", "must differ from from_id")
	case math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0:
		return contracts.Invalid("credits_amount", "must be a positive number, got %v", req.Amount)
	case math.IsNaN(req.PricePerCredit) || math.IsInf(req.PricePerCredit, 0) || req.PricePerCredit < 0:
		return contracts.Invalid("price", "must be a non-negative number, got %v", req.PricePerCredit)
	}
	return nil
}

// Transfer moves credits from one holder to another, drawing the sender's
// records down oldest first. The balance check and the append happen in one
// critical section; an insufficient balance writes nothing.
func (c *Chain) Transfer(ctx context.Context, req TransferRequest) (*contracts.Transaction, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	now := c.clock().UTC()

	c.mu.Lock()
	tx, e, err := c.transferLocked(ctx, req, now)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.publish(e)
	c.logger.Info("credits transferred",
		"transaction_id", tx.TransactionID, "from", tx.FromID, "to", tx.ToID,
		"credits", tx.CreditsAmount, "block", e.BlockNumber)
	return tx, nil
}

func (c *Chain) transferLocked(ctx context.Context, req TransferRequest, now time.Time) (*contracts.Transaction, contracts.Entry, error) {
	available := c.balanceLocked(req.FromID)
	if req.Amount > available+balanceEpsilon {
		return nil, contracts.Entry{}, &contracts.InsufficientBalanceError{
			HolderID: req.FromID, Available: available, Requested: req.Amount,
		}
	}

	var debits []contracts.Debit
	remaining := req.Amount
	for _, id := range c.holdings[req.FromID] {
		if remaining <= balanceEpsilon {
			break
		}
		rec := c.credits[id]
		if rec.AvailableCredits <= balanceEpsilon {
			continue
		}
		take := math.Min(remaining, rec.AvailableCredits)
		debits = append(debits, contracts.Debit{CreditID: id, Amount: take})
		remaining -= take
	}
	if remaining > balanceEpsilon {
		// Lost precision between the balance sum and the walk.
		return nil, contracts.Entry{}, &contracts.InsufficientBalanceError{
			HolderID: req.FromID, Available: available, Requested: req.Amount,
		}
	}

	tx := contracts.Transaction{
		TransactionID:   c.newID(),
		FromID:          req.FromID,
		ToID:            req.ToID,
		CreditsAmount:   req.Amount,
		PricePerCredit:  req.PricePerCredit,
		TotalAmount:     req.Amount * req.PricePerCredit,
		Debits:          debits,
		Status:          contracts.TransactionCompleted,
		TransactionType: contracts.TransactionTypeTransfer,
		Timestamp:       now,
	}
	raw, err := encodePayload(tx)
	if err != nil {
		return nil, contracts.Entry{}, err
	}
	e, err := c.commitLocked(ctx, contracts.KindTransaction, tx.TransactionID, raw, now)
	if err != nil {
		return nil, contracts.Entry{}, err
	}
	stored := *c.txs[tx.TransactionID]
	return &stored, e, nil
}

func (c *Chain) balanceLocked(holder string) float64 {
	var sum float64
	for _, id := range c.holdings[holder] {
		if a := c.credits[id].AvailableCredits; a > 0 {
			sum += a
		}
	}
	return sum
}
