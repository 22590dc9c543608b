// Package service is the application layer of an EcoLedger node. It composes
// the scoring engine, the carbon calculator, the ledger chain and the
// marketplace views behind one explicit object.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/01phanto/EcoLedger/pkg/carbon"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
	"github.com/01phanto/EcoLedger/pkg/marketplace"
	"github.com/01phanto/EcoLedger/pkg/observability"
	"github.com/01phanto/EcoLedger/pkg/scoring"
)

// Service serves every node operation. It holds no global state; the HTTP
// layer and the CLI each build their own.
type Service struct {
	chain  *ledger.Chain
	scorer *scoring.Aggregator
	market *marketplace.View
	obs    *observability.Provider
	logger *slog.Logger
}

type Option func(*Service)

func WithAggregator(a *scoring.Aggregator) Option {
	return func(s *Service) { s.scorer = a }
}

func WithObservability(p *observability.Provider) Option {
	return func(s *Service) { s.obs = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds a service over an open chain.
func New(chain *ledger.Chain, opts ...Option) *Service {
	s := &Service{
		chain:  chain,
		market: marketplace.NewView(chain),
		logger: slog.Default().With("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewAggregator()
	}
	if s.obs == nil {
		// disabled provider: no exporters, nil instruments
		s.obs, _ = observability.New(context.Background(), &observability.Config{})
	}
	return s
}

// Chain exposes the underlying ledger for subscribers and exporters.
func (s *Service) Chain() *ledger.Chain { return s.chain }

func (s *Service) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, done := s.obs.TrackOperation(ctx, op, attrs...)
	return ctx, func(err error) {
		if err != nil {
			s.logger.DebugContext(ctx, "operation failed", "operation", op, "error", err)
		}
		done(err)
	}
}

// SubmitResult acknowledges a stored verification report.
type SubmitResult struct {
	ReportID    string            `json:"report_id"`
	Hash        string            `json:"hash"`
	BlockNumber uint64            `json:"block_number"`
	Timestamp   time.Time         `json:"timestamp"`
	Report      *contracts.Report `json:"report"`
}

// SubmitReport scores the input and appends the report to the ledger.
func (s *Service) SubmitReport(ctx context.Context, in contracts.VerificationInput) (res *SubmitResult, err error) {
	ctx, done := s.track(ctx, "ledger.submit_report")
	defer func() { done(err) }()

	report, err := s.scorer.Aggregate(in)
	if err != nil {
		return nil, err
	}
	stored, err := s.chain.SubmitReport(ctx, *report)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		ReportID:    stored.ReportID,
		Hash:        stored.Hash,
		BlockNumber: stored.BlockNumber,
		Timestamp:   stored.Timestamp,
		Report:      stored,
	}, nil
}

// GetReport returns a stored report.
func (s *Service) GetReport(ctx context.Context, reportID string) (r *contracts.Report, err error) {
	_, done := s.track(ctx, "ledger.get_report")
	defer func() { done(err) }()
	return s.chain.Report(reportID)
}

// IssueRequest asks for a fixed credit amount against a report.
type IssueRequest struct {
	NGOID          string   `json:"ngo_id"`
	CreditsAmount  float64  `json:"credits_amount"`
	ReportID       string   `json:"report_id"`
	PricePerCredit *float64 `json:"price_per_credit,omitempty"`
}

// IssueResult acknowledges an issuance.
type IssueResult struct {
	CreditID         string                 `json:"credit_id"`
	CreditsIssued    float64                `json:"credits_issued"`
	AvailableCredits float64                `json:"available_credits"`
	BufferCredits    float64                `json:"buffer_credits"`
	PricePerCredit   float64                `json:"price_per_credit"`
	Status           contracts.CreditStatus `json:"status"`
	Onchain          bool                   `json:"onchain"`
	OnchainError     string                 `json:"onchain_error,omitempty"`
	Hash             string                 `json:"hash"`
	BlockNumber      uint64                 `json:"block_number"`
	Conversion       *carbon.Conversion     `json:"conversion,omitempty"`
}

func issueResult(rec *contracts.CreditRecord) *IssueResult {
	return &IssueResult{
		CreditID:         rec.CreditID,
		CreditsIssued:    rec.TotalCredits,
		AvailableCredits: rec.AvailableCredits,
		BufferCredits:    rec.BufferCredits,
		PricePerCredit:   rec.PricePerCredit,
		Status:           rec.Status,
		Onchain:          rec.Onchain,
		OnchainError:     rec.OnchainError,
		Hash:             rec.Hash,
		BlockNumber:      rec.BlockNumber,
	}
}

// IssueCredits issues a caller-chosen amount of credits against a stored report.
func (s *Service) IssueCredits(ctx context.Context, req IssueRequest) (res *IssueResult, err error) {
	ctx, done := s.track(ctx, "ledger.issue_credits")
	defer func() { done(err) }()

	rec, err := s.chain.IssueCredits(ctx, ledger.IssueRequest{
		ReportID:       req.ReportID,
		NGOID:          req.NGOID,
		Amount:         req.CreditsAmount,
		PricePerCredit: req.PricePerCredit,
	})
	if err != nil {
		return nil, err
	}
	return issueResult(rec), nil
}

// VerifiedIssueRequest derives the credit amount from the report's evidence.
type VerifiedIssueRequest struct {
	NGOID          string                  `json:"ngo_id"`
	ReportID       string                  `json:"report_id"`
	Absorption     carbon.AbsorptionConfig `json:"absorption"`
	PricePerCredit *float64                `json:"price_per_credit,omitempty"`
}

// IssueVerifiedCredits computes the report project's annual absorption from its
// detected tree count, converts it to credits weighted by the report's final
// score and issues the result.
func (s *Service) IssueVerifiedCredits(ctx context.Context, req VerifiedIssueRequest) (res *IssueResult, err error) {
	ctx, done := s.track(ctx, "ledger.issue_verified_credits")
	defer func() { done(err) }()

	report, err := s.chain.Report(req.ReportID)
	if err != nil {
		return nil, err
	}
	co2, err := carbon.AnnualAbsorption(report.Input.TreeCount, req.Absorption)
	if err != nil {
		return nil, err
	}
	conv, err := carbon.Credits(co2, report.FinalScore)
	if err != nil {
		return nil, err
	}
	if conv.Total <= 0 {
		return nil, contracts.Invalid("report_id", "report %s yields no verified credits", req.ReportID)
	}

	rec, err := s.chain.IssueCredits(ctx, ledger.IssueRequest{
		ReportID:       req.ReportID,
		NGOID:          req.NGOID,
		Amount:         conv.Total,
		PricePerCredit: req.PricePerCredit,
	})
	if err != nil {
		return nil, err
	}
	out := issueResult(rec)
	out.Conversion = conv
	return out, nil
}

// TransferRequest moves credits between holders.
type TransferRequest struct {
	FromID         string  `json:"from_id"`
	ToID           string  `json:"to_id"`
	CreditsAmount  float64 `json:"credits_amount"`
	PricePerCredit float64 `json:"price_per_credit"`
}

// TransferResult acknowledges a transfer.
type TransferResult struct {
	TransactionID string            `json:"transaction_id"`
	CreditsAmount float64           `json:"credits_amount"`
	TotalAmount   float64           `json:"total_amount"`
	Hash          string            `json:"hash"`
	BlockNumber   uint64            `json:"block_number"`
	Debits        []contracts.Debit `json:"debits"`
}

// TransferCredits moves credits from one holder to another.
func (s *Service) TransferCredits(ctx context.Context, req TransferRequest) (res *TransferResult, err error) {
	ctx, done := s.track(ctx, "ledger.transfer_credits")
	defer func() { done(err) }()

	tx, err := s.chain.Transfer(ctx, ledger.TransferRequest{
		FromID:         req.FromID,
		ToID:           req.ToID,
		Amount:         req.CreditsAmount,
		PricePerCredit: req.PricePerCredit,
	})
	if err != nil {
		return nil, err
	}
	return &TransferResult{
		TransactionID: tx.TransactionID,
		CreditsAmount: tx.CreditsAmount,
		TotalAmount:   tx.TotalAmount,
		Hash:          tx.Hash,
		BlockNumber:   tx.BlockNumber,
		Debits:        tx.Debits,
	}, nil
}

// ListMarketplace returns holders with tradable credits.
func (s *Service) ListMarketplace(ctx context.Context) []marketplace.HolderSummary {
	_, done := s.track(ctx, "ledger.list_marketplace")
	defer done(nil)
	return s.market.ListAvailable()
}

// Holdings returns a holder's portfolio.
func (s *Service) Holdings(ctx context.Context, holderID string) (p marketplace.Portfolio, err error) {
	_, done := s.track(ctx, "ledger.holdings")
	defer func() { done(err) }()

	holderID = contracts.NormalizeHolderID(holderID)
	if holderID == "" {
		return marketplace.Portfolio{}, contracts.Invalid("holder_id", "must not be empty")
	}
	return s.market.Holdings(holderID), nil
}

// Stats returns ledger and market statistics.
func (s *Service) Stats(ctx context.Context) marketplace.MarketStats {
	_, done := s.track(ctx, "ledger.stats")
	defer done(nil)
	return s.market.Stats()
}

// Verify re-checks every sequence in the durable log.
func (s *Service) Verify(ctx context.Context) (err error) {
	ctx, done := s.track(ctx, "ledger.verify")
	defer func() { done(err) }()
	return s.chain.Verify(ctx)
}

// PendingRelay lists issuances the relay did not confirm.
func (s *Service) PendingRelay(ctx context.Context) []contracts.CreditRecord {
	_, done := s.track(ctx, "ledger.pending_relay")
	defer done(nil)
	return s.chain.PendingRelay()
}

// EstimateRequest asks for an absorption estimate without touching the ledger.
type EstimateRequest struct {
	TreeCount         int64                   `json:"tree_count"`
	VerificationScore *float64                `json:"verification_score,omitempty"`
	Absorption        carbon.AbsorptionConfig `json:"absorption"`
}

// EstimateResult is an absorption estimate, plus the credit conversion when a
// verification score was supplied.
type EstimateResult struct {
	*carbon.Estimate
	Conversion *carbon.Conversion `json:"carbon_credits,omitempty"`
}

// EstimateCO2 is a pure calculation.
func (s *Service) EstimateCO2(ctx context.Context, req EstimateRequest) (res *EstimateResult, err error) {
	_, done := s.track(ctx, "carbon.estimate")
	defer func() { done(err) }()

	est, err := carbon.EstimateAbsorption(req.TreeCount, req.Absorption)
	if err != nil {
		return nil, err
	}
	res = &EstimateResult{Estimate: est}
	if req.VerificationScore != nil {
		if res.Conversion, err = carbon.Credits(est.AnnualCO2Kg, *req.VerificationScore); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ScoreOnly scores an input without recording it.
func (s *Service) ScoreOnly(ctx context.Context, in contracts.VerificationInput) (r *contracts.Report, err error) {
	_, done := s.track(ctx, "scoring.score")
	defer func() { done(err) }()
	return s.scorer.Aggregate(in)
}

// ScoreBatch scores many inputs without recording them.
func (s *Service) ScoreBatch(ctx context.Context, inputs []contracts.VerificationInput) ([]scoring.BatchResult, scoring.BatchSummary) {
	_, done := s.track(ctx, "scoring.batch", attribute.Int("batch.size", len(inputs)))
	defer done(nil)
	return s.scorer.AggregateBatch(inputs)
}

// PlantationPotential projects scenarios for a planned plantation.
func (s *Service) PlantationPotential(ctx context.Context, areaHectares, density float64) (p *carbon.Potential, err error) {
	_, done := s.track(ctx, "carbon.plantation_potential")
	defer func() { done(err) }()
	return carbon.PlantationPotential(areaHectares, density)
}
