package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/carbon"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
	"github.com/01phanto/EcoLedger/pkg/store"
)

type failingRelay struct{}

func (failingRelay) Name() string { return "failing" }

func (failingRelay) Submit(context.Context, contracts.CreditRecord) (string, error) {
	return "", errors.New("gateway unreachable")
}

var mangroveInput = contracts.VerificationInput{
	ProjectID:    "sundarbans-01",
	TreeCount:    150,
	ClaimedTrees: 160,
	NDVIScore:    0.85,
	IoTScore:     0.8,
	AuditCheck:   0.8,
}

func newService(t *testing.T, opts ...ledger.Option) *Service {
	t.Helper()
	chain, err := ledger.Open(context.Background(), store.NewMemoryLog(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = chain.Close() })
	return New(chain)
}

func TestSubmitAndGetReport(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	res, err := svc.SubmitReport(ctx, mangroveInput)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.BlockNumber)
	assert.Len(t, res.Hash, 64)
	assert.InDelta(t, 0.87, res.Report.FinalScore, 1e-9)

	got, err := svc.GetReport(ctx, res.ReportID)
	require.NoError(t, err)
	assert.Equal(t, res.Hash, got.Hash)
	assert.Equal(t, contracts.GenesisHash, got.PrevHash)

	_, err = svc.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestSubmitReport_InvalidInputWritesNothing(t *testing.T) {
	svc := newService(t)
	bad := mangroveInput
	bad.NDVIScore = 1.5

	_, err := svc.SubmitReport(context.Background(), bad)
	var verr *contracts.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ndvi_score", verr.Field)
	assert.Equal(t, uint64(0), svc.Stats(context.Background()).Reports)
}

func TestIssueAndTransferFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sub, err := svc.SubmitReport(ctx, mangroveInput)
	require.NoError(t, err)

	iss, err := svc.IssueCredits(ctx, IssueRequest{NGOID: "ngo-green", CreditsAmount: 100, ReportID: sub.ReportID})
	require.NoError(t, err)
	assert.Equal(t, 100.0, iss.CreditsIssued)
	assert.InDelta(t, 85.0, iss.AvailableCredits, 1e-9)
	assert.Equal(t, contracts.CreditIssuedLocal, iss.Status)
	assert.False(t, iss.Onchain)
	assert.Equal(t, ledger.DefaultPricePerCredit, iss.PricePerCredit)

	tr, err := svc.TransferCredits(ctx, TransferRequest{FromID: "ngo-green", ToID: "acme-corp", CreditsAmount: 30, PricePerCredit: 20})
	require.NoError(t, err)
	assert.Equal(t, 600.0, tr.TotalAmount)
	require.Len(t, tr.Debits, 1)
	assert.Equal(t, iss.CreditID, tr.Debits[0].CreditID)

	market := svc.ListMarketplace(ctx)
	require.Len(t, market, 1)
	assert.Equal(t, "ngo-green", market[0].HolderID)
	assert.InDelta(t, 55.0, market[0].TotalAvailableCredits, 1e-9)

	_, err = svc.TransferCredits(ctx, TransferRequest{FromID: "ngo-green", ToID: "acme-corp", CreditsAmount: 60, PricePerCredit: 20})
	var ierr *contracts.InsufficientBalanceError
	require.ErrorAs(t, err, &ierr)
	assert.InDelta(t, 55.0, ierr.Available, 1e-9)

	buyer, err := svc.Holdings(ctx, "acme-corp")
	require.NoError(t, err)
	assert.Len(t, buyer.Purchases, 1)

	require.NoError(t, svc.Verify(ctx))
	stats := svc.Stats(ctx)
	assert.Equal(t, uint64(1), stats.Transactions)
	assert.Equal(t, 1, stats.Sellers)
}

func TestIssueCredits_UnknownReport(t *testing.T) {
	svc := newService(t)
	_, err := svc.IssueCredits(context.Background(), IssueRequest{NGOID: "ngo", CreditsAmount: 10, ReportID: "nope"})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestIssueVerifiedCredits(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sub, err := svc.SubmitReport(ctx, mangroveInput)
	require.NoError(t, err)

	res, err := svc.IssueVerifiedCredits(ctx, VerifiedIssueRequest{NGOID: "ngo-green", ReportID: sub.ReportID})
	require.NoError(t, err)
	require.NotNil(t, res.Conversion)
	// 150 trees * 12.3 kg = 1.845 t, weighted by 0.87
	assert.InDelta(t, 1.845*0.87, res.CreditsIssued, 1e-9)
	assert.InDelta(t, res.CreditsIssued*0.85, res.AvailableCredits, 1e-9)

	_, err = svc.IssueVerifiedCredits(ctx, VerifiedIssueRequest{
		NGOID:      "ngo-green",
		ReportID:   sub.ReportID,
		Absorption: carbon.AbsorptionConfig{Species: "oak"},
	})
	assert.ErrorIs(t, err, contracts.ErrValidation)
}

func TestIssueVerifiedCredits_ZeroTrees(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	in := mangroveInput
	in.TreeCount = 0
	sub, err := svc.SubmitReport(ctx, in)
	require.NoError(t, err)

	_, err = svc.IssueVerifiedCredits(ctx, VerifiedIssueRequest{NGOID: "ngo", ReportID: sub.ReportID})
	assert.ErrorIs(t, err, contracts.ErrValidation)
}

func TestRelayFailureMarksPending(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, ledger.WithRelay(failingRelay{}, 0))

	sub, err := svc.SubmitReport(ctx, mangroveInput)
	require.NoError(t, err)
	iss, err := svc.IssueCredits(ctx, IssueRequest{NGOID: "ngo", CreditsAmount: 5, ReportID: sub.ReportID})
	require.NoError(t, err)
	assert.Equal(t, contracts.CreditPendingOnChain, iss.Status)
	assert.Contains(t, iss.OnchainError, "gateway unreachable")

	pending := svc.PendingRelay(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, iss.CreditID, pending[0].CreditID)
}

func TestEstimateCO2(t *testing.T) {
	svc := newService(t)
	score := 0.8
	res, err := svc.EstimateCO2(context.Background(), EstimateRequest{TreeCount: 1000, VerificationScore: &score})
	require.NoError(t, err)
	assert.InDelta(t, 12300.0, res.AnnualCO2Kg, 1e-9)
	require.NotNil(t, res.Conversion)
	assert.InDelta(t, 12.3*0.8, res.Conversion.Total, 1e-9)

	_, err = svc.EstimateCO2(context.Background(), EstimateRequest{TreeCount: -1})
	assert.ErrorIs(t, err, contracts.ErrValidation)
}

func TestScoreOnlyAndBatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	r, err := svc.ScoreOnly(ctx, mangroveInput)
	require.NoError(t, err)
	assert.InDelta(t, 0.87, r.FinalScore, 1e-9)
	assert.Equal(t, uint64(0), svc.Stats(ctx).Reports)

	bad := mangroveInput
	bad.ClaimedTrees = 0
	results, summary := svc.ScoreBatch(ctx, []contracts.VerificationInput{mangroveInput, bad})
	require.Len(t, results, 2)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
}

func TestHoldings_EmptyHolder(t *testing.T) {
	svc := newService(t)
	_, err := svc.Holdings(context.Background(), "   ")
	assert.ErrorIs(t, err, contracts.ErrValidation)
}
