// Package marketplace aggregates ledger state into read-only market views.
package marketplace

import (
	"sort"

	"github.com/01phanto/EcoLedger/pkg/carbon"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
)

// Source is the read side of the ledger the views are computed from.
type Source interface {
	Credits() []contracts.CreditRecord
	CreditsOf(holder string) []contracts.CreditRecord
	TransactionsOf(holder string) []contracts.Transaction
	Stats() ledger.Stats
}

// HolderSummary groups a holder's tradable records.
type HolderSummary struct {
	HolderID              string                   `json:"holder_id"`
	TotalAvailableCredits float64                  `json:"total_available_credits"`
	Records               []contracts.CreditRecord `json:"records"`
}

// View computes marketplace summaries on demand.
type View struct {
	src Source
}

func NewView(src Source) *View {
	return &View{src: src}
}

// ListAvailable groups records with available credits by holder. Holders are sorted
// by id and records keep issuance order.
func (v *View) ListAvailable() []HolderSummary {
	byHolder := make(map[string]*HolderSummary)
	for _, rec := range v.src.Credits() {
		if rec.AvailableCredits <= 0 {
			continue
		}
		s, ok := byHolder[rec.NGOID]
		if !ok {
			s = &HolderSummary{HolderID: rec.NGOID}
			byHolder[rec.NGOID] = s
		}
		s.TotalAvailableCredits += rec.AvailableCredits
		s.Records = append(s.Records, rec)
	}

	out := make([]HolderSummary, 0, len(byHolder))
	for _, s := range byHolder {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HolderID < out[j].HolderID })
	return out
}

// Portfolio is everything one holder issued, bought and sold.
type Portfolio struct {
	HolderID        string                   `json:"holder_id"`
	Issued          []contracts.CreditRecord `json:"issued"`
	TotalIssued     float64                  `json:"total_issued"`
	Available       float64                  `json:"available_credits"`
	Buffer          float64                  `json:"buffer_credits"`
	Bought          float64                  `json:"credits_bought"`
	Sold            float64                  `json:"credits_sold"`
	Spent           float64                  `json:"amount_spent"`
	Earned          float64                  `json:"amount_earned"`
	Purchases       []contracts.Transaction  `json:"purchases"`
	Sales           []contracts.Transaction  `json:"sales"`
	EstimatedValues carbon.MarketValues      `json:"estimated_market_values"`
}

// Holdings builds the portfolio of holder. Unknown holders yield an empty portfolio.
func (v *View) Holdings(holder string) Portfolio {
	holder = contracts.NormalizeHolderID(holder)
	p := Portfolio{
		HolderID:  holder,
		Issued:    v.src.CreditsOf(holder),
		Purchases: []contracts.Transaction{},
		Sales:     []contracts.Transaction{},
	}
	for _, rec := range p.Issued {
		p.TotalIssued += rec.TotalCredits
		p.Available += rec.AvailableCredits
		p.Buffer += rec.BufferCredits
	}
	for _, tx := range v.src.TransactionsOf(holder) {
		if tx.ToID == holder {
			p.Bought += tx.CreditsAmount
			p.Spent += tx.TotalAmount
			p.Purchases = append(p.Purchases, tx)
		}
		if tx.FromID == holder {
			p.Sold += tx.CreditsAmount
			p.Earned += tx.TotalAmount
			p.Sales = append(p.Sales, tx)
		}
	}
	p.EstimatedValues = carbon.ValueAt(p.Available)
	return p
}

// MarketStats extends ledger statistics with market-level figures.
type MarketStats struct {
	ledger.Stats
	Sellers         int                 `json:"sellers"`
	Listings        int                 `json:"listings"`
	EstimatedValues carbon.MarketValues `json:"estimated_market_values"`
}

// Stats summarizes the ledger and the current market.
func (v *View) Stats() MarketStats {
	listings := v.ListAvailable()
	s := MarketStats{Stats: v.src.Stats(), Sellers: len(listings)}
	for _, h := range listings {
		s.Listings += len(h.Records)
	}
	s.EstimatedValues = carbon.ValueAt(s.TotalAvailable)
	return s
}
