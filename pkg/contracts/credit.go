package contracts

import "time"

// CreditStatus tracks whether an issuance reached the external relay.
type CreditStatus string

const (
	// CreditIssuedLocal means no relay is configured; the local ledger is authoritative.
	CreditIssuedLocal CreditStatus = "issued_local"
	// CreditIssuedOnChain means the relay accepted the issuance.
	CreditIssuedOnChain CreditStatus = "issued_on_chain"
	// CreditPendingOnChain means the relay failed; the record awaits reconciliation.
	CreditPendingOnChain CreditStatus = "pending_on_chain"
)

const (
	ProjectTypeMangrove  = "mangrove_plantation"
	VerificationStandard = "EcoLedger_AI_v1.0"
)

// CreditRecord is a credit issuance against a stored report.
//
// The hashed issuance snapshot satisfies Available + Buffer == Total. After transfers the
// live projection satisfies Available + Debited + Buffer == Total and Available never grows.
type CreditRecord struct {
	CreditID             string       `json:"credit_id"`
	ReportID             string       `json:"report_id"`
	NGOID                string       `json:"ngo_id"`
	TotalCredits         float64      `json:"total_credits"`
	BufferCredits        float64      `json:"buffer_credits"`
	AvailableCredits     float64      `json:"available_credits"`
	BufferRate           float64      `json:"buffer_rate"`
	PricePerCredit       float64      `json:"price_per_credit"`
	VerificationScore    float64      `json:"verification_score"`
	Status               CreditStatus `json:"status"`
	Onchain              bool         `json:"onchain"`
	OnchainError         string       `json:"onchain_error,omitempty"`
	RelayReference       string       `json:"relay_reference,omitempty"`
	VintageYear          int          `json:"vintage_year"`
	ProjectType          string       `json:"project_type"`
	VerificationStandard string       `json:"verification_standard"`
	IssuedAt             time.Time    `json:"issued_at"`

	// DebitedCredits is projection state, never hashed.
	DebitedCredits float64 `json:"debited_credits,omitempty"`

	BlockNumber uint64 `json:"block_number,omitempty"`
	PrevHash    string `json:"prev_hash,omitempty"`
	Hash        string `json:"hash,omitempty"`
}

// Debit records how much of one credit record a transfer consumed.
type Debit struct {
	CreditID string  `json:"credit_id"`
	Amount   float64 `json:"amount"`
}

const (
	TransactionCompleted    = "completed"
	TransactionTypeTransfer = "credit_transfer"
)

// Transaction is an immutable credit transfer.
type Transaction struct {
	TransactionID   string    `json:"transaction_id"`
	FromID          string    `json:"from_id"`
	ToID            string    `json:"to_id"`
	CreditsAmount   float64   `json:"credits_amount"`
	PricePerCredit  float64   `json:"price_per_credit"`
	TotalAmount     float64   `json:"total_amount"`
	Debits          []Debit   `json:"debits"`
	Status          string    `json:"status"`
	TransactionType string    `json:"transaction_type"`
	Timestamp       time.Time `json:"timestamp"`

	BlockNumber uint64 `json:"block_number,omitempty"`
	PrevHash    string `json:"prev_hash,omitempty"`
	Hash        string `json:"hash,omitempty"`
}
