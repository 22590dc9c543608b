package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// HTTPRelay posts issuances to a ledger gateway.
type HTTPRelay struct {
	url     string
	client  *http.Client
	breaker *CircuitBreaker
}

// HTTPOption configures an HTTPRelay.
type HTTPOption func(*HTTPRelay)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPRelay) { r.client = c }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *CircuitBreaker) HTTPOption {
	return func(r *HTTPRelay) { r.breaker = cb }
}

func NewHTTPRelay(url string, opts ...HTTPOption) *HTTPRelay {
	r := &HTTPRelay{
		url:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: NewCircuitBreaker("http-relay", 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPRelay) Name() string { return "http" }

type gatewayResponse struct {
	TransactionID string `json:"transaction_id"`
	TxID          string `json:"txId"`
}

// Submit posts the issuance once. The gateway's transaction id, when present, is the reference.
func (r *HTTPRelay) Submit(ctx context.Context, rec contracts.CreditRecord) (string, error) {
	if !r.breaker.Allow() {
		return "", r.fail(ErrCircuitOpen)
	}

	body, err := json.Marshal(NewIssuancePayload(rec))
	if err != nil {
		r.breaker.Failure()
		return "", r.fail(fmt.Errorf("encode payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		r.breaker.Failure()
		return "", r.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.breaker.Failure()
		return "", r.fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.breaker.Failure()
		return "", r.fail(fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}
	r.breaker.Success()

	var gr gatewayResponse
	if err := json.Unmarshal(raw, &gr); err == nil {
		if gr.TransactionID != "" {
			return gr.TransactionID, nil
		}
		if gr.TxID != "" {
			return gr.TxID, nil
		}
	}
	return rec.CreditID, nil
}

func (r *HTTPRelay) fail(err error) error {
	return &contracts.RelayError{Relay: r.Name(), Err: err}
}
