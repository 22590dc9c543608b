package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"validation", contracts.Invalid("ngo_id", "must not be empty"), http.StatusBadRequest, "ngo_id"},
		{"not found", fmt.Errorf("lookup: %w", &contracts.NotFoundError{Kind: contracts.KindReport, ID: "r1"}), http.StatusNotFound, "r1"},
		{"insufficient", &contracts.InsufficientBalanceError{HolderID: "a", Available: 1, Requested: 2}, http.StatusConflict, "a"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/ledger/issue", nil)
			WriteServiceError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			var p ProblemDetail
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
			assert.Equal(t, tt.status, p.Status)
			assert.Contains(t, p.Detail, tt.detail)
			assert.NotContains(t, p.Detail, "disk on fire")
			assert.Equal(t, "/ledger/issue", p.Instance)
		})
	}
}

func TestWriteTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	WriteTooManyRequests(w, 3)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
}
