package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/ledger"
	"github.com/01phanto/EcoLedger/pkg/service"
	"github.com/01phanto/EcoLedger/pkg/store"
)

const submitBody = `{"project_id":"sundarbans-01","tree_count":150,"claimed_trees":160,"ndvi_score":0.85,"iot_score":0.8,"audit_check":0.8}`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	chain, err := ledger.Open(context.Background(), store.NewMemoryLog())
	require.NoError(t, err)
	srv, err := NewServer(service.New(chain), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = chain.Close()
	})
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["backend"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLedgerFlow(t *testing.T) {
	ts := newTestServer(t)

	resp, sub := post(t, ts, "/ledger/submit", submitBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reportID := sub["report_id"].(string)
	assert.EqualValues(t, 1, sub["block_number"])

	resp, report := get(t, ts, "/ledger/query/"+reportID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sub["hash"], report["hash"])
	assert.InDelta(t, 0.87, report["final_score"], 1e-9)

	resp, iss := post(t, ts, "/ledger/issue",
		`{"ngo_id":"ngo-green","credits_amount":100,"report_id":"`+reportID+`","price_per_credit":12}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 100, iss["credits_issued"])
	assert.InDelta(t, 85.0, iss["available_credits"], 1e-9)
	assert.Equal(t, false, iss["onchain"])

	resp, tr := post(t, ts, "/ledger/transfer",
		`{"from_id":"ngo-green","to_id":"acme","credits_amount":10,"price_per_credit":20}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 200, tr["total_amount"])
	assert.Len(t, tr["hash"], 64)

	resp, market := get(t, ts, "/ledger/marketplace")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, market["count"])

	resp, holdings := get(t, ts, "/ledger/holdings/acme")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 10, holdings["credits_bought"])

	resp, stats := get(t, ts, "/ledger/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, stats["transactions"])

	resp, verify := get(t, ts, "/ledger/verify")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, verify["valid"])

	resp, pending := get(t, ts, "/ledger/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, pending["count"])
}

func TestIssueVerified(t *testing.T) {
	ts := newTestServer(t)
	_, sub := post(t, ts, "/ledger/submit", submitBody)

	resp, iss := post(t, ts, "/ledger/issue/verified",
		`{"ngo_id":"ngo-green","report_id":"`+sub["report_id"].(string)+`","absorption":{"tree_age":"mature"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotNil(t, iss["conversion"])

	resp, prob := post(t, ts, "/ledger/issue/verified",
		`{"ngo_id":"ngo-green","report_id":"`+sub["report_id"].(string)+`","absorption":{"soil":"clay"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.EqualValues(t, 400, prob["status"])
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		field  string
	}{
		{"schema range", "/ledger/submit", `{"tree_count":1,"claimed_trees":1,"ndvi_score":1.5,"iot_score":0.5,"audit_check":0.5}`, 400, "ndvi_score"},
		{"missing field", "/finalscore", `{"tree_count":1}`, 400, "body"},
		{"malformed json", "/finalscore", `{"tree_count":`, 400, "body"},
		{"unknown report", "/ledger/issue", `{"ngo_id":"n","credits_amount":5,"report_id":"nope"}`, 404, ""},
		{"self transfer", "/ledger/transfer", `{"from_id":"a","to_id":"a","credits_amount":1}`, 400, "to_id"},
		{"insufficient", "/ledger/transfer", `{"from_id":"a","to_id":"b","credits_amount":1}`, 409, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, prob := post(t, ts, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
			assert.EqualValues(t, tt.status, prob["status"])
			assert.Equal(t, tt.path, prob["instance"])
			if tt.field != "" {
				assert.Equal(t, tt.field, prob["field"])
			}
		})
	}

	resp, prob := get(t, ts, "/ledger/query/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, prob["detail"], "missing")

	resp, _ = get(t, ts, "/no/such/route")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t)
	big := bytes.Repeat([]byte(" "), maxBodyBytes+1)
	resp, err := ts.Client().Post(ts.URL+"/finalscore", "application/json", bytes.NewReader(big))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestScoringEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, report := post(t, ts, "/finalscore", submitBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Standard", report["quality_rating"])

	resp, batch := post(t, ts, "/finalscore/batch",
		`{"projects":[`+submitBody+`,{"tree_count":1,"claimed_trees":0,"ndvi_score":0.5,"iot_score":0.5,"audit_check":0.5}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := batch["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["successful_calculations"])
	assert.EqualValues(t, 1, summary["failed_calculations"])

	resp, est := post(t, ts, "/co2", `{"tree_count":1000,"verification_score":0.8}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 12300.0, est["co2_absorbed_kg"], 1e-9)
	assert.NotNil(t, est["carbon_credits"])

	resp, pot := post(t, ts, "/co2/plantation", `{"area_hectares":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2000, pot["total_trees"])
	assert.Len(t, pot["scenarios"], 3)
}

func TestRateLimitedServer(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(1, 2))
	for i := 0; i < 2; i++ {
		resp, _ := get(t, ts, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := get(t, ts, "/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}
