package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wchain/internal/models"
	"wchain/internal/signer"
	"wchain/internal/store"
	core "wchain/service/core"
)

func newTestHandler(t *testing.T) (*WitnessHandler, *store.Store) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	sgn, err := signer.New()
	require.NoError(t, err)
	st := store.New()
	engine := core.NewEngine(sgn, st, logger)
	verifier := core.NewVerifier(sgn, st)
	return NewWitnessHandler(engine, verifier, st, logger), st
}

func postWitness(t *testing.T, h *WitnessHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/witness", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Witness(rr, req)
	return rr
}

func TestWitnessEndpoint(t *testing.T) {
	h, st := newTestHandler(t)

	rr := postWitness(t, h, `{"context":"c","logic":"l","action":"a","agent_id":"agent-1"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	assert.NotEmpty(t, receipt.ReceiptID)
	assert.NotEmpty(t, receipt.Hash)
	assert.NotEmpty(t, receipt.Signature)
	assert.Equal(t, models.StatusPending, receipt.Status)

	assert.Equal(t, 1, st.PendingCount())
}

func TestWitnessRejectsMissingFields(t *testing.T) {
	h, st := newTestHandler(t)

	cases := []string{
		`{"logic":"l","action":"a"}`,
		`{"context":"c","action":"a"}`,
		`{"context":"c","logic":"l"}`,
		`{"context":"","logic":"l","action":"a"}`,
	}
	for _, body := range cases {
		rr := postWitness(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body: %s", body)
	}
	assert.Equal(t, 0, st.PendingCount())
}

func TestWitnessRejectsMalformedRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postWitness(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Wrong content type
	req := httptest.NewRequest(http.MethodPost, "/v1/witness", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	h.Witness(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Wrong method
	req = httptest.NewRequest(http.MethodGet, "/v1/witness", nil)
	rr = httptest.NewRecorder()
	h.Witness(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestVerifyEndpointPendingReceipt(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postWitness(t, h, `{"context":"c","logic":"l","action":"a"}`)
	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))

	req := httptest.NewRequest(http.MethodGet, "/v1/verify?receipt_id="+receipt.ReceiptID, nil)
	rr2 := httptest.NewRecorder()
	h.Verify(rr2, req)
	require.Equal(t, http.StatusOK, rr2.Code)

	var result core.VerificationResult
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, models.StatusPending, result.Receipt.Status)
}

func TestVerifyEndpointSettledReceipt(t *testing.T) {
	h, st := newTestHandler(t)

	rr := postWitness(t, h, `{"context":"c","logic":"l","action":"a"}`)
	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	require.True(t, st.PromoteToSettled(receipt.ReceiptID, "tx-99"))

	req := httptest.NewRequest(http.MethodGet, "/v1/verify?receipt_id="+receipt.ReceiptID, nil)
	rr2 := httptest.NewRecorder()
	h.Verify(rr2, req)
	require.Equal(t, http.StatusOK, rr2.Code)

	var result core.VerificationResult
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "tx-99", result.Receipt.LedgerTx)
}

func TestVerifyEndpointUnknownID(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/verify?receipt_id=ffffffffffffffff", nil)
	rr := httptest.NewRecorder()
	h.Verify(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "not_found", body["reason"])
}

func TestVerifyEndpointRequiresReceiptID(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/verify", nil)
	rr := httptest.NewRecorder()
	h.Verify(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInfoEndpoint(t *testing.T) {
	h, st := newTestHandler(t)

	rr := postWitness(t, h, `{"context":"c","logic":"l","action":"a"}`)
	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	require.True(t, st.PromoteToSettled(receipt.ReceiptID, "tx"))
	postWitness(t, h, `{"context":"c2","logic":"l2","action":"a2"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	rr2 := httptest.NewRecorder()
	h.Info(rr2, req)
	require.Equal(t, http.StatusOK, rr2.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &body))
	assert.Len(t, body["public_key"], 64)
	assert.Equal(t, float64(1), body["pending_count"])
	assert.Equal(t, float64(1), body["settled_count"])
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
