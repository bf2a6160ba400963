package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"wchain/internal/models"
	"wchain/internal/store"
	core "wchain/service/core"
)

// WitnessHandler adapts the witnessing core to HTTP. Malformed input is
// rejected here, before the core is called.
type WitnessHandler struct {
	engine   *core.Engine
	verifier *core.Verifier
	store    *store.Store
	logger   *log.Logger
}

// NewWitnessHandler creates a new WitnessHandler
func NewWitnessHandler(e *core.Engine, v *core.Verifier, st *store.Store, l *log.Logger) *WitnessHandler {
	return &WitnessHandler{engine: e, verifier: v, store: st, logger: l}
}

// Witness handles POST /v1/witness requests
func (h *WitnessHandler) Witness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		h.respondError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	if r.ContentLength > 1*1024*1024 { // 1MB limit
		h.respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var reqPayload struct {
		Context string `json:"context"`
		Logic   string `json:"logic"`
		Action  string `json:"action"`
		AgentID string `json:"agent_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqPayload); err != nil {
		h.logger.Printf("HTTP Handler: Failed to parse JSON request: %v", err)
		h.respondError(w, "Bad Request: Invalid JSON format", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	record := &models.DecisionRecord{
		Context: reqPayload.Context,
		Logic:   reqPayload.Logic,
		Action:  reqPayload.Action,
		AgentID: reqPayload.AgentID,
	}

	receipt, err := h.engine.Witness(record)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrValidation):
			statusCode = http.StatusBadRequest
		case errors.Is(err, core.ErrIDCollision):
			// Server-side collision, not fixable caller input.
			statusCode = http.StatusConflict
			h.logger.Printf("HTTP Handler: witnessing failed: %v", err)
		default:
			h.logger.Printf("HTTP Handler: witnessing failed: %v", err)
		}
		h.respondError(w, err.Error(), statusCode)
		return
	}

	// 202: the receipt is issued immediately, settlement happens async.
	h.respondJSON(w, receipt, http.StatusAccepted)
}

// Verify handles GET /v1/verify?receipt_id=... requests
func (h *WitnessHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	receiptID := r.URL.Query().Get("receipt_id")
	if receiptID == "" {
		h.respondError(w, "receipt_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.verifier.Verify(receiptID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		h.respondJSON(w, map[string]interface{}{
			"valid":   false,
			"reason":  "not_found",
			"message": result.Message,
		}, http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidSignature):
		h.logger.Printf("HTTP Handler: ALERT: invalid signature on receipt %s", receiptID)
		h.respondJSON(w, map[string]interface{}{
			"valid":   false,
			"reason":  "invalid_signature",
			"receipt": result.Receipt,
			"message": result.Message,
		}, http.StatusOK)
	case err != nil:
		h.respondError(w, err.Error(), http.StatusInternalServerError)
	default:
		h.respondJSON(w, result, http.StatusOK)
	}
}

// Info handles GET /v1/info requests
func (h *WitnessHandler) Info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]interface{}{
		"public_key":    h.engine.PublicKey(),
		"pending_count": h.store.PendingCount(),
		"settled_count": h.store.SettledCount(),
	}
	h.respondJSON(w, resp, http.StatusOK)
}

// HealthCheck handles GET /health requests
func (h *WitnessHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"service":   "witnessd",
	}
	h.respondJSON(w, resp, http.StatusOK)
}

// respondJSON sends JSON response
func (h *WitnessHandler) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("HTTP Handler: Failed to encode JSON response: %v", err)
	}
}

// respondError sends error response
func (h *WitnessHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	errorResp := map[string]interface{}{
		"error":   message,
		"status":  statusCode,
		"message": http.StatusText(statusCode),
	}
	h.respondJSON(w, errorResp, statusCode)
}
