package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"wchain/internal/models"
	"wchain/internal/signer"
	"wchain/internal/store"
)

// receiptIDLength is the hex-prefix length of the hash used as the receipt
// ID. Receipt IDs are human-inspectable, not unguessable; collision risk is
// bounded by this truncation.
const receiptIDLength = 16

// Engine turns a decision record into a signed receipt and stores it as
// pending. Witnessing touches only the signer and the in-memory store, so it
// completes without network or disk I/O regardless of ledger health.
type Engine struct {
	signer *signer.Signer
	store  *store.Store
	logger *log.Logger
	now    func() time.Time
}

// NewEngine creates a witnessing engine over the shared signer and store.
func NewEngine(s *signer.Signer, st *store.Store, l *log.Logger) *Engine {
	return &Engine{signer: s, store: st, logger: l, now: time.Now}
}

// canonicalPayload fixes the field order of the signed serialization.
// AgentID is an explicit null when absent so that presence is part of the
// digest.
type canonicalPayload struct {
	Context     string  `json:"context"`
	Logic       string  `json:"logic"`
	Action      string  `json:"action"`
	AgentID     *string `json:"agent_id"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// ComputeHash returns the hex sha256 over the canonical serialization of the
// record at the given witness time. Including the timestamp means the same
// decision witnessed at a different instant yields a different hash.
func ComputeHash(record *models.DecisionRecord, timestampMs int64) string {
	payload := canonicalPayload{
		Context:     record.Context,
		Logic:       record.Logic,
		Action:      record.Action,
		TimestampMs: timestampMs,
	}
	if record.AgentID != "" {
		payload.AgentID = &record.AgentID
	}
	// Marshal of a struct cannot fail for string/int fields.
	data, _ := json.Marshal(payload)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Witness validates the record, signs its digest and inserts the receipt as
// pending. The returned receipt is the public view; the full record stays
// attached only to the pending entry for later settlement.
func (e *Engine) Witness(record *models.DecisionRecord) (*models.Receipt, error) {
	// Validation happens before any hashing or signing work.
	if record == nil {
		return nil, fmt.Errorf("%w: decision record is required", ErrValidation)
	}
	if record.Context == "" {
		return nil, fmt.Errorf("%w: context is required", ErrValidation)
	}
	if record.Logic == "" {
		return nil, fmt.Errorf("%w: logic is required", ErrValidation)
	}
	if record.Action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrValidation)
	}

	timestampMs := e.now().UnixMilli()
	hash := ComputeHash(record, timestampMs)
	receiptID := hash[:receiptIDLength]
	sig := e.signer.Sign(hash)

	pending := &models.PendingReceipt{
		Receipt: models.Receipt{
			ReceiptID:   receiptID,
			Hash:        hash,
			Signature:   sig,
			TimestampMs: timestampMs,
			Status:      models.StatusPending,
		},
		Record: *record,
	}

	if !e.store.InsertPending(pending) {
		// Truncated-hash collision with an existing receipt, not a caller
		// input problem.
		e.logger.Printf("Witness: receipt ID collision for %s, rejecting", receiptID)
		return nil, fmt.Errorf("%w: receipt ID %s already assigned", ErrIDCollision, receiptID)
	}

	view := pending.Receipt
	return &view, nil
}

// PublicKey exposes the hex public key for external verifiers.
func (e *Engine) PublicKey() string {
	return e.signer.PublicKey()
}
