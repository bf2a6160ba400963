package core

import (
	"fmt"

	"wchain/internal/models"
	"wchain/internal/signer"
	"wchain/internal/store"
)

// VerificationResult reports signature validity plus settlement status for
// one receipt. The receipt view never includes the original decision content.
type VerificationResult struct {
	Valid   bool            `json:"valid"`
	Receipt *models.Receipt `json:"receipt,omitempty"`
	Message string          `json:"message"`
}

// Verifier re-checks receipt signatures on demand. It never mutates state.
type Verifier struct {
	signer *signer.Signer
	store  *store.Store
}

// NewVerifier creates a verifier over the shared signer and store.
func NewVerifier(s *signer.Signer, st *store.Store) *Verifier {
	return &Verifier{signer: s, store: st}
}

// Verify locates the receipt (settled subset first), re-verifies its
// signature and reports validity plus settlement status. Unknown IDs yield
// ErrNotFound; a located receipt whose signature fails yields
// ErrInvalidSignature, a distinct and alarming condition.
func (v *Verifier) Verify(receiptID string) (*VerificationResult, error) {
	rec, ok := v.store.Get(receiptID)
	if !ok {
		return &VerificationResult{
			Valid:   false,
			Message: fmt.Sprintf("receipt %s not found", receiptID),
		}, ErrNotFound
	}

	if !v.signer.Verify(rec.Hash, rec.Signature) {
		return &VerificationResult{
			Valid:   false,
			Receipt: rec,
			Message: "signature verification FAILED: receipt may have been tampered with",
		}, ErrInvalidSignature
	}

	var msg string
	switch rec.Status {
	case models.StatusSettled:
		msg = fmt.Sprintf("signature valid; settled in ledger transaction %s", rec.LedgerTx)
	case models.StatusFailed:
		msg = fmt.Sprintf("signature valid; ledger settlement failed: %s", rec.Error)
	default:
		msg = "signature valid; ledger settlement outstanding"
	}

	return &VerificationResult{Valid: true, Receipt: rec, Message: msg}, nil
}
