package types

import "errors"

// Failure classes the settlement scheduler must tell apart. Not-configured
// and no-credential cannot succeed without operator action, so affected
// receipts are marked failed instead of retrying forever; any other submit
// error is a transport failure and leaves receipts pending for the next tick.
var (
	ErrNotConfigured = errors.New("no ledger backend configured")
	ErrNoCredential  = errors.New("no signing credential available for ledger transactions")
)

// ReceiptEntry is the minimum disclosure forwarded to the ledger per receipt.
// The raw decision context never leaves the service; only its digest and a
// bounded prefix of the reasoning are attached for audit.
type ReceiptEntry struct {
	ReceiptID     string `json:"receipt_id"`
	Hash          string `json:"hash"`
	Signature     string `json:"signature"`
	ContextDigest string `json:"context_digest"`
	LogicPrefix   string `json:"logic_prefix"`
	Action        string `json:"action"`
	AgentID       string `json:"agent_id,omitempty"`
	TimestampMs   int64  `json:"timestamp_ms"`
}

// ReceiptProcessingStatus is the per-entry outcome reported by the ledger
// contract for one batch submission.
type ReceiptProcessingStatus string

const (
	StatusSuccess          ReceiptProcessingStatus = "Success"
	StatusSkippedDuplicate ReceiptProcessingStatus = "SkippedDuplicate"
	StatusErrorValidation  ReceiptProcessingStatus = "ErrorValidation"
	StatusErrorStateCheck  ReceiptProcessingStatus = "ErrorStateCheck"
	StatusErrorPutState    ReceiptProcessingStatus = "ErrorPutState"
)

// ReceiptStatusInfo is one element of the batch result array.
type ReceiptStatusInfo struct {
	ReceiptID string                  `json:"receipt_id"`
	Status    ReceiptProcessingStatus `json:"status"`
	Message   string                  `json:"message"`
}

// BatchProof holds the results common to the entire batch transaction.
// Every receipt settled by one acknowledged batch shares this transaction ID.
type BatchProof struct {
	TransactionID string
	BlockHeight   uint64
}

// AuditData is the notarization record recoverable from the ledger for one
// batch transaction.
type AuditData struct {
	TransactionID string
	SubmitterID   string
	Timestamp     string
	ReceiptIDs    []string
}
