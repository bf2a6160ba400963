package models

// ReceiptStatus tracks where a receipt is in its settlement lifecycle.
type ReceiptStatus string

const (
	StatusPending ReceiptStatus = "pending"
	StatusSettled ReceiptStatus = "settled"
	StatusFailed  ReceiptStatus = "failed"
)

// DecisionRecord is the caller-supplied input to witnessing.
// Context, Logic and Action are required; AgentID is optional.
type DecisionRecord struct {
	Context string `json:"context"`
	Logic   string `json:"logic"`
	Action  string `json:"action"`
	AgentID string `json:"agent_id,omitempty"`
}

// Receipt is the public, signed proof that a decision record was witnessed.
// It never carries the original record content.
type Receipt struct {
	ReceiptID   string        `json:"receipt_id"`
	Hash        string        `json:"hash"`
	Signature   string        `json:"signature"`
	TimestampMs int64         `json:"timestamp_ms"`
	LedgerTx    string        `json:"ledger_tx,omitempty"`
	Status      ReceiptStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// PendingReceipt keeps the full decision record attached while the receipt
// awaits settlement, so the next scheduler tick can resubmit it. The record
// is dropped when the receipt leaves the pending set.
type PendingReceipt struct {
	Receipt
	Record DecisionRecord
}

// SettlementEvent is published downstream after a receipt settles.
type SettlementEvent struct {
	ReceiptID   string `json:"receipt_id"`
	Hash        string `json:"hash"`
	LedgerTx    string `json:"ledger_tx"`
	BlockHeight uint64 `json:"block_height"`
	SettledAt   string `json:"settled_at"` // RFC3339Nano
}
