package ledger

import (
	"context"

	"wchain/ledger/types"
)

// LedgerClient is the boundary adapter over the external append-only ledger.
// Implementations must be ledger-agnostic from the caller's point of view.
type LedgerClient interface {
	// SubmitReceiptsBatch stores a batch of receipt summaries in a single
	// ledger transaction and returns the batch proof plus per-entry results.
	SubmitReceiptsBatch(ctx context.Context, entries []types.ReceiptEntry) (*types.BatchProof, []types.ReceiptStatusInfo, error)

	// FindReceiptByID queries the ledger for a stored receipt summary.
	FindReceiptByID(ctx context.Context, receiptID string) (string, error)

	// ListRecent returns up to limit recently stored receipt summaries.
	ListRecent(ctx context.Context, limit int) ([]types.ReceiptEntry, error)

	// GetBatchByTxID performs the public audit lookup for a settled batch.
	GetBatchByTxID(ctx context.Context, txID string) (*types.AuditData, error)

	// Close releases client resources.
	Close() error

	// Config returns the configuration associated with the client.
	Config() any
}
