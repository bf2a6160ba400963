package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"wchain/ledger/types"
)

const listingCap = 100

// Ledger is an in-process append-only store honoring the external ledger
// contract: owner-gated writes, administrative freeze, idempotent store by
// receipt ID, lookup by ID and a bounded recent listing. It backs local
// deployments and the contract tests.
type Ledger struct {
	mu      sync.Mutex
	owner   string
	frozen  bool
	records map[string]types.ReceiptEntry
	order   []string // receipt IDs in append order
	batches map[string]*types.AuditData
	logger  *log.Logger
}

// NewLedger creates a ledger owned by the given identity.
func NewLedger(owner string, logger *log.Logger) *Ledger {
	return &Ledger{
		owner:   owner,
		records: make(map[string]types.ReceiptEntry),
		batches: make(map[string]*types.AuditData),
		logger:  logger,
	}
}

// Freeze administratively rejects all subsequent writes.
func (l *Ledger) Freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = true
}

// Unfreeze re-enables writes.
func (l *Ledger) Unfreeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = false
}

// storeBatch applies one batch under the contract rules and returns the
// audit record plus per-entry statuses.
func (l *Ledger) storeBatch(identity string, entries []types.ReceiptEntry) (*types.AuditData, []types.ReceiptStatusInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if identity != l.owner {
		return nil, nil, fmt.Errorf("identity %q is not the ledger owner", identity)
	}
	if l.frozen {
		return nil, nil, fmt.Errorf("ledger is administratively frozen")
	}

	txID := "MEM-" + uuid.NewString()
	audit := &types.AuditData{
		TransactionID: txID,
		SubmitterID:   identity,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	}

	results := make([]types.ReceiptStatusInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.ReceiptID == "" || entry.Hash == "" {
			results = append(results, types.ReceiptStatusInfo{
				ReceiptID: entry.ReceiptID,
				Status:    types.StatusErrorValidation,
				Message:   "receipt_id and hash are required",
			})
			continue
		}
		if _, exists := l.records[entry.ReceiptID]; exists {
			// Idempotent store: duplicates are silently skipped, never errors.
			results = append(results, types.ReceiptStatusInfo{
				ReceiptID: entry.ReceiptID,
				Status:    types.StatusSkippedDuplicate,
				Message:   "already stored",
			})
			audit.ReceiptIDs = append(audit.ReceiptIDs, entry.ReceiptID)
			continue
		}
		l.records[entry.ReceiptID] = entry
		l.order = append(l.order, entry.ReceiptID)
		audit.ReceiptIDs = append(audit.ReceiptIDs, entry.ReceiptID)
		results = append(results, types.ReceiptStatusInfo{
			ReceiptID: entry.ReceiptID,
			Status:    types.StatusSuccess,
		})
	}

	l.batches[txID] = audit
	return audit, results, nil
}

// Client adapts a Ledger to the LedgerClient interface, submitting with a
// fixed identity the way a remote client authenticates as one owner.
type Client struct {
	ledger   *Ledger
	identity string
	logger   *log.Logger
}

// NewClient creates a client submitting as the given identity.
func NewClient(l *Ledger, identity string, logger *log.Logger) *Client {
	return &Client{ledger: l, identity: identity, logger: logger}
}

func (c *Client) SubmitReceiptsBatch(ctx context.Context, entries []types.ReceiptEntry) (*types.BatchProof, []types.ReceiptStatusInfo, error) {
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("receipt batch cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	audit, results, err := c.ledger.storeBatch(c.identity, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger rejected batch: %w", err)
	}
	return &types.BatchProof{TransactionID: audit.TransactionID}, results, nil
}

func (c *Client) FindReceiptByID(ctx context.Context, receiptID string) (string, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	entry, ok := c.ledger.records[receiptID]
	if !ok {
		return "", fmt.Errorf("receipt %s not found in ledger", receiptID)
	}
	return entry.Hash, nil
}

func (c *Client) ListRecent(ctx context.Context, limit int) ([]types.ReceiptEntry, error) {
	if limit <= 0 || limit > listingCap {
		limit = listingCap
	}

	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	n := len(c.ledger.order)
	if limit > n {
		limit = n
	}
	entries := make([]types.ReceiptEntry, 0, limit)
	for _, id := range c.ledger.order[n-limit:] {
		entries = append(entries, c.ledger.records[id])
	}
	return entries, nil
}

func (c *Client) GetBatchByTxID(ctx context.Context, txID string) (*types.AuditData, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	audit, ok := c.ledger.batches[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found in ledger", txID)
	}
	cp := *audit
	return &cp, nil
}

func (c *Client) Close() error { return nil }

func (c *Client) Config() any { return nil }
