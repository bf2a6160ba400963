package store

import (
	"sort"
	"sync"

	"wchain/internal/models"
)

// Store is the in-memory source of truth for receipts. A receipt lives in
// exactly one of the two subsets at any time: pending (full decision record
// attached, awaiting settlement) or settled (terminal; holds settled and
// failed receipts, payload dropped).
//
// Witnessing inserts and scheduler promotions are the only mutators; a single
// mutex serializes them so a receipt inserted mid-snapshot is deferred
// cleanly to the next tick.
type Store struct {
	mu      sync.Mutex
	pending map[string]*models.PendingReceipt
	settled map[string]*models.Receipt
}

func New() *Store {
	return &Store{
		pending: make(map[string]*models.PendingReceipt),
		settled: make(map[string]*models.Receipt),
	}
}

// InsertPending adds a freshly witnessed receipt. A receipt ID is never
// reassigned: if the ID already exists in either subset the insert is
// rejected and the stored receipt is left untouched.
func (s *Store) InsertPending(pr *models.PendingReceipt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := pr.ReceiptID
	if _, ok := s.pending[id]; ok {
		return false
	}
	if _, ok := s.settled[id]; ok {
		return false
	}

	cp := *pr
	cp.Status = models.StatusPending
	s.pending[id] = &cp
	return true
}

// PromoteToSettled moves a pending receipt to the settled subset, attaching
// the ledger transaction ID and dropping the decision record. It is a no-op
// if the ID is not currently pending, which protects against overlapping
// batches processing the same receipt twice.
func (s *Store) PromoteToSettled(receiptID, ledgerTx string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pr, ok := s.pending[receiptID]
	if !ok {
		return false
	}
	delete(s.pending, receiptID)

	rec := pr.Receipt
	rec.Status = models.StatusSettled
	rec.LedgerTx = ledgerTx
	s.settled[receiptID] = &rec
	return true
}

// MarkFailed moves a pending receipt to the terminal subset with status
// failed. Used when settlement cannot succeed without operator intervention.
func (s *Store) MarkFailed(receiptID, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pr, ok := s.pending[receiptID]
	if !ok {
		return false
	}
	delete(s.pending, receiptID)

	rec := pr.Receipt
	rec.Status = models.StatusFailed
	rec.Error = reason
	s.settled[receiptID] = &rec
	return true
}

// Get returns a copy of the receipt's public view, checking the settled
// subset first. Never exposes the attached decision record.
func (s *Store) Get(receiptID string) (*models.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.settled[receiptID]; ok {
		cp := *rec
		return &cp, true
	}
	if pr, ok := s.pending[receiptID]; ok {
		cp := pr.Receipt
		return &cp, true
	}
	return nil, false
}

// SnapshotPending returns a point-in-time copy of the pending subset,
// ordered by witness time, so settlement work never iterates a live map
// racing with new inserts.
func (s *Store) SnapshotPending() []*models.PendingReceipt {
	s.mu.Lock()
	batch := make([]*models.PendingReceipt, 0, len(s.pending))
	for _, pr := range s.pending {
		cp := *pr
		batch = append(batch, &cp)
	}
	s.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].TimestampMs != batch[j].TimestampMs {
			return batch[i].TimestampMs < batch[j].TimestampMs
		}
		return batch[i].ReceiptID < batch[j].ReceiptID
	})
	return batch
}

// PendingCount returns the number of receipts awaiting settlement.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SettledCount returns the number of receipts in the terminal subset.
func (s *Store) SettledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.settled)
}
