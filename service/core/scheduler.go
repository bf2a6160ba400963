package core

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"wchain/internal/models"
	"wchain/internal/store"
	ledger "wchain/ledger/client"
	ledgertypes "wchain/ledger/types"
)

// logicPrefixLimit bounds how much of the reasoning summary is disclosed to
// the ledger.
const logicPrefixLimit = 120

// Archiver durably records settled receipts. Archiving is best-effort and
// never affects receipt state.
type Archiver interface {
	ArchiveSettled(ctx context.Context, receipts []*models.Receipt) error
}

// EventPublisher announces settled receipts downstream.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []*models.SettlementEvent) error
}

// Scheduler drains pending receipts to the ledger on a fixed interval. Ticks
// never overlap: a tick due while the previous one is in flight is skipped,
// so the same pending snapshot is never submitted twice concurrently. The
// scheduler is the only component that performs external I/O; witnessing and
// verification stay off its path.
type Scheduler struct {
	store   *store.Store
	client  ledger.LedgerClient
	archive Archiver
	events  EventPublisher
	logger  *log.Logger

	tickInterval  time.Duration
	ledgerTimeout time.Duration

	inFlight atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler and starts its tick loop. archive and
// events may be nil to disable the respective side channel.
func NewScheduler(st *store.Store, client ledger.LedgerClient, archive Archiver, events EventPublisher,
	logger *log.Logger, tickInterval, ledgerTimeout time.Duration) *Scheduler {

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:         st,
		client:        client,
		archive:       archive,
		events:        events,
		logger:        logger,
		tickInterval:  tickInterval,
		ledgerTimeout: ledgerTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// run is the tick loop. It lives for the lifetime of the process and stops
// only at shutdown.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// Tick snapshots the pending set, submits it as one batch and applies the
// per-receipt results. A tick due while another is in flight is dropped, so
// the same pending snapshot is never submitted twice concurrently no matter
// who calls. A tick's failure never prevents the next tick from running:
// transport errors leave receipts pending for implicit retry, while
// configuration failures mark them failed since retrying cannot succeed
// without operator intervention.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Println("Settlement tick skipped: previous tick still in flight")
		return
	}
	defer s.inFlight.Store(false)
	s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	batch := s.store.SnapshotPending()
	if len(batch) == 0 {
		// Never call the ledger with an empty batch.
		return
	}

	start := time.Now()
	batchID := uuid.NewString()

	entries := make([]ledgertypes.ReceiptEntry, len(batch))
	for i, pr := range batch {
		entries[i] = disclose(pr)
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	proof, results, err := s.client.SubmitReceiptsBatch(submitCtx, entries)
	if err != nil {
		if errors.Is(err, ledgertypes.ErrNotConfigured) || errors.Is(err, ledgertypes.ErrNoCredential) {
			s.logger.Printf("Settlement batch %s: configuration failure: %v (failing %d receipts)", batchID, err, len(batch))
			for _, pr := range batch {
				s.store.MarkFailed(pr.ReceiptID, err.Error())
			}
			return
		}
		// Transport failure: the whole snapshot stays pending and is
		// resubmitted on the next tick.
		s.logger.Printf("Settlement batch %s: ledger submission failed: %v (%d receipts remain pending)", batchID, err, len(batch))
		return
	}

	resultsMap := make(map[string]ledgertypes.ReceiptStatusInfo, len(results))
	for _, res := range results {
		resultsMap[res.ReceiptID] = res
	}

	settledAt := time.Now().UTC().Format(time.RFC3339Nano)
	var settled []*models.Receipt
	var events []*models.SettlementEvent

	for _, pr := range batch {
		info, found := resultsMap[pr.ReceiptID]
		if !found {
			s.logger.Printf("Settlement batch %s: missing result for receipt %s (TxID: %s), leaving pending", batchID, pr.ReceiptID, proof.TransactionID)
			continue
		}

		switch info.Status {
		case ledgertypes.StatusSuccess, ledgertypes.StatusSkippedDuplicate:
			// SkippedDuplicate means a retried submission found the record
			// already stored; the receipt settles against this batch's tx.
			if s.store.PromoteToSettled(pr.ReceiptID, proof.TransactionID) {
				rec, _ := s.store.Get(pr.ReceiptID)
				settled = append(settled, rec)
				events = append(events, &models.SettlementEvent{
					ReceiptID:   pr.ReceiptID,
					Hash:        pr.Hash,
					LedgerTx:    proof.TransactionID,
					BlockHeight: proof.BlockHeight,
					SettledAt:   settledAt,
				})
			}
		default:
			s.logger.Printf("Settlement batch %s: contract rejected receipt %s: %s - %s (will retry)", batchID, pr.ReceiptID, info.Status, info.Message)
		}
	}

	if s.archive != nil && len(settled) > 0 {
		if err := s.archive.ArchiveSettled(ctx, settled); err != nil {
			s.logger.Printf("Settlement batch %s: archive write failed: %v", batchID, err)
		}
	}
	if s.events != nil && len(events) > 0 {
		if err := s.events.PublishBatch(ctx, events); err != nil {
			s.logger.Printf("Settlement batch %s: event publish failed: %v", batchID, err)
		}
	}

	s.logger.Printf("Settlement batch %s: size=%d, settled=%d, tx=%s, duration=%v",
		batchID, len(batch), len(settled), proof.TransactionID, time.Since(start))
}

// disclose builds the minimum audit disclosure for one pending receipt: a
// digest of the context (never raw), a bounded prefix of the reasoning, the
// full action and the agent ID if present. The prefix cut backs off to a
// rune boundary so the disclosure is always valid UTF-8.
func disclose(pr *models.PendingReceipt) ledgertypes.ReceiptEntry {
	logicPrefix := pr.Record.Logic
	if len(logicPrefix) > logicPrefixLimit {
		cut := logicPrefixLimit
		for cut > 0 && !utf8.RuneStart(logicPrefix[cut]) {
			cut--
		}
		logicPrefix = logicPrefix[:cut]
	}
	return ledgertypes.ReceiptEntry{
		ReceiptID:     pr.ReceiptID,
		Hash:          pr.Hash,
		Signature:     pr.Signature,
		ContextDigest: fmt.Sprintf("%x", sha256.Sum256([]byte(pr.Record.Context))),
		LogicPrefix:   logicPrefix,
		Action:        pr.Record.Action,
		AgentID:       pr.Record.AgentID,
		TimestampMs:   pr.TimestampMs,
	}
}

// Close stops the tick loop and waits for an in-flight tick to finish.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
