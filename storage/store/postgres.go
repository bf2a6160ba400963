package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wchain/internal/models"
)

// ErrReceiptNotArchived is returned when a lookup misses the archive.
var ErrReceiptNotArchived = errors.New("receipt not archived")

const createArchiveTableSQL = `
CREATE TABLE IF NOT EXISTS settled_receipts (
	receipt_id   TEXT PRIMARY KEY,
	hash         TEXT NOT NULL,
	signature    TEXT NOT NULL,
	ledger_tx    TEXT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore archives settled receipts for long-term audit queries. It
// holds receipt metadata only: the witnessed decision content is gone by the
// time a receipt settles and is never written here.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgresStore connects a pgx pool and ensures the archive table exists.
func NewPostgresStore(ctx context.Context, dsn string, minConns, maxConns int32, logger *log.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	poolCfg.MinConns = minConns
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, createArchiveTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure archive table: %w", err)
	}

	logger.Printf("PostgresStore: connected (min_conns=%d, max_conns=%d)", minConns, maxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// ArchiveSettled inserts settled receipts. Re-archiving a receipt is a no-op,
// so a retried batch never produces duplicate rows.
func (s *PostgresStore) ArchiveSettled(ctx context.Context, receipts []*models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`
INSERT INTO settled_receipts (receipt_id, hash, signature, ledger_tx, timestamp_ms)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (receipt_id) DO NOTHING`,
			r.ReceiptID, r.Hash, r.Signature, r.LedgerTx, r.TimestampMs)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range receipts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to archive settled receipts: %w", err)
		}
	}
	return nil
}

// GetArchived returns the archived view of one settled receipt.
func (s *PostgresStore) GetArchived(ctx context.Context, receiptID string) (*models.Receipt, error) {
	rec := &models.Receipt{Status: models.StatusSettled}
	err := s.pool.QueryRow(ctx, `
SELECT receipt_id, hash, signature, ledger_tx, timestamp_ms
FROM settled_receipts
WHERE receipt_id = $1`, receiptID).
		Scan(&rec.ReceiptID, &rec.Hash, &rec.Signature, &rec.LedgerTx, &rec.TimestampMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotArchived
		}
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	return rec, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
	s.logger.Println("PostgresStore: connection pool closed")
}
