package producer

import (
	"context"

	"wchain/internal/models"
)

// Producer defines the interface for the settlement-event stream
type Producer interface {
	// PublishBatch announces one batch of settled receipts
	PublishBatch(ctx context.Context, events []*models.SettlementEvent) error

	// Close closes the producer connection
	Close() error
}
