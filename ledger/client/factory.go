package ledger

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"wchain/config"
	"wchain/ledger/client/chainmaker"
	"wchain/ledger/client/memory"
	"wchain/ledger/types"
)

// Backend identifies the ledger implementation behind the client.
type Backend string

const (
	ChainMaker Backend = "chainmaker"
	Memory     Backend = "memory"
	None       Backend = "none"
)

// LoadBackendSpecificConfig loads backend-specific configuration based on the
// selected ledger backend.
func LoadBackendSpecificConfig(backend string, configDir string) (any, error) {
	switch Backend(backend) {
	case ChainMaker:
		path := filepath.Join(configDir, "clients", "chainmaker.yml")
		return chainmaker.LoadChainMakerConfig(path)
	case Memory, None, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", backend)
	}
}

// NewLedgerClient creates a ledger client for the configured backend. An
// absent backend yields a disabled client whose submissions report the
// not-configured failure, so the service keeps running without a ledger.
func NewLedgerClient(cfg *config.LedgerConfig, logger *log.Logger) (LedgerClient, error) {
	switch Backend(cfg.Backend) {
	case ChainMaker:
		return chainmaker.NewClient(cfg, logger)
	case Memory:
		l := memory.NewLedger(cfg.Owner, logger)
		return memory.NewClient(l, cfg.Identity, logger), nil
	case None, "":
		logger.Println("No ledger backend configured; receipts will fail settlement.")
		return &disabledClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Backend)
	}
}

// NewLedgerClientFromFile creates a ledger client from configuration files.
func NewLedgerClientFromFile(configPath string, logger *log.Logger) (LedgerClient, error) {
	cfg, err := config.LoadLedgerConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger config from file '%s': %w", configPath, err)
	}

	backendCfg, err := LoadBackendSpecificConfig(cfg.Backend, filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load backend-specific config: %w", err)
	}

	cfg.BackendSpecific = backendCfg
	return NewLedgerClient(cfg, logger)
}

// disabledClient stands in when no ledger backend is configured. Every
// submission reports the permanent not-configured failure.
type disabledClient struct{}

func (d *disabledClient) SubmitReceiptsBatch(ctx context.Context, entries []types.ReceiptEntry) (*types.BatchProof, []types.ReceiptStatusInfo, error) {
	return nil, nil, types.ErrNotConfigured
}

func (d *disabledClient) FindReceiptByID(ctx context.Context, receiptID string) (string, error) {
	return "", types.ErrNotConfigured
}

func (d *disabledClient) ListRecent(ctx context.Context, limit int) ([]types.ReceiptEntry, error) {
	return nil, types.ErrNotConfigured
}

func (d *disabledClient) GetBatchByTxID(ctx context.Context, txID string) (*types.AuditData, error) {
	return nil, types.ErrNotConfigured
}

func (d *disabledClient) Close() error { return nil }

func (d *disabledClient) Config() any { return nil }

var _ LedgerClient = (*disabledClient)(nil)
