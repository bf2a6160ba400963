package chainmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"wchain/config"
	"wchain/ledger/types"

	"chainmaker.org/chainmaker/pb-go/v2/common"
	sdk "chainmaker.org/chainmaker/sdk-go/v2"
)

// Client commits receipt batches to a ChainMaker contract. The SDK client is
// built lazily on first use so that missing signing credentials surface as a
// configuration failure at submit time instead of crashing the process.
type Client struct {
	cfg    *config.LedgerConfig
	cmCfg  *ChainMakerConfig
	logger *log.Logger

	mu        sync.Mutex
	sdkClient *sdk.ChainClient
}

// NewClient validates the combined configuration and returns an unconnected
// client.
func NewClient(cfg *config.LedgerConfig, logger *log.Logger) (*Client, error) {
	cmCfg, ok := cfg.BackendSpecific.(*ChainMakerConfig)
	if !ok {
		return nil, fmt.Errorf("invalid ChainMaker configuration type")
	}
	if len(cmCfg.Nodes) == 0 {
		return nil, fmt.Errorf("no node configurations provided in config")
	}
	for _, nodeCfg := range cmCfg.Nodes {
		if nodeCfg.UseTLS && len(nodeCfg.CaPaths) == 0 {
			return nil, fmt.Errorf("node %s has TLS enabled but no CaPaths provided", nodeCfg.Address)
		}
	}
	return &Client{cfg: cfg, cmCfg: cmCfg, logger: logger}, nil
}

// connect builds the ChainMaker SDK client using the builder pattern. Only a
// successful build is cached: a failed attempt is retried on the next call,
// so a transient node outage or later-provisioned credentials never wedge
// the client until restart.
func (c *Client) connect() (*sdk.ChainClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sdkClient != nil {
		return c.sdkClient, nil
	}
	if !c.cmCfg.HasSigningCredential() {
		return nil, types.ErrNoCredential
	}

	c.logger.Println("Initializing ChainMaker SDK client...")

	var clientOptions []sdk.ChainClientOption
	clientOptions = append(clientOptions, sdk.WithChainClientOrgId(c.cmCfg.OrgID))
	clientOptions = append(clientOptions, sdk.WithChainClientChainId(c.cmCfg.ChainID))
	clientOptions = append(clientOptions, sdk.WithUserKeyFilePath(c.cmCfg.UserKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserCrtFilePath(c.cmCfg.UserCertPath))
	clientOptions = append(clientOptions, sdk.WithUserSignKeyFilePath(c.cmCfg.UserSignKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserSignCrtFilePath(c.cmCfg.UserSignCertPath))

	for _, nodeCfg := range c.cmCfg.Nodes {
		sdkNodeConfig := sdk.NewNodeConfig(
			sdk.WithNodeAddr(nodeCfg.Address),
			sdk.WithNodeConnCnt(nodeCfg.ConnCount),
			sdk.WithNodeUseTLS(nodeCfg.UseTLS),
			sdk.WithNodeCAPaths(nodeCfg.CaPaths),
			sdk.WithNodeTLSHostName(nodeCfg.TLSHostName),
		)
		clientOptions = append(clientOptions, sdk.AddChainClientNodeConfig(sdkNodeConfig))
	}

	if c.cfg.RetryLimit > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryLimit(c.cfg.RetryLimit))
	}
	if c.cfg.RetryInterval > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryInterval(c.cfg.RetryInterval))
	}

	client, err := sdk.NewChainClient(clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to build ChainMaker SDK client: %w", err)
	}
	if err := client.EnableCertHash(); err != nil {
		c.logger.Printf("Warning: Failed to enable cert hash: %v", err)
	}

	c.logger.Println("ChainMaker SDK client initialized successfully.")
	c.sdkClient = client
	return c.sdkClient, nil
}

// Config returns the configuration associated with the client.
func (c *Client) Config() any {
	return c.cmCfg
}

// Close stops the SDK client if it was ever connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sdkClient == nil {
		return nil
	}
	c.logger.Println("Closing ChainMaker SDK client...")
	if err := c.sdkClient.Stop(); err != nil {
		return fmt.Errorf("failed to stop ChainMaker SDK client: %w", err)
	}
	return nil
}

// SubmitReceiptsBatch stores a batch of receipt summaries in one transaction.
func (c *Client) SubmitReceiptsBatch(ctx context.Context, entries []types.ReceiptEntry) (*types.BatchProof, []types.ReceiptStatusInfo, error) {
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("receipt batch cannot be empty")
	}
	if c.cmCfg.SubmitReceiptsBatchMethodName == "" || c.cmCfg.ParamKeyReceiptsJson == "" {
		return nil, nil, fmt.Errorf("batch configuration fields not set in config")
	}

	client, err := c.connect()
	if err != nil {
		return nil, nil, err
	}

	receiptsJson, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal receipt entries to JSON: %w", err)
	}

	kvs := []*common.KeyValuePair{
		{
			Key:   c.cmCfg.ParamKeyReceiptsJson,
			Value: receiptsJson,
		},
	}

	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := client.InvokeContract(
		c.cmCfg.ContractName,
		c.cmCfg.SubmitReceiptsBatchMethodName,
		"",
		kvs,
		-1,
		true,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("SDK batch invoke failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return nil, nil, fmt.Errorf("contract batch execution failed: %s (code: %d)", resp.Message, resp.Code)
	}
	if resp.ContractResult == nil || len(resp.ContractResult.Result) == 0 {
		return nil, nil, fmt.Errorf("contract batch execution returned empty result (tx: %s)", resp.TxId)
	}

	var results []types.ReceiptStatusInfo
	if err := json.Unmarshal(resp.ContractResult.Result, &results); err != nil {
		c.logger.Printf("Failed to unmarshal batch results JSON (TxID: %s). Raw result: %s", resp.TxId, string(resp.ContractResult.Result))
		return nil, nil, fmt.Errorf("failed to unmarshal contract batch results: %w", err)
	}

	proof := &types.BatchProof{
		TransactionID: resp.TxId,
		BlockHeight:   resp.TxBlockHeight,
	}
	return proof, results, nil
}

// FindReceiptByID queries the contract for a stored receipt summary.
func (c *Client) FindReceiptByID(ctx context.Context, receiptID string) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	kvs := []*common.KeyValuePair{{Key: c.cmCfg.ParamKeyReceiptID, Value: []byte(receiptID)}}
	resp, err := client.QueryContract(c.cmCfg.ContractName, c.cmCfg.FindReceiptByIDMethodName, kvs, -1)
	if err != nil {
		return "", fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return "", fmt.Errorf("contract query failed: %s (code: %d)", resp.Message, resp.Code)
	}
	return string(resp.ContractResult.Result), nil
}

// ListRecent returns up to limit recently stored receipt summaries.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]types.ReceiptEntry, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	kvs := []*common.KeyValuePair{{Key: c.cmCfg.ParamKeyLimit, Value: []byte(strconv.Itoa(limit))}}
	resp, err := client.QueryContract(c.cmCfg.ContractName, c.cmCfg.ListRecentMethodName, kvs, -1)
	if err != nil {
		return nil, fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("contract query failed: %s (code: %d)", resp.Message, resp.Code)
	}

	var entries []types.ReceiptEntry
	if err := json.Unmarshal(resp.ContractResult.Result, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recent receipt listing: %w", err)
	}
	return entries, nil
}

// GetBatchByTxID performs the public audit lookup by querying transaction
// details and parsing the contract event emitted by the batch store.
func (c *Client) GetBatchByTxID(ctx context.Context, txID string) (*types.AuditData, error) {
	if txID == "" {
		return nil, fmt.Errorf("transaction ID cannot be empty")
	}
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	txInfo, err := client.GetTxByTxId(txID)
	if err != nil {
		return nil, fmt.Errorf("SDK get transaction failed: %w", err)
	}
	if txInfo == nil || txInfo.Transaction == nil || txInfo.Transaction.Result == nil || txInfo.Transaction.Result.ContractResult == nil {
		return nil, fmt.Errorf("transaction data is incomplete or nil for tx: %s", txID)
	}
	if txInfo.Transaction.Result.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("transaction execution failed: %s", txInfo.Transaction.Result.Message)
	}

	for _, event := range txInfo.Transaction.Result.ContractResult.ContractEvent {
		if event.Topic != c.cmCfg.SubmitEventTopic {
			continue
		}
		// Event data layout: submitter, timestamp, receipt IDs JSON array.
		if len(event.EventData) != 3 {
			return nil, fmt.Errorf("malformed event data: expected 3 fields, got %d", len(event.EventData))
		}
		var receiptIDs []string
		if err := json.Unmarshal([]byte(event.EventData[2]), &receiptIDs); err != nil {
			return nil, fmt.Errorf("malformed receipt ID list in event: %w", err)
		}
		return &types.AuditData{
			TransactionID: txID,
			SubmitterID:   event.EventData[0],
			Timestamp:     event.EventData[1],
			ReceiptIDs:    receiptIDs,
		}, nil
	}
	return nil, fmt.Errorf("event '%s' not found in transaction %s", c.cmCfg.SubmitEventTopic, txID)
}
