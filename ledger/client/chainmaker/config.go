package chainmaker

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// NodeConfig stores detailed configuration for a single ChainMaker node
type NodeConfig struct {
	Address     string   `yaml:"address"`
	ConnCount   int      `yaml:"conn_count"`
	UseTLS      bool     `yaml:"use_tls"`
	TLSHostName string   `yaml:"tls_host_name"`
	CaPaths     []string `yaml:"ca_paths"`
}

// ChainMakerConfig stores ChainMaker-specific configuration
type ChainMakerConfig struct {
	// --- SDK Connection Required ---
	ChainID string `yaml:"chain_id"`
	OrgID   string `yaml:"org_id"`

	// TLS Connection Credentials
	UserKeyPath  string `yaml:"user_key_path"`
	UserCertPath string `yaml:"user_cert_path"`

	// Transaction Signing Credentials
	UserSignKeyPath  string `yaml:"user_sign_key_path"`
	UserSignCertPath string `yaml:"user_sign_cert_path"`

	Nodes []NodeConfig `yaml:"nodes"`

	// --- Contract Binding ---
	ContractName                  string `yaml:"contract_name"`
	SubmitReceiptsBatchMethodName string `yaml:"submit_receipts_batch_method_name"`
	ParamKeyReceiptsJson          string `yaml:"param_key_receipts_json"`
	FindReceiptByIDMethodName     string `yaml:"find_receipt_by_id_method_name"`
	ParamKeyReceiptID             string `yaml:"param_key_receipt_id"`
	ListRecentMethodName          string `yaml:"list_recent_method_name"`
	ParamKeyLimit                 string `yaml:"param_key_limit"`
	SubmitEventTopic              string `yaml:"submit_event_topic"`
}

// HasSigningCredential reports whether the transaction signing key material
// is configured and present on disk. Its absence is a configuration failure
// surfaced at submit time, never a startup crash.
func (c *ChainMakerConfig) HasSigningCredential() bool {
	if c.UserSignKeyPath == "" || c.UserSignCertPath == "" {
		return false
	}
	if _, err := os.Stat(c.UserSignKeyPath); err != nil {
		return false
	}
	if _, err := os.Stat(c.UserSignCertPath); err != nil {
		return false
	}
	return true
}

// LoadChainMakerConfig loads ChainMaker configuration from the specified YAML file path
func LoadChainMakerConfig(path string) (*ChainMakerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of ChainMaker config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ChainMaker config file '%s': %w", absPath, err)
	}

	var cfg ChainMakerConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ChainMaker YAML config file: %w", err)
	}

	return &cfg, nil
}
