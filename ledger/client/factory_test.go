package ledger

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wchain/config"
	"wchain/ledger/types"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNewLedgerClientFromFileMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yml")
	yml := "backend: \"memory\"\nowner: \"org1\"\nidentity: \"org1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	client, err := NewLedgerClientFromFile(path, testLogger())
	require.NoError(t, err)
	defer client.Close()

	proof, results, err := client.SubmitReceiptsBatch(context.Background(),
		[]types.ReceiptEntry{{ReceiptID: "r1", Hash: "h1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, proof.TransactionID)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusSuccess, results[0].Status)
}

func TestNewLedgerClientAbsentBackendIsDisabled(t *testing.T) {
	for _, backend := range []string{"", "none"} {
		client, err := NewLedgerClient(&config.LedgerConfig{Backend: backend}, testLogger())
		require.NoError(t, err)

		_, _, err = client.SubmitReceiptsBatch(context.Background(),
			[]types.ReceiptEntry{{ReceiptID: "r1", Hash: "h1"}})
		assert.ErrorIs(t, err, types.ErrNotConfigured)
	}
}

func TestNewLedgerClientUnsupportedBackend(t *testing.T) {
	_, err := NewLedgerClient(&config.LedgerConfig{Backend: "etcd"}, testLogger())
	assert.Error(t, err)
}
