package core

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wchain/internal/models"
	"wchain/internal/signer"
	"wchain/internal/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine(t *testing.T) (*Engine, *signer.Signer, *store.Store) {
	t.Helper()
	s, err := signer.New()
	require.NoError(t, err)
	st := store.New()
	return NewEngine(s, st, testLogger()), s, st
}

func TestWitnessReturnsVerifiableReceipt(t *testing.T) {
	engine, sgn, st := newTestEngine(t)

	record := &models.DecisionRecord{
		Context: "deploy requested for build 1234",
		Logic:   "all checks green, window open",
		Action:  "deploy to production",
		AgentID: "agent-7",
	}
	rec, err := engine.Witness(record)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, rec.Hash[:receiptIDLength], rec.ReceiptID)
	assert.True(t, sgn.Verify(rec.Hash, rec.Signature))
	assert.Empty(t, rec.LedgerTx)

	// Hash is reproducible from the record and witness time.
	assert.Equal(t, ComputeHash(record, rec.TimestampMs), rec.Hash)

	assert.Equal(t, 1, st.PendingCount())
}

func TestWitnessTimestampChangesHash(t *testing.T) {
	record := &models.DecisionRecord{Context: "c", Logic: "l", Action: "a"}

	h0 := ComputeHash(record, 1700000000000)
	h1 := ComputeHash(record, 1700000000001)
	assert.NotEqual(t, h0, h1)
	assert.NotEqual(t, h0[:receiptIDLength], h1[:receiptIDLength])
}

func TestWitnessSameFieldsAtDifferentInstants(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	record := &models.DecisionRecord{Context: "c", Logic: "l", Action: "a"}

	r1, err := engine.Witness(record)
	require.NoError(t, err)

	// Make sure the second witness lands on a later millisecond.
	time.Sleep(2 * time.Millisecond)

	r2, err := engine.Witness(record)
	require.NoError(t, err)

	assert.NotEqual(t, r1.Hash, r2.Hash)
	assert.NotEqual(t, r1.ReceiptID, r2.ReceiptID)
	assert.NotEqual(t, r1.Signature, r2.Signature)
}

func TestWitnessIDCollisionIsNotValidationError(t *testing.T) {
	engine, _, st := newTestEngine(t)
	engine.now = func() time.Time { return time.UnixMilli(1700000000000) }
	record := &models.DecisionRecord{Context: "c", Logic: "l", Action: "a"}

	_, err := engine.Witness(record)
	require.NoError(t, err)

	// Same record at the same instant derives the same receipt ID. The
	// caller's input is fine, so the rejection must not read as validation.
	_, err = engine.Witness(record)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDCollision)
	assert.NotErrorIs(t, err, ErrValidation)

	assert.Equal(t, 1, st.PendingCount())
}

func TestWitnessAgentIDIsPartOfDigest(t *testing.T) {
	with := &models.DecisionRecord{Context: "c", Logic: "l", Action: "a", AgentID: "agent-1"}
	without := &models.DecisionRecord{Context: "c", Logic: "l", Action: "a"}

	assert.NotEqual(t, ComputeHash(with, 1), ComputeHash(without, 1))
}

func TestWitnessValidation(t *testing.T) {
	engine, _, st := newTestEngine(t)

	cases := []struct {
		name   string
		record *models.DecisionRecord
	}{
		{"nil record", nil},
		{"empty context", &models.DecisionRecord{Logic: "l", Action: "a"}},
		{"empty logic", &models.DecisionRecord{Context: "c", Action: "a"}},
		{"empty action", &models.DecisionRecord{Context: "c", Logic: "l"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Witness(tc.record)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// Validation failures never store a receipt.
	assert.Equal(t, 0, st.PendingCount())
	assert.Equal(t, 0, st.SettledCount())
}

func TestPublicKeyExposed(t *testing.T) {
	engine, sgn, _ := newTestEngine(t)
	assert.Equal(t, sgn.PublicKey(), engine.PublicKey())
	assert.Len(t, engine.PublicKey(), 64) // 32-byte Ed25519 key, hex-encoded
}
