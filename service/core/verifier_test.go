package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wchain/internal/models"
	"wchain/internal/signer"
)

func witnessOne(t *testing.T, engine *Engine) *models.Receipt {
	t.Helper()
	rec, err := engine.Witness(&models.DecisionRecord{
		Context: "request context",
		Logic:   "decision logic",
		Action:  "the action",
	})
	require.NoError(t, err)
	return rec
}

func TestVerifyPendingReceipt(t *testing.T) {
	engine, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	rec := witnessOne(t, engine)

	res, err := verifier.Verify(rec.ReceiptID)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, models.StatusPending, res.Receipt.Status)
	assert.Contains(t, res.Message, "outstanding")
}

func TestVerifySettledReceipt(t *testing.T) {
	engine, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	rec := witnessOne(t, engine)
	require.True(t, st.PromoteToSettled(rec.ReceiptID, "tx-42"))

	res, err := verifier.Verify(rec.ReceiptID)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, models.StatusSettled, res.Receipt.Status)
	assert.Equal(t, "tx-42", res.Receipt.LedgerTx)
	assert.Contains(t, res.Message, "tx-42")
}

func TestVerifyFailedReceiptSignatureStillSound(t *testing.T) {
	engine, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	rec := witnessOne(t, engine)
	require.True(t, st.MarkFailed(rec.ReceiptID, "no ledger backend configured"))

	res, err := verifier.Verify(rec.ReceiptID)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, models.StatusFailed, res.Receipt.Status)
}

func TestVerifyUnknownIDIsNotFoundNeverInvalid(t *testing.T) {
	_, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	res, err := verifier.Verify("0000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Receipt)
}

func TestVerifyTamperedSignatureIsDistinct(t *testing.T) {
	_, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	// A receipt whose stored signature does not verify implies tampering.
	require.True(t, st.InsertPending(&models.PendingReceipt{
		Receipt: models.Receipt{
			ReceiptID:   "deadbeefdeadbeef",
			Hash:        "deadbeefdeadbeef0000000000000000",
			Signature:   "0000",
			TimestampMs: 1,
			Status:      models.StatusPending,
		},
		Record: models.DecisionRecord{Context: "c", Logic: "l", Action: "a"},
	}))

	res, err := verifier.Verify("deadbeefdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, res.Valid)
}

func TestVerifyNeverMutatesState(t *testing.T) {
	engine, sgn, st := newTestEngine(t)
	verifier := NewVerifier(sgn, st)

	rec := witnessOne(t, engine)
	for i := 0; i < 3; i++ {
		_, err := verifier.Verify(rec.ReceiptID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, st.PendingCount())
	assert.Equal(t, 0, st.SettledCount())
}

// Guard against accidental reuse of engine state between signer instances.
func TestVerifierBoundToSignerKey(t *testing.T) {
	engine, _, st := newTestEngine(t)
	rec := witnessOne(t, engine)

	other, err := signer.New()
	require.NoError(t, err)
	verifier := NewVerifier(other, st)

	_, err = verifier.Verify(rec.ReceiptID)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
