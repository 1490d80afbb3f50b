package validator

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/stores/utxo/memory"
	"github.com/bsv-blockchain/txhandler/test/utils/transactions"
	"github.com/bsv-blockchain/txhandler/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T, storeURL string) *settings.Settings {
	t.Helper()

	u, err := url.Parse(storeURL)
	require.NoError(t, err)

	tSettings := settings.NewSettings()
	tSettings.DataFolder = t.TempDir()
	tSettings.UtxoStore.UtxoStore = u
	tSettings.UtxoStore.VerboseDebug = false
	tSettings.Validator.Policy = string(PolicyFirstSeen)

	return tSettings
}

func newValidator(t *testing.T, initial utxo.Store, opts ...Option) *Validator {
	t.Helper()

	v, err := New(context.Background(), ulogger.TestLogger{}, testSettings(t, "memory://"), initial, opts...)
	require.NoError(t, err)

	return v
}

func txIDs(txs []*model.Tx) []string {
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.TxID())
	}

	return ids
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("nil initial store", func(t *testing.T) {
		_, err := New(ctx, ulogger.TestLogger{}, testSettings(t, "memory://"), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})

	t.Run("unknown policy setting", func(t *testing.T) {
		initial, _ := newPool(t, 10)

		tSettings := testSettings(t, "memory://")
		tSettings.Validator.Policy = "largest_first"

		_, err := New(ctx, ulogger.TestLogger{}, tSettings, initial)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("unknown policy option", func(t *testing.T) {
		initial, _ := newPool(t, 10)

		_, err := New(ctx, ulogger.TestLogger{}, testSettings(t, "memory://"), initial, WithPolicy("random"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("policy from settings", func(t *testing.T) {
		initial, _ := newPool(t, 10)

		tSettings := testSettings(t, "memory://")
		tSettings.Validator.Policy = string(PolicyHighestFee)

		v, err := New(ctx, ulogger.TestLogger{}, tSettings, initial)
		require.NoError(t, err)
		assert.Equal(t, PolicyHighestFee, v.Policy())
	})

	t.Run("copies the initial pool", func(t *testing.T) {
		initial, outpoints := newPool(t, 10, 3)
		before := transactions.Snapshot(t, initial)

		v := newValidator(t, initial)
		assert.Equal(t, before, transactions.Snapshot(t, v.UtxoStore()))

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{tx})
		require.NoError(t, err)
		require.Len(t, accepted, 1)

		assert.Equal(t, before, transactions.Snapshot(t, initial), "the caller's pool must not change")
		assert.NotEqual(t, before, transactions.Snapshot(t, v.UtxoStore()))
	})

	t.Run("private pool shares no outputs with the caller", func(t *testing.T) {
		outpoint := model.NewOutpoint(chainhash.DoubleHashH([]byte("shared")), 0)
		shared := &model.Output{Value: 10, PublicKey: alice.PublicKey}

		initial := &MockStore{}
		initial.On("GetAll", mock.Anything).Return([]*utxo.Entry{{Outpoint: outpoint, Output: shared}}, nil)

		v := newValidator(t, initial)

		shared.Value = 1000

		output, err := v.UtxoStore().Get(ctx, outpoint)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, output.Value, 1e-9)

		output.Value = 1000

		tx := transactions.Create(t,
			transactions.WithInput(outpoint, alice),
			transactions.WithOutput(999, bob),
		)

		result, err := v.HandleTxsWithResult(ctx, []*model.Tx{tx})
		require.NoError(t, err)
		assert.Empty(t, result.Accepted)
		require.Len(t, result.Rejected, 1)
		assert.True(t, errors.Is(result.Rejected[0].Reason, errors.ErrTxInsufficientInputs))
	})

	t.Run("refuses a store that already holds utxos", func(t *testing.T) {
		initial, _ := newPool(t, 10)
		tSettings := testSettings(t, "sqlite:///validator")

		v, err := New(ctx, ulogger.TestLogger{}, tSettings, initial)
		require.NoError(t, err)
		require.NoError(t, v.Close(ctx))

		_, err = New(ctx, ulogger.TestLogger{}, tSettings, initial)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}

func TestHandleTxs(t *testing.T) {
	ctx := context.Background()

	t.Run("double spend across the batch", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		txA := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)
		txB := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, carol),
		)

		result, err := v.HandleTxsWithResult(ctx, []*model.Tx{txA, txB})
		require.NoError(t, err)

		assert.Equal(t, []*model.Tx{txA}, result.Accepted)
		require.Len(t, result.Rejected, 1)
		assert.Equal(t, txB, result.Rejected[0].Tx)
		assert.True(t, errors.Is(result.Rejected[0].Reason, errors.ErrUtxoNotFound))

		entries, err := v.UtxoStore().GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		assert.Equal(t, model.NewOutpoint(*txA.TxIDChainHash(), 0), entries[0].Outpoint)
		assert.InDelta(t, 10.0, entries[0].Output.Value, 1e-9)
		assert.Equal(t, bob.PublicKey.Compressed(), entries[0].Output.PublicKey.Compressed())
	})

	t.Run("overspend is rejected", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(6, bob),
			transactions.WithOutput(5, carol),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{tx})
		require.NoError(t, err)
		assert.Empty(t, accepted)

		assert.Equal(t, transactions.Snapshot(t, initial), transactions.Snapshot(t, v.UtxoStore()))
	})

	t.Run("negative output is rejected", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(-1, bob),
		)

		result, err := v.HandleTxsWithResult(ctx, []*model.Tx{tx})
		require.NoError(t, err)
		assert.Empty(t, result.Accepted)
		require.Len(t, result.Rejected, 1)
		assert.True(t, errors.Is(result.Rejected[0].Reason, errors.ErrTxInvalid))
	})

	t.Run("child after parent in the same epoch", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		parent := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(6, bob),
			transactions.WithOutput(4, carol),
		)
		child := transactions.Create(t,
			transactions.WithInput(transactions.Outpoint(parent, 0), bob),
			transactions.WithOutput(5, carol),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{parent, child})
		require.NoError(t, err)
		assert.Equal(t, txIDs([]*model.Tx{parent, child}), txIDs(accepted))

		assert.Equal(t, map[model.Outpoint]float64{
			transactions.Outpoint(parent, 1): 4,
			transactions.Outpoint(child, 0):  5,
		}, transactions.Snapshot(t, v.UtxoStore()))
	})

	t.Run("child before parent waits for a later epoch", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		parent := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)
		child := transactions.Create(t,
			transactions.WithInput(transactions.Outpoint(parent, 0), bob),
			transactions.WithOutput(10, carol),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{child, parent})
		require.NoError(t, err)
		assert.Equal(t, []*model.Tx{parent}, accepted)

		// resubmitted, the child is now valid
		accepted, err = v.HandleTxs(ctx, []*model.Tx{child})
		require.NoError(t, err)
		assert.Equal(t, []*model.Tx{child}, accepted)
		assert.Equal(t, uint64(2), v.Epoch())
	})

	t.Run("accepted output spent twice later in the epoch", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		parent := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)
		spend1 := transactions.Create(t,
			transactions.WithInput(transactions.Outpoint(parent, 0), bob),
			transactions.WithOutput(10, carol),
		)
		spend2 := transactions.Create(t,
			transactions.WithInput(transactions.Outpoint(parent, 0), bob),
			transactions.WithOutput(9, alice),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{parent, spend1, spend2})
		require.NoError(t, err)
		assert.Equal(t, txIDs([]*model.Tx{parent, spend1}), txIDs(accepted))
	})

	t.Run("nil and empty batches", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		accepted, err := v.HandleTxs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, accepted)

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)

		accepted, err = v.HandleTxs(ctx, []*model.Tx{nil, tx, nil})
		require.NoError(t, err)
		assert.Equal(t, []*model.Tx{tx}, accepted)
		assert.Equal(t, uint64(2), v.Epoch())
	})

	t.Run("same transaction twice", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{tx, tx})
		require.NoError(t, err)
		assert.Len(t, accepted, 1)
	})

	t.Run("rejection reasons", func(t *testing.T) {
		initial, outpoints := newPool(t, 10, 10, 10, 10)
		v := newValidator(t, initial)

		badSignature := transactions.Create(t,
			transactions.WithInput(outpoints[0], bob),
			transactions.WithOutput(1, bob),
		)
		doubleSpend := transactions.Create(t,
			transactions.WithInput(outpoints[1], alice),
			transactions.WithInput(outpoints[1], alice),
			transactions.WithOutput(1, bob),
		)
		overspend := transactions.Create(t,
			transactions.WithInput(outpoints[2], alice),
			transactions.WithOutput(11, bob),
		)
		missing := transactions.Create(t,
			transactions.WithInput(model.NewOutpoint(outpoints[3].TxID, 42), alice),
			transactions.WithOutput(1, bob),
		)

		result, err := v.HandleTxsWithResult(ctx, []*model.Tx{badSignature, doubleSpend, overspend, missing})
		require.NoError(t, err)
		assert.Empty(t, result.Accepted)
		require.Len(t, result.Rejected, 4)

		reasons := make([]string, 0, len(result.Rejected))
		for _, rejection := range result.Rejected {
			reasons = append(reasons, RejectReason(rejection.Reason))
		}

		assert.Equal(t, []string{"tx_invalid_signature", "tx_invalid_double_spend", "tx_insufficient_inputs", "utxo_not_found"}, reasons)
	})

	t.Run("deterministic", func(t *testing.T) {
		initial, outpoints := newPool(t, 10, 10)
		batch := conflictingBatch(t, rand.New(rand.NewSource(7)), outpoints, 40) // nolint:gosec

		first, err := newValidator(t, initial).HandleTxs(ctx, batch)
		require.NoError(t, err)

		second, err := newValidator(t, initial).HandleTxs(ctx, batch)
		require.NoError(t, err)

		assert.Equal(t, txIDs(first), txIDs(second))
	})

	t.Run("cancelled context", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)

		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()

		accepted, err := v.HandleTxs(cancelledCtx, []*model.Tx{tx})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrContextCanceled))
		assert.Empty(t, accepted)
		assert.Equal(t, uint64(0), v.Epoch())
	})

	t.Run("storage failure while committing", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial)

		store := &MockStore{}
		store.On("Get", mock.Anything, outpoints[0]).Return(&model.Output{Value: 10, PublicKey: alice.PublicKey}, nil)
		store.On("Delete", mock.Anything, outpoints[0]).Return(errors.NewStorageUnavailableError("disk full"))

		v.utxoStore = store

		tx := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{tx})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageError))
		assert.Empty(t, accepted)

		store.AssertExpectations(t)
	})
}

func TestHandleTxsConflictFree(t *testing.T) {
	ctx := context.Background()

	for _, policy := range []Policy{PolicyFirstSeen, PolicyHighestFee} {
		t.Run(string(policy), func(t *testing.T) {
			initial, outpoints := newPool(t, 10, 20, 30, 40)
			v := newValidator(t, initial, WithPolicy(policy))

			random := rand.New(rand.NewSource(42)) // nolint:gosec

			for epoch := 0; epoch < 5; epoch++ {
				replay := memory.New(ulogger.TestLogger{})
				require.NoError(t, utxo.CopyInto(ctx, replay, v.UtxoStore()))

				batch := conflictingBatch(t, random, outpoints, 30)

				accepted, err := v.HandleTxs(ctx, batch)
				require.NoError(t, err)

				// no outpoint is consumed by two accepted transactions
				consumed := map[model.Outpoint]string{}

				for _, tx := range accepted {
					for _, outpoint := range tx.InputOutpoints() {
						other, ok := consumed[outpoint]
						require.False(t, ok, "%v spent by %s and %s", outpoint, other, tx.TxID())

						consumed[outpoint] = tx.TxID()
					}
				}

				// each accepted transaction is valid against the pool left by those before it
				tv := NewTxValidator(ulogger.TestLogger{}, nil)

				for _, tx := range accepted {
					require.NoError(t, tv.ValidateTransaction(ctx, tx, replay))
					require.NoError(t, (&Validator{utxoStore: replay}).commit(ctx, tx))
				}

				assert.Equal(t, transactions.Snapshot(t, replay), transactions.Snapshot(t, v.UtxoStore()))

				entries, err := v.UtxoStore().GetAll(ctx)
				require.NoError(t, err)

				outpoints = outpoints[:0]
				for _, entry := range entries {
					outpoints = append(outpoints, entry.Outpoint)
				}
			}
		})
	}
}

func TestHandleTxsHighestFee(t *testing.T) {
	ctx := context.Background()

	t.Run("higher fee wins the conflict", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial, WithPolicy(PolicyHighestFee))

		lowFee := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(9, bob),
		)
		highFee := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(7, carol),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{lowFee, highFee})
		require.NoError(t, err)
		assert.Equal(t, []*model.Tx{highFee}, accepted)
	})

	t.Run("equal fees keep input order", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial, WithPolicy(PolicyHighestFee))

		first := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(9, bob),
		)
		second := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(9, carol),
		)

		accepted, err := v.HandleTxs(ctx, []*model.Tx{first, second})
		require.NoError(t, err)
		assert.Equal(t, []*model.Tx{first}, accepted)
	})

	t.Run("unknown fee goes last", func(t *testing.T) {
		initial, outpoints := newPool(t, 10)
		v := newValidator(t, initial, WithPolicy(PolicyHighestFee))

		parent := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(10, bob),
		)
		child := transactions.Create(t,
			transactions.WithInput(transactions.Outpoint(parent, 0), bob),
			transactions.WithOutput(1, carol),
		)

		// first seen would reject the child, its fee is unknown at epoch start so it is tried last
		accepted, err := v.HandleTxs(ctx, []*model.Tx{child, parent})
		require.NoError(t, err)
		assert.Equal(t, txIDs([]*model.Tx{parent, child}), txIDs(accepted))
	})

	t.Run("non finite fee goes last", func(t *testing.T) {
		initial, outpoints := newPool(t, 10, 10)
		v := newValidator(t, initial, WithPolicy(PolicyHighestFee))

		lowFee := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(9, bob),
		)
		nanFee := transactions.Create(t,
			transactions.WithInput(outpoints[1], alice),
			transactions.WithOutput(math.NaN(), bob),
		)
		highFee := transactions.Create(t,
			transactions.WithInput(outpoints[0], alice),
			transactions.WithOutput(1, carol),
		)

		ordered, err := v.resolutionOrder(ctx, []*model.Tx{lowFee, nanFee, highFee})
		require.NoError(t, err)
		assert.Equal(t, txIDs([]*model.Tx{highFee, lowFee, nanFee}), txIDs(ordered))

		result, err := v.HandleTxsWithResult(ctx, []*model.Tx{lowFee, nanFee, highFee})
		require.NoError(t, err)
		assert.Equal(t, txIDs([]*model.Tx{highFee}), txIDs(result.Accepted))
		require.Len(t, result.Rejected, 2)
		assert.True(t, errors.Is(result.Rejected[0].Reason, errors.ErrUtxoNotFound))
		assert.True(t, errors.Is(result.Rejected[1].Reason, errors.ErrTxInvalid))
	})
}

func TestHandleTxsSQLite(t *testing.T) {
	ctx := context.Background()

	initial, outpoints := newPool(t, 10)

	v, err := New(ctx, ulogger.NewVerboseTestLogger(t), testSettings(t, "sqlitememory:///validator"), initial)
	require.NoError(t, err)

	defer func() {
		_ = v.Close(ctx)
	}()

	txA := transactions.Create(t,
		transactions.WithInput(outpoints[0], alice),
		transactions.WithOutput(10, bob),
	)
	txB := transactions.Create(t,
		transactions.WithInput(outpoints[0], alice),
		transactions.WithOutput(10, carol),
	)

	accepted, err := v.HandleTxs(ctx, []*model.Tx{txA, txB})
	require.NoError(t, err)
	assert.Equal(t, []*model.Tx{txA}, accepted)

	output, err := v.UtxoStore().Get(ctx, transactions.Outpoint(txA, 0))
	require.NoError(t, err)
	assert.Equal(t, bob.PublicKey.Compressed(), output.PublicKey.Compressed())

	count, err := v.UtxoStore().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignatureCacheSetting(t *testing.T) {
	ctx := context.Background()
	initial, _ := newPool(t, 10)

	tSettings := testSettings(t, "memory://")
	tSettings.Validator.SignatureCacheTTLSeconds = 60

	v, err := New(ctx, ulogger.TestLogger{}, tSettings, initial)
	require.NoError(t, err)
	assert.IsType(t, &CachingVerifier{}, v.txValidator.verifier)

	tSettings = testSettings(t, "memory://")
	tSettings.Validator.SignatureCacheTTLSeconds = 0

	v, err = New(ctx, ulogger.TestLogger{}, tSettings, initial)
	require.NoError(t, err)
	assert.IsType(t, ECDSAVerifier{}, v.txValidator.verifier)

	tSettings = testSettings(t, "memory://")
	tSettings.Validator.SignatureCacheTTLSeconds = 60
	tSettings.Validator.SignatureCacheSize = -1

	_, err = New(ctx, ulogger.TestLogger{}, tSettings, initial)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestValidatorAccessors(t *testing.T) {
	ctx := context.Background()
	initial, outpoints := newPool(t, 10)
	v := newValidator(t, initial)

	tx := transactions.Create(t,
		transactions.WithInput(outpoints[0], alice),
		transactions.WithOutput(10, bob),
	)

	assert.True(t, v.IsValidTx(ctx, tx))
	require.NoError(t, v.ValidateTx(ctx, tx))

	// validation alone does not spend
	assert.True(t, v.IsValidTx(ctx, tx))

	_, err := v.HandleTxs(ctx, []*model.Tx{tx})
	require.NoError(t, err)

	assert.False(t, v.IsValidTx(ctx, tx))
	assert.True(t, errors.Is(v.ValidateTx(ctx, tx), errors.ErrUtxoNotFound))

	status, _, err := v.Health(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
}

// conflictingBatch builds n transactions over outpoints, all owned by alice, bob or
// carol. Some overlap on inputs, some overspend and some are signed by the wrong key.
func conflictingBatch(t *testing.T, random *rand.Rand, outpoints []model.Outpoint, n int) []*model.Tx {
	t.Helper()

	keys := []*transactions.Key{alice, bob, carol}
	batch := make([]*model.Tx, 0, n)

	for i := 0; i < n && len(outpoints) > 0; i++ {
		opts := []transactions.TxOption{
			transactions.WithInput(outpoints[random.Intn(len(outpoints))], keys[random.Intn(len(keys))]),
		}

		if random.Intn(3) == 0 {
			opts = append(opts, transactions.WithInput(outpoints[random.Intn(len(outpoints))], keys[random.Intn(len(keys))]))
		}

		opts = append(opts,
			transactions.WithOutput(float64(random.Intn(25)), keys[random.Intn(len(keys))]),
			transactions.WithOutput(float64(random.Intn(10)), keys[random.Intn(len(keys))]),
		)

		batch = append(batch, transactions.Create(t, opts...))
	}

	return batch
}
