// Package tests contains the behaviour every utxo.Store backend must share.
package tests

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_, PublicKey  = bec.PrivateKeyFromBytes([]byte("THIS_IS_A_DETERMINISTIC_PRIVATE_KEY"))
	_, PublicKey2 = bec.PrivateKeyFromBytes([]byte("THIS_IS_ANOTHER_DETERMINISTIC_KEY"))
	Hash, _       = chainhash.NewHashFromStr("5e3bc5947f48cec766090aa17f309fd16259de029dcef5d306b514848c9687c7")
	Hash2, _      = chainhash.NewHashFromStr("663bc5947f48cec766090aa17f309fd16259de029dcef5d306b514848c9687c8")
	Outpoint0     = model.NewOutpoint(*Hash, 0)
	Outpoint1     = model.NewOutpoint(*Hash, 1)
	Outpoint2     = model.NewOutpoint(*Hash2, 0)
)

// Store checks insertion, lookup and existence.
func Store(t *testing.T, db utxo.Store) {
	ctx := context.Background()

	exists, err := db.Exists(ctx, Outpoint0)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = db.Get(ctx, Outpoint0)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrUtxoNotFound))

	err = db.Insert(ctx, Outpoint0, &model.Output{Value: 10.25, PublicKey: PublicKey})
	require.NoError(t, err)

	exists, err = db.Exists(ctx, Outpoint0)
	require.NoError(t, err)
	require.True(t, exists)

	output, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.InDelta(t, 10.25, output.Value, 1e-9)
	assert.Equal(t, PublicKey.Compressed(), output.PublicKey.Compressed())

	// same txid, other index is another key
	exists, err = db.Exists(ctx, Outpoint1)
	require.NoError(t, err)
	require.False(t, exists)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// Overwrite checks that inserting an existing key replaces its output.
func Overwrite(t *testing.T, db utxo.Store) {
	ctx := context.Background()

	require.NoError(t, db.Insert(ctx, Outpoint0, &model.Output{Value: 1, PublicKey: PublicKey}))
	require.NoError(t, db.Insert(ctx, Outpoint0, &model.Output{Value: 2, PublicKey: PublicKey2}))

	output, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, output.Value, 1e-9)
	assert.Equal(t, PublicKey2.Compressed(), output.PublicKey.Compressed())

	count, err := db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// Delete checks removal and that removing an absent key reports ErrUtxoNotFound.
func Delete(t *testing.T, db utxo.Store) {
	ctx := context.Background()

	require.NoError(t, db.Insert(ctx, Outpoint0, &model.Output{Value: 1, PublicKey: PublicKey}))
	require.NoError(t, db.Insert(ctx, Outpoint1, &model.Output{Value: 2, PublicKey: PublicKey}))

	require.NoError(t, db.Delete(ctx, Outpoint0))

	exists, err := db.Exists(ctx, Outpoint0)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = db.Exists(ctx, Outpoint1)
	require.NoError(t, err)
	require.True(t, exists)

	err = db.Delete(ctx, Outpoint0)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrUtxoNotFound))

	count, err := db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// GetAll checks that enumeration returns every entry ordered by outpoint.
func GetAll(t *testing.T, db utxo.Store) {
	ctx := context.Background()

	entries, err := db.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, db.Insert(ctx, Outpoint2, &model.Output{Value: 3, PublicKey: PublicKey2}))
	require.NoError(t, db.Insert(ctx, Outpoint1, &model.Output{Value: 2, PublicKey: PublicKey}))
	require.NoError(t, db.Insert(ctx, Outpoint0, &model.Output{Value: 1, PublicKey: PublicKey}))

	entries, err = db.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i := 1; i < len(entries); i++ {
		assert.Negative(t, entries[i-1].Outpoint.Compare(entries[i].Outpoint))
	}

	values := map[model.Outpoint]float64{}
	for _, entry := range entries {
		values[entry.Outpoint] = entry.Output.Value
	}

	assert.Equal(t, map[model.Outpoint]float64{Outpoint0: 1, Outpoint1: 2, Outpoint2: 3}, values)
}

// Copy checks that CopyInto produces an independent copy.
func Copy(t *testing.T, db utxo.Store, dst utxo.Store) {
	ctx := context.Background()

	require.NoError(t, db.Insert(ctx, Outpoint0, &model.Output{Value: 1, PublicKey: PublicKey}))
	require.NoError(t, db.Insert(ctx, Outpoint2, &model.Output{Value: 3, PublicKey: PublicKey2}))

	require.NoError(t, utxo.CopyInto(ctx, dst, db))

	count, err := dst.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, dst.Delete(ctx, Outpoint0))

	exists, err := db.Exists(ctx, Outpoint0)
	require.NoError(t, err)
	require.True(t, exists, "deleting from the copy must not touch the source")
}

// Health checks the backend reports itself healthy.
func Health(t *testing.T, db utxo.Store) {
	status, details, err := db.Health(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.NotEmpty(t, details)
}

// Isolation checks that the store keeps its own copy of every output: changing an
// inserted or returned output does not change what the store holds.
func Isolation(t *testing.T, db utxo.Store) {
	ctx := context.Background()

	inserted := &model.Output{Value: 10, PublicKey: PublicKey}
	require.NoError(t, db.Insert(ctx, Outpoint0, inserted))

	inserted.Value = 1000

	output, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, output.Value, 1e-9)

	output.Value = 2000

	entries, err := db.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 10.0, entries[0].Output.Value, 1e-9)

	entries[0].Output.Value = 3000

	output, err = db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, output.Value, 1e-9)
}
