// Package transactions builds signed model.Tx values and seeded utxo pools for tests.
package transactions

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/stretchr/testify/require"
)

// Key is a key pair owning outputs in tests.
type Key struct {
	PrivateKey *bec.PrivateKey
	PublicKey  *bec.PublicKey
}

// NewKey returns a key pair derived from seed, the same seed always gives the same key.
func NewKey(seed string) *Key {
	b := sha256.Sum256([]byte(seed))
	privateKey, publicKey := bec.PrivateKeyFromBytes(b[:])

	return &Key{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
	}
}

type txInput struct {
	outpoint model.Outpoint
	signer   *bec.PrivateKey
}

type txOptions struct {
	inputs  []txInput
	outputs []*model.Output
}

type TxOption func(*txOptions)

// WithInput spends outpoint, signed by signer. A nil signer leaves the input unsigned.
func WithInput(outpoint model.Outpoint, signer *Key) TxOption {
	return func(o *txOptions) {
		input := txInput{outpoint: outpoint}
		if signer != nil {
			input.signer = signer.PrivateKey
		}

		o.inputs = append(o.inputs, input)
	}
}

// WithOutput creates an output of value locked to owner.
func WithOutput(value float64, owner *Key) TxOption {
	return func(o *txOptions) {
		o.outputs = append(o.outputs, &model.Output{Value: value, PublicKey: owner.PublicKey})
	}
}

// Create builds the transaction and signs every input that has a signer.
func Create(t *testing.T, opts ...TxOption) *model.Tx {
	t.Helper()

	options := &txOptions{}
	for _, opt := range opts {
		opt(options)
	}

	tx := model.NewTx()

	for _, input := range options.inputs {
		tx.AddInput(input.outpoint.TxID, input.outpoint.Index)
	}

	for _, output := range options.outputs {
		tx.AddOutput(output.Value, output.PublicKey)
	}

	for i, input := range options.inputs {
		if input.signer != nil {
			require.NoError(t, tx.Sign(i, input.signer))
		}
	}

	return tx
}

// Outpoint returns output index of tx.
func Outpoint(tx *model.Tx, index uint32) model.Outpoint {
	return model.NewOutpoint(*tx.TxIDChainHash(), index)
}

// Seed inserts one output per value, all owned by owner, under a synthetic txid derived
// from name, and returns their outpoints in value order.
func Seed(t *testing.T, store utxo.Store, name string, owner *Key, values ...float64) []model.Outpoint {
	t.Helper()

	txID := chainhash.DoubleHashH([]byte(name))
	outpoints := make([]model.Outpoint, 0, len(values))

	for i, value := range values {
		outpoint := model.NewOutpoint(txID, uint32(i)) // nolint:gosec
		require.NoError(t, store.Insert(context.Background(), outpoint, &model.Output{Value: value, PublicKey: owner.PublicKey}))

		outpoints = append(outpoints, outpoint)
	}

	return outpoints
}

// Snapshot returns the content of store as a map for comparisons.
func Snapshot(t *testing.T, store utxo.Store) map[model.Outpoint]float64 {
	t.Helper()

	entries, err := store.GetAll(context.Background())
	require.NoError(t, err)

	snapshot := make(map[model.Outpoint]float64, len(entries))
	for _, entry := range entries {
		snapshot[entry.Outpoint] = entry.Output.Value
	}

	return snapshot
}
