package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
)

type txKind int

const (
	kindValid txKind = iota
	kindConflicting
	kindOverspend
	kindBadSignature
	kindNegativeOutput
)

const genesisValue = 100

// generator produces random epochs over a pool whose outputs are owned by a fixed key set.
type generator struct {
	random *rand.Rand
	keys   []*bec.PrivateKey
	owners map[string]*bec.PrivateKey
}

func newGenerator(seed int64, nKeys int) *generator {
	g := &generator{
		random: rand.New(rand.NewSource(seed)), // nolint:gosec
		keys:   make([]*bec.PrivateKey, 0, nKeys),
		owners: make(map[string]*bec.PrivateKey, nKeys),
	}

	for i := 0; i < nKeys; i++ {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(seed)+uint64(i)) // nolint:gosec

		keyBytes := sha256.Sum256(b)
		privateKey, publicKey := bec.PrivateKeyFromBytes(keyBytes[:])

		g.keys = append(g.keys, privateKey)
		g.owners[hex.EncodeToString(publicKey.Compressed())] = privateKey
	}

	return g
}

// genesis inserts one output of genesisValue per key.
func (g *generator) genesis(ctx context.Context, store utxo.Store) error {
	txID := chainhash.DoubleHashH([]byte("genesis"))

	for i, key := range g.keys {
		outpoint := model.NewOutpoint(txID, uint32(i)) // nolint:gosec

		if err := store.Insert(ctx, outpoint, &model.Output{Value: genesisValue, PublicKey: key.PubKey()}); err != nil {
			return err
		}
	}

	return nil
}

// epoch builds n candidates spending outputs of the current pool.
func (g *generator) epoch(ctx context.Context, store utxo.Store, n int) ([]*model.Tx, map[txKind]int, error) {
	entries, err := store.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	kinds := make(map[txKind]int)
	txs := make([]*model.Tx, 0, n)

	if len(entries) == 0 {
		return txs, kinds, nil
	}

	var previous *utxo.Entry

	for i := 0; i < n; i++ {
		kind := g.pickKind()
		entry := entries[g.random.Intn(len(entries))]

		if kind == kindConflicting && previous != nil {
			entry = previous
		}

		owner, ok := g.owners[hex.EncodeToString(entry.Output.PublicKey.Compressed())]
		if !ok {
			return nil, nil, errors.NewProcessingError("no key owns %v", entry.Outpoint)
		}

		signer := owner
		if kind == kindBadSignature {
			signer = g.otherKey(owner)
		}

		tx := model.NewTx()
		tx.AddInput(entry.Outpoint.TxID, entry.Outpoint.Index)

		value := entry.Output.Value

		switch kind {
		case kindOverspend:
			tx.AddOutput(value+1+float64(g.random.Intn(10)), g.randomKey().PubKey())
		case kindNegativeOutput:
			tx.AddOutput(-1, g.randomKey().PubKey())
			tx.AddOutput(value/2, g.randomKey().PubKey())
		default:
			fee := value * 0.01 * float64(g.random.Intn(5))
			first := (value - fee) * g.random.Float64()
			tx.AddOutput(first, g.randomKey().PubKey())
			tx.AddOutput(value-fee-first, g.randomKey().PubKey())
		}

		if err = tx.Sign(0, signer); err != nil {
			return nil, nil, err
		}

		kinds[kind]++
		txs = append(txs, tx)
		previous = entry
	}

	return txs, kinds, nil
}

func (g *generator) pickKind() txKind {
	switch r := g.random.Intn(100); {
	case r < 60:
		return kindValid
	case r < 75:
		return kindConflicting
	case r < 85:
		return kindOverspend
	case r < 95:
		return kindBadSignature
	default:
		return kindNegativeOutput
	}
}

func (g *generator) randomKey() *bec.PrivateKey {
	return g.keys[g.random.Intn(len(g.keys))]
}

func (g *generator) otherKey(key *bec.PrivateKey) *bec.PrivateKey {
	for _, k := range g.keys {
		if k != key {
			return k
		}
	}

	// a single key set has no other owner, a fresh key cannot sign for anything in the pool
	fresh, _ := bec.NewPrivateKey()

	return fresh
}

func (k txKind) String() string {
	switch k {
	case kindValid:
		return "valid"
	case kindConflicting:
		return "conflicting"
	case kindOverspend:
		return "overspend"
	case kindBadSignature:
		return "bad_signature"
	case kindNegativeOutput:
		return "negative_output"
	default:
		return "unknown"
	}
}
