// Package leveldb implements utxo.Store on goleveldb.
//
// Supported URLs:
//
//	leveldb:///name        database directory <dataFolder>/name.leveldb
//	leveldbmemory:///      in-memory storage
//
// Keys are the txid followed by the big endian output index so that iteration order
// matches model.Outpoint.Compare. Values are the little endian float64 bits of the
// output value followed by the compressed public key.
package leveldb

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/ulogger"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/storage"
)

const keySize = chainhash.HashSize + 4

type Store struct {
	logger ulogger.Logger
	db     *leveldb.DB
	path   string
}

func New(logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	var (
		db   *leveldb.DB
		path string
		err  error
	)

	switch storeURL.Scheme {
	case "leveldbmemory":
		path = "memory"
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	case "leveldb":
		name := "utxos"
		if len(storeURL.Path) > 1 {
			name = storeURL.Path[1:]
		}

		if err = os.MkdirAll(tSettings.DataFolder, 0755); err != nil {
			return nil, errors.NewStorageError("failed to create data folder %s", tSettings.DataFolder, err)
		}

		path = filepath.Join(tSettings.DataFolder, fmt.Sprintf("%s.leveldb", name))
		db, err = leveldb.OpenFile(path, nil)
	default:
		return nil, errors.NewConfigurationError("unknown leveldb scheme: %s", storeURL.Scheme)
	}

	if err != nil {
		return nil, errors.NewStorageError("failed to open leveldb at %s", path, err)
	}

	logger.Infof("Using leveldb: %s", path)

	return &Store{
		logger: logger,
		db:     db,
		path:   path,
	}, nil
}

func (s *Store) Health(_ context.Context, _ bool) (int, string, error) {
	details := fmt.Sprintf("LevelDB store at %s", s.path)

	if _, err := s.db.GetProperty("leveldb.stats"); err != nil {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("leveldb health check failed", err)
	}

	return http.StatusOK, details, nil
}

func (s *Store) Exists(_ context.Context, outpoint model.Outpoint) (bool, error) {
	exists, err := s.db.Has(encodeKey(outpoint), nil)
	if err != nil {
		return false, errors.NewStorageError("failed to look up %v", outpoint, err)
	}

	return exists, nil
}

func (s *Store) Get(_ context.Context, outpoint model.Outpoint) (*model.Output, error) {
	value, err := s.db.Get(encodeKey(outpoint), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.NewUtxoNotFoundError("%v not found", outpoint)
		}

		return nil, errors.NewStorageError("failed to get %v", outpoint, err)
	}

	return decodeValue(outpoint, value)
}

func (s *Store) Insert(_ context.Context, outpoint model.Outpoint, output *model.Output) error {
	if output == nil {
		return errors.NewInvalidArgumentError("output for %v is nil", outpoint)
	}

	if err := s.db.Put(encodeKey(outpoint), encodeValue(output), nil); err != nil {
		return errors.NewStorageError("failed to insert %v", outpoint, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, outpoint model.Outpoint) error {
	// leveldb deletes of absent keys succeed silently
	exists, err := s.Exists(ctx, outpoint)
	if err != nil {
		return err
	}

	if !exists {
		return errors.NewUtxoNotFoundError("%v not found", outpoint)
	}

	if err = s.db.Delete(encodeKey(outpoint), nil); err != nil {
		return errors.NewStorageError("failed to delete %v", outpoint, err)
	}

	return nil
}

func (s *Store) GetAll(_ context.Context) ([]*utxo.Entry, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	entries := make([]*utxo.Entry, 0)

	for iter.Next() {
		outpoint, err := decodeKey(iter.Key())
		if err != nil {
			return nil, err
		}

		output, err := decodeValue(outpoint, iter.Value())
		if err != nil {
			return nil, err
		}

		entries = append(entries, &utxo.Entry{Outpoint: outpoint, Output: output})
	}

	if err := iter.Error(); err != nil {
		return nil, errors.NewStorageError("failed to iterate leveldb", err)
	}

	return entries, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		count++
	}

	if err := iter.Error(); err != nil {
		return 0, errors.NewStorageError("failed to iterate leveldb", err)
	}

	return count, nil
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func encodeKey(outpoint model.Outpoint) []byte {
	key := make([]byte, keySize)
	copy(key, outpoint.TxID[:])
	binary.BigEndian.PutUint32(key[chainhash.HashSize:], outpoint.Index)

	return key
}

func decodeKey(key []byte) (model.Outpoint, error) {
	if len(key) != keySize {
		return model.Outpoint{}, errors.NewStorageError("invalid leveldb key length %d", len(key))
	}

	var txID chainhash.Hash
	copy(txID[:], key[:chainhash.HashSize])

	return model.NewOutpoint(txID, binary.BigEndian.Uint32(key[chainhash.HashSize:])), nil
}

func encodeValue(output *model.Output) []byte {
	var publicKey []byte
	if output.PublicKey != nil {
		publicKey = output.PublicKey.Compressed()
	}

	value := make([]byte, 8, 8+len(publicKey))
	binary.LittleEndian.PutUint64(value, math.Float64bits(output.Value))

	return append(value, publicKey...)
}

func decodeValue(outpoint model.Outpoint, value []byte) (*model.Output, error) {
	if len(value) < 8 {
		return nil, errors.NewStorageError("invalid leveldb value for %v", outpoint)
	}

	output := &model.Output{Value: math.Float64frombits(binary.LittleEndian.Uint64(value[:8]))}

	if len(value) > 8 {
		publicKey, err := bec.ParsePubKey(value[8:])
		if err != nil {
			return nil, errors.NewStorageError("invalid public key stored for %v", outpoint, err)
		}

		output.PublicKey = publicKey
	}

	return output, nil
}
