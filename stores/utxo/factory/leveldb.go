package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/stores/utxo/leveldb"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

func init() {
	newLevelDBStore := func(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		store, err := leveldb.New(logger, tSettings, storeURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	availableDatabases["leveldb"] = newLevelDBStore
	availableDatabases["leveldbmemory"] = newLevelDBStore
}
