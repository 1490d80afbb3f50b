package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/stores/utxo/sql"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

func init() {
	newSQLStore := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		store, err := sql.New(ctx, logger, tSettings, storeURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	availableDatabases["postgres"] = newSQLStore
	availableDatabases["sqlite"] = newSQLStore
	availableDatabases["sqlitememory"] = newSQLStore
}
