package factory

import (
	"context"
	"net/url"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/stores/utxo/memory"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

func init() {
	availableDatabases["memory"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ *url.URL) (utxo.Store, error) {
		return memory.New(logger), nil
	}

	availableDatabases["swiss"] = func(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, _ *url.URL) (utxo.Store, error) {
		size, err := safeconversion.IntToUint32(tSettings.UtxoStore.SwissMapSize)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid utxostore_swissMapSize %d", tSettings.UtxoStore.SwissMapSize, err)
		}

		return memory.NewSwissMap(logger, size), nil
	}
}
