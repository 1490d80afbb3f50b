package validator

import (
	"context"

	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
)

// Interface is the epoch handler as seen by its callers.
type Interface interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	HandleTxs(ctx context.Context, possibleTxs []*model.Tx) ([]*model.Tx, error)
	HandleTxsWithResult(ctx context.Context, possibleTxs []*model.Tx) (*EpochResult, error)
	ValidateTx(ctx context.Context, tx *model.Tx) error
	IsValidTx(ctx context.Context, tx *model.Tx) bool
	UtxoStore() utxo.Store
	Epoch() uint64
	Close(ctx context.Context) error
}

var _ Interface = (*Validator)(nil)
