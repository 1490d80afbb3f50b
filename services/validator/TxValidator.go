/*
Package validator decides which transactions of an epoch are admitted against a utxo pool.

TxValidator answers whether a single transaction is valid against a pool. Validator
owns a private pool and, once per epoch, walks the candidate transactions in a fixed
order, re-validating each against the pool as advanced by the ones already accepted
and committing the valid ones immediately.

A transaction is valid against a pool when:
 1. every outpoint its inputs reference is in the pool
 2. no two of its inputs reference the same outpoint
 3. every input signature verifies against the public key of the output it spends
 4. no output value is negative (NaN and infinities are rejected too)
 5. the values it spends add up to at least the values it creates

Usage:

	v, err := validator.New(ctx, logger, tSettings, genesis)
	accepted, err := v.HandleTxs(ctx, candidates)
	pool := v.UtxoStore()
*/
package validator

import (
	"context"
	"math"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

// SignatureVerifier checks that signature signs message for publicKey.
type SignatureVerifier interface {
	Verify(publicKey *bec.PublicKey, message []byte, signature []byte) bool
}

// ECDSAVerifier verifies DER encoded secp256k1 signatures over the sha256 of the message.
type ECDSAVerifier struct{}

func (ECDSAVerifier) Verify(publicKey *bec.PublicKey, message []byte, signature []byte) bool {
	if publicKey == nil || len(signature) == 0 {
		return false
	}

	sig, err := bec.ParseDERSignature(signature)
	if err != nil {
		return false
	}

	return sig.Verify(chainhash.HashB(message), publicKey)
}

// TxValidator validates single transactions. It never modifies the store it validates against.
type TxValidator struct {
	logger   ulogger.Logger
	verifier SignatureVerifier
}

func NewTxValidator(logger ulogger.Logger, verifier SignatureVerifier) *TxValidator {
	if verifier == nil {
		verifier = ECDSAVerifier{}
	}

	return &TxValidator{
		logger:   logger,
		verifier: verifier,
	}
}

// ValidateTransaction returns nil when tx is valid against store, the coded reason otherwise.
// Errors for which isStorageFailure is true mean the store could not be read and say
// nothing about the transaction.
func (tv *TxValidator) ValidateTransaction(ctx context.Context, tx *model.Tx, store utxo.Store) error {
	if err := checkStructure(tx); err != nil {
		return err
	}

	// 1) every referenced output exists
	spent, err := tv.lookupInputs(ctx, tx, store)
	if err != nil {
		return err
	}

	// 2) no outpoint is spent twice by the same transaction
	seen := make(map[model.Outpoint]int, len(tx.Inputs))

	for i, input := range tx.Inputs {
		outpoint := input.Outpoint()

		if first, ok := seen[outpoint]; ok {
			return errors.NewTxInvalidDoubleSpendError("inputs %d and %d both spend %v", first, i, outpoint)
		}

		seen[outpoint] = i
	}

	// 3) each input is signed by the owner of the output it spends
	for i, input := range tx.Inputs {
		message, err := tx.SignableBytes(i)
		if err != nil {
			return err
		}

		if !tv.verifier.Verify(spent[i].PublicKey, message, input.Signature) {
			return errors.NewTxInvalidSignatureError("signature of input %d does not verify for %v", i, input.Outpoint())
		}
	}

	// 4) output values are real numbers >= 0
	for i, output := range tx.Outputs {
		if math.IsNaN(output.Value) || math.IsInf(output.Value, 0) {
			return errors.NewTxInvalidError("output %d has non finite value %v", i, output.Value)
		}

		if output.Value < 0 {
			return errors.NewTxInvalidError("output %d has negative value %v", i, output.Value)
		}
	}

	// 5) inputs cover outputs
	inputTotal := sumValues(spent)
	outputTotal := tx.TotalOutputValue()

	if inputTotal < outputTotal {
		return errors.NewTxInsufficientInputsError("inputs total %v, outputs total %v", inputTotal, outputTotal)
	}

	return nil
}

// IsValidTx is the boolean form of ValidateTransaction. Storage failures count as invalid.
func (tv *TxValidator) IsValidTx(ctx context.Context, tx *model.Tx, store utxo.Store) bool {
	return tv.ValidateTransaction(ctx, tx, store) == nil
}

// Fee returns the value spent by tx minus the value it creates. Only structure and
// input existence are checked.
func (tv *TxValidator) Fee(ctx context.Context, tx *model.Tx, store utxo.Store) (float64, error) {
	if err := checkStructure(tx); err != nil {
		return 0, err
	}

	spent, err := tv.lookupInputs(ctx, tx, store)
	if err != nil {
		return 0, err
	}

	return sumValues(spent) - tx.TotalOutputValue(), nil
}

func (tv *TxValidator) lookupInputs(ctx context.Context, tx *model.Tx, store utxo.Store) ([]*model.Output, error) {
	spent := make([]*model.Output, len(tx.Inputs))

	for i, input := range tx.Inputs {
		outpoint := input.Outpoint()

		output, err := store.Get(ctx, outpoint)
		if err != nil {
			if errors.Is(err, errors.ErrUtxoNotFound) {
				return nil, errors.NewUtxoNotFoundError("input %d spends unknown output %v", i, outpoint)
			}

			return nil, errors.NewStorageError("failed to look up output %v", outpoint, err)
		}

		spent[i] = output
	}

	return spent, nil
}

func checkStructure(tx *model.Tx) error {
	if tx == nil {
		return errors.NewTxInvalidError("transaction is nil")
	}

	for i, input := range tx.Inputs {
		if input == nil {
			return errors.NewTxInvalidError("input %d is nil", i)
		}
	}

	for i, output := range tx.Outputs {
		if output == nil {
			return errors.NewTxInvalidError("output %d is nil", i)
		}

		if output.PublicKey == nil {
			return errors.NewTxInvalidError("output %d has no public key", i)
		}
	}

	return nil
}

func sumValues(outputs []*model.Output) float64 {
	total := 0.0

	for _, output := range outputs {
		total += output.Value
	}

	return total
}

func isStorageFailure(err error) bool {
	return errors.Is(err, errors.ErrStorageError) || errors.Is(err, errors.ErrStorageUnavailable)
}
