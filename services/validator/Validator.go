package validator

import (
	"context"
	"strings"
	"sync"
	"time"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/stores/utxo/factory"
	"github.com/bsv-blockchain/txhandler/tracing"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

// Rejection is a candidate that was not admitted in an epoch and the check it failed.
type Rejection struct {
	Tx     *model.Tx
	Reason error
}

// EpochResult is the outcome of one HandleTxsWithResult call.
type EpochResult struct {
	Epoch    uint64
	Accepted []*model.Tx
	Rejected []Rejection
}

// Validator owns a private utxo pool and advances it one epoch at a time.
type Validator struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	txValidator *TxValidator
	utxoStore   utxo.Store
	policy      Policy
	epoch       uint64
	mu          sync.Mutex
}

// New creates a validator whose pool is a copy of initial. The copy lives in a store
// created from the utxostore setting, so later epochs never touch initial.
func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, initial utxo.Store, opts ...Option) (*Validator, error) {
	initPrometheusMetrics()

	if initial == nil {
		return nil, errors.NewInvalidArgumentError("initial utxo store is nil")
	}

	options := ProcessOptions(opts...)

	policy := options.policy
	if policy == "" {
		var err error

		if policy, err = ParsePolicy(tSettings.Validator.Policy); err != nil {
			return nil, err
		}
	} else if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	utxoStore, err := factory.NewStore(ctx, logger, tSettings, "validator")
	if err != nil {
		return nil, err
	}

	count, err := utxoStore.Count(ctx)
	if err != nil {
		_ = utxoStore.Close(ctx)
		return nil, err
	}

	if count != 0 {
		_ = utxoStore.Close(ctx)
		return nil, errors.NewConfigurationError("validator utxo store %s already holds %d utxos", tSettings.UtxoStore.UtxoStore, count)
	}

	if err = utxo.CopyInto(ctx, utxoStore, initial); err != nil {
		_ = utxoStore.Close(ctx)
		return nil, errors.NewStorageError("failed to copy initial utxo set", err)
	}

	verifier, err := signatureVerifier(options.verifier, tSettings)
	if err != nil {
		_ = utxoStore.Close(ctx)
		return nil, err
	}

	v := &Validator{
		logger:      logger,
		settings:    tSettings,
		txValidator: NewTxValidator(logger, verifier),
		utxoStore:   utxoStore,
		policy:      policy,
	}

	if count, err = utxoStore.Count(ctx); err == nil {
		logger.Infof("[Validator] created with %d utxos, policy %s", count, policy)
	}

	return v, nil
}

// signatureVerifier wraps verifier in a CachingVerifier when the signature cache is configured.
func signatureVerifier(verifier SignatureVerifier, tSettings *settings.Settings) (SignatureVerifier, error) {
	ttl := tSettings.Validator.SignatureCacheTTLSeconds
	if ttl <= 0 || tSettings.Validator.SignatureCacheSize == 0 {
		return verifier, nil
	}

	capacity, err := safeconversion.IntToUint64(tSettings.Validator.SignatureCacheSize)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid validator_signatureCacheSize %d", tSettings.Validator.SignatureCacheSize, err)
	}

	return NewCachingVerifier(verifier, time.Duration(ttl)*time.Second, capacity), nil
}

func (v *Validator) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	prometheusHealth.Inc()

	return v.utxoStore.Health(ctx, checkLiveness)
}

// UtxoStore returns the pool as advanced by every epoch handled so far.
func (v *Validator) UtxoStore() utxo.Store {
	return v.utxoStore
}

// Epoch returns the number of completed epochs.
func (v *Validator) Epoch() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.epoch
}

func (v *Validator) Policy() Policy {
	return v.policy
}

// ValidateTx validates tx against the current pool without changing it.
func (v *Validator) ValidateTx(ctx context.Context, tx *model.Tx) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.txValidator.ValidateTransaction(ctx, tx, v.utxoStore)
}

func (v *Validator) IsValidTx(ctx context.Context, tx *model.Tx) bool {
	return v.ValidateTx(ctx, tx) == nil
}

// HandleTxs runs one epoch and returns the accepted transactions in the order
// they were committed. Rejected candidates are simply absent.
func (v *Validator) HandleTxs(ctx context.Context, possibleTxs []*model.Tx) ([]*model.Tx, error) {
	result, err := v.HandleTxsWithResult(ctx, possibleTxs)
	if result == nil {
		return nil, err
	}

	return result.Accepted, err
}

// HandleTxsWithResult runs one epoch. Each candidate is tried once, in policy order,
// against the pool as left by the candidates accepted before it, and committed as
// soon as it is found valid.
//
// The returned error is only set when the epoch could not be completed: the context
// was cancelled or the store failed. Whatever was committed before that stays
// committed and is reported in the result.
func (v *Validator) HandleTxsWithResult(ctx context.Context, possibleTxs []*model.Tx) (result *EpochResult, err error) {
	ctx, span, endSpan := tracing.StartTracing(ctx, "Validator:HandleTxs",
		tracing.WithHistogram(prometheusHandleTxs),
		tracing.WithTag("policy", string(v.policy)),
		tracing.WithLogMessage(v.logger, "[HandleTxs] epoch with %d candidates", len(possibleTxs)),
	)

	defer func() {
		if err != nil {
			span.RecordError(err)
		}

		endSpan()
	}()

	v.mu.Lock()
	defer v.mu.Unlock()

	span.SetIntTag("candidates", len(possibleTxs))
	prometheusHandleTxsCandidates.Observe(float64(len(possibleTxs)))

	result = &EpochResult{
		Epoch:    v.epoch + 1,
		Accepted: make([]*model.Tx, 0, len(possibleTxs)),
	}

	candidates, err := v.resolutionOrder(ctx, possibleTxs)
	if err != nil {
		return result, err
	}

	for _, tx := range candidates {
		if ctx.Err() != nil {
			return result, errors.NewContextCanceledError("[HandleTxs] epoch %d cancelled after %d accepted", result.Epoch, len(result.Accepted), ctx.Err())
		}

		validateStart := time.Now()
		err = v.txValidator.ValidateTransaction(ctx, tx, v.utxoStore)
		prometheusValidateTransaction.Observe(time.Since(validateStart).Seconds())

		if err != nil {
			if isStorageFailure(err) {
				return result, err
			}

			reason := RejectReason(err)
			prometheusRejectedTransactions.WithLabelValues(reason).Inc()

			if v.settings.Validator.VerboseDebug {
				v.logger.Debugf("[HandleTxs] epoch %d rejected %s: %v", result.Epoch, tx.TxID(), err)
			}

			result.Rejected = append(result.Rejected, Rejection{Tx: tx, Reason: err})

			continue
		}

		if err = v.commit(ctx, tx); err != nil {
			return result, err
		}

		prometheusAcceptedTransactions.Inc()

		result.Accepted = append(result.Accepted, tx)
	}

	v.epoch = result.Epoch
	prometheusEpochs.Inc()
	span.SetIntTag("accepted", len(result.Accepted))

	v.logger.Infof("[HandleTxs] epoch %d: %d candidates, %d accepted, %d rejected", result.Epoch, len(possibleTxs), len(result.Accepted), len(result.Rejected))

	return result, nil
}

// commit removes the outputs tx spends from the pool and adds the ones it creates.
// A store failure part way leaves the pool partially updated.
func (v *Validator) commit(ctx context.Context, tx *model.Tx) error {
	txHash := tx.TxIDChainHash()

	for _, outpoint := range tx.InputOutpoints() {
		if err := v.utxoStore.Delete(ctx, outpoint); err != nil {
			return errors.NewStorageError("[HandleTxs] failed to spend %v for %s", outpoint, txHash, err)
		}
	}

	for i, output := range tx.Outputs {
		outpoint := model.NewOutpoint(*txHash, uint32(i)) // nolint:gosec

		if err := v.utxoStore.Insert(ctx, outpoint, &model.Output{Value: output.Value, PublicKey: output.PublicKey}); err != nil {
			return errors.NewStorageError("[HandleTxs] failed to create %v", outpoint, err)
		}
	}

	return nil
}

// Close releases the private pool.
func (v *Validator) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.utxoStore.Close(ctx)
}

// RejectReason returns the lower case error code of a rejection, used as the metric label.
func RejectReason(err error) string {
	var uErr *errors.Error
	if errors.As(err, &uErr) {
		return strings.ToLower(uErr.Code().String())
	}

	return "unknown"
}
