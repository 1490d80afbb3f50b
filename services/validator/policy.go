package validator

import (
	"context"
	"math"
	"slices"

	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
)

// Policy is the order in which an epoch's candidates are resolved. The first
// candidate in that order to spend an outpoint wins it.
type Policy string

const (
	// PolicyFirstSeen resolves candidates in the order they were handed in.
	PolicyFirstSeen Policy = "first_seen"

	// PolicyHighestFee resolves candidates by descending fee, as computed against the
	// pool at the start of the epoch. Equal fees keep their input order and candidates
	// whose fee cannot be computed, or is not finite, come last.
	PolicyHighestFee Policy = "highest_fee"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFirstSeen:
		return PolicyFirstSeen, nil
	case PolicyHighestFee:
		return PolicyHighestFee, nil
	default:
		return "", errors.NewConfigurationError("unknown validator policy %q", s)
	}
}

type feeCandidate struct {
	tx     *model.Tx
	fee    float64
	hasFee bool
}

// resolutionOrder returns the non nil candidates in the order the epoch will try them.
func (v *Validator) resolutionOrder(ctx context.Context, txs []*model.Tx) ([]*model.Tx, error) {
	ordered := make([]*model.Tx, 0, len(txs))

	for _, tx := range txs {
		if tx != nil {
			ordered = append(ordered, tx)
		}
	}

	if v.policy != PolicyHighestFee {
		return ordered, nil
	}

	candidates := make([]feeCandidate, len(ordered))

	for i, tx := range ordered {
		fee, err := v.txValidator.Fee(ctx, tx, v.utxoStore)
		if err != nil && isStorageFailure(err) {
			return nil, err
		}

		// NaN compares equal to everything and would break the sort
		candidates[i] = feeCandidate{tx: tx, fee: fee, hasFee: err == nil && !math.IsNaN(fee) && !math.IsInf(fee, 0)}
	}

	slices.SortStableFunc(candidates, func(a, b feeCandidate) int {
		switch {
		case a.hasFee != b.hasFee:
			if a.hasFee {
				return -1
			}

			return 1
		case a.fee > b.fee:
			return -1
		case a.fee < b.fee:
			return 1
		default:
			return 0
		}
	})

	for i, candidate := range candidates {
		ordered[i] = candidate.tx
	}

	return ordered, nil
}
