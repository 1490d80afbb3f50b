// Package utxo defines the unspent output pool the validator reads and advances.
//
// A Store maps an outpoint to the output it identifies. Every key is an output
// that has been created and not yet spent by an accepted transaction. Stores do
// not serialise callers: the owner of a store is expected to be the only writer
// while an epoch is being applied.
package utxo

import (
	"context"
	"slices"

	"github.com/bsv-blockchain/txhandler/model"
)

// Entry is one (outpoint, output) pair of a store snapshot.
type Entry struct {
	Outpoint model.Outpoint
	Output   *model.Output
}

type Store interface {
	// Health returns an HTTP-style status code and a description of the backend.
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// Exists reports whether outpoint is a current key.
	Exists(ctx context.Context, outpoint model.Outpoint) (bool, error)

	// Get returns the output for outpoint, or an errors.ErrUtxoNotFound error.
	Get(ctx context.Context, outpoint model.Outpoint) (*model.Output, error)

	// Insert adds or overwrites the output stored for outpoint.
	Insert(ctx context.Context, outpoint model.Outpoint, output *model.Output) error

	// Delete removes outpoint, returning an errors.ErrUtxoNotFound error when it is absent.
	Delete(ctx context.Context, outpoint model.Outpoint) error

	// GetAll returns a snapshot of every entry, ordered by outpoint.
	GetAll(ctx context.Context) ([]*Entry, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}

// SortEntries orders entries by outpoint so that enumeration is stable across backends.
func SortEntries(entries []*Entry) {
	slices.SortFunc(entries, func(a, b *Entry) int {
		return a.Outpoint.Compare(b.Outpoint)
	})
}

// CopyInto inserts a copy of every entry of src into dst, so the two stores never share outputs.
func CopyInto(ctx context.Context, dst Store, src Store) error {
	entries, err := src.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err = dst.Insert(ctx, entry.Outpoint, entry.Output.Clone()); err != nil {
			return err
		}
	}

	return nil
}
