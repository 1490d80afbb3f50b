package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/ulogger"
	"github.com/dolthub/swiss"
)

// SwissMap is a utxo.Store backed by a swiss table, which uses a lot less memory
// than the standard map for large pools.
type SwissMap struct {
	logger ulogger.Logger
	mu     sync.RWMutex
	m      *swiss.Map[model.Outpoint, *model.Output]
}

func NewSwissMap(logger ulogger.Logger, size uint32) *SwissMap {
	if size == 0 {
		size = 1024
	}

	return &SwissMap{
		logger: logger,
		m:      swiss.NewMap[model.Outpoint, *model.Output](size),
	}
}

func (s *SwissMap) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "SwissMap Store available", nil
}

func (s *SwissMap) Exists(_ context.Context, outpoint model.Outpoint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.m.Has(outpoint), nil
}

func (s *SwissMap) Get(_ context.Context, outpoint model.Outpoint) (*model.Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if output, ok := s.m.Get(outpoint); ok {
		return output.Clone(), nil
	}

	return nil, errors.NewUtxoNotFoundError("%v not found", outpoint)
}

func (s *SwissMap) Insert(_ context.Context, outpoint model.Outpoint, output *model.Output) error {
	if output == nil {
		return errors.NewInvalidArgumentError("output for %v is nil", outpoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.Put(outpoint, output.Clone())

	return nil
}

func (s *SwissMap) Delete(_ context.Context, outpoint model.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.m.Delete(outpoint) {
		return errors.NewUtxoNotFoundError("%v not found", outpoint)
	}

	return nil
}

func (s *SwissMap) GetAll(_ context.Context) ([]*utxo.Entry, error) {
	s.mu.RLock()

	entries := make([]*utxo.Entry, 0, s.m.Count())

	s.m.Iter(func(outpoint model.Outpoint, output *model.Output) bool {
		entries = append(entries, &utxo.Entry{Outpoint: outpoint, Output: output.Clone()})
		return false
	})

	s.mu.RUnlock()

	utxo.SortEntries(entries)

	return entries, nil
}

func (s *SwissMap) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.m.Count(), nil
}

func (s *SwissMap) Close(_ context.Context) error {
	return nil
}
