package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

// Memory is a utxo.Store backed by a Go map.
type Memory struct {
	logger  ulogger.Logger
	utxos   map[model.Outpoint]*model.Output
	utxosMu sync.RWMutex
}

func New(logger ulogger.Logger) *Memory {
	return &Memory{
		logger: logger,
		utxos:  make(map[model.Outpoint]*model.Output),
	}
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "Memory Store available", nil
}

func (m *Memory) Exists(_ context.Context, outpoint model.Outpoint) (bool, error) {
	m.utxosMu.RLock()
	defer m.utxosMu.RUnlock()

	_, ok := m.utxos[outpoint]

	return ok, nil
}

func (m *Memory) Get(_ context.Context, outpoint model.Outpoint) (*model.Output, error) {
	m.utxosMu.RLock()
	defer m.utxosMu.RUnlock()

	if output, ok := m.utxos[outpoint]; ok {
		return output.Clone(), nil
	}

	return nil, errors.NewUtxoNotFoundError("%v not found", outpoint)
}

func (m *Memory) Insert(_ context.Context, outpoint model.Outpoint, output *model.Output) error {
	if output == nil {
		return errors.NewInvalidArgumentError("output for %v is nil", outpoint)
	}

	m.utxosMu.Lock()
	defer m.utxosMu.Unlock()

	m.utxos[outpoint] = output.Clone()

	return nil
}

func (m *Memory) Delete(_ context.Context, outpoint model.Outpoint) error {
	m.utxosMu.Lock()
	defer m.utxosMu.Unlock()

	if _, ok := m.utxos[outpoint]; !ok {
		return errors.NewUtxoNotFoundError("%v not found", outpoint)
	}

	delete(m.utxos, outpoint)

	return nil
}

func (m *Memory) GetAll(_ context.Context) ([]*utxo.Entry, error) {
	m.utxosMu.RLock()

	entries := make([]*utxo.Entry, 0, len(m.utxos))
	for outpoint, output := range m.utxos {
		entries = append(entries, &utxo.Entry{Outpoint: outpoint, Output: output.Clone()})
	}

	m.utxosMu.RUnlock()

	utxo.SortEntries(entries)

	return entries, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.utxosMu.RLock()
	defer m.utxosMu.RUnlock()

	return len(m.utxos), nil
}

func (m *Memory) Close(_ context.Context) error {
	return nil
}
