// Package logger wraps a utxo.Store and logs every call, its result and the call site.
package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/stores/utxo"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

type Store struct {
	logger ulogger.Logger
	store  utxo.Store
}

func New(_ context.Context, logger ulogger.Logger, store utxo.Store) utxo.Store {
	return &Store{
		logger: logger,
		store:  store,
	}
}

func caller() string {
	var callers []string

	depth := 3

	for i := 0; i < depth; i++ {
		pc, file, line, ok := runtime.Caller(2 + i)
		if !ok {
			break
		}

		// keep the last two path elements, the rest is the build machine's GOPATH
		folders := strings.Split(file, string(filepath.Separator))
		if len(folders) > 2 {
			folders = folders[len(folders)-2:]
		}

		file = filepath.Join(folders...)

		funcName := runtime.FuncForPC(pc).Name()
		funcPaths := strings.Split(funcName, "/")
		funcName = funcPaths[len(funcPaths)-1]

		callers = append(callers, fmt.Sprintf("called from %s: %s:%d", funcName, file, line))
	}

	return strings.Join(callers, ",")
}

func (s *Store) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	status, details, err := s.store.Health(ctx, checkLiveness)
	s.logger.Debugf("[UTXOStore][logger][Health] status %d details %s err %v : %s", status, details, err, caller())

	return status, details, err
}

func (s *Store) Exists(ctx context.Context, outpoint model.Outpoint) (bool, error) {
	exists, err := s.store.Exists(ctx, outpoint)
	s.logger.Debugf("[UTXOStore][logger][Exists] outpoint %s exists %t err %v : %s", outpoint, exists, err, caller())

	return exists, err
}

func (s *Store) Get(ctx context.Context, outpoint model.Outpoint) (*model.Output, error) {
	output, err := s.store.Get(ctx, outpoint)
	s.logger.Debugf("[UTXOStore][logger][Get] outpoint %s output %s err %v : %s", outpoint, describeOutput(output), err, caller())

	return output, err
}

func (s *Store) Insert(ctx context.Context, outpoint model.Outpoint, output *model.Output) error {
	err := s.store.Insert(ctx, outpoint, output)
	s.logger.Debugf("[UTXOStore][logger][Insert] outpoint %s output %s err %v : %s", outpoint, describeOutput(output), err, caller())

	return err
}

func (s *Store) Delete(ctx context.Context, outpoint model.Outpoint) error {
	err := s.store.Delete(ctx, outpoint)
	s.logger.Debugf("[UTXOStore][logger][Delete] outpoint %s err %v : %s", outpoint, err, caller())

	return err
}

func (s *Store) GetAll(ctx context.Context) ([]*utxo.Entry, error) {
	entries, err := s.store.GetAll(ctx)
	s.logger.Debugf("[UTXOStore][logger][GetAll] %d entries err %v : %s", len(entries), err, caller())

	return entries, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	s.logger.Debugf("[UTXOStore][logger][Count] %d err %v : %s", count, err, caller())

	return count, err
}

func (s *Store) Close(ctx context.Context) error {
	err := s.store.Close(ctx)
	s.logger.Debugf("[UTXOStore][logger][Close] err %v : %s", err, caller())

	return err
}

func describeOutput(output *model.Output) string {
	if output == nil {
		return "<nil>"
	}

	if output.PublicKey == nil {
		return fmt.Sprintf("{Value %v, PublicKey <nil>}", output.Value)
	}

	return fmt.Sprintf("{Value %v, PublicKey %x}", output.Value, output.PublicKey.Compressed())
}
