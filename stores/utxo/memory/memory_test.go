package memory

import (
	"testing"

	"github.com/bsv-blockchain/txhandler/stores/utxo/tests"
	"github.com/bsv-blockchain/txhandler/ulogger"
)

func TestMemory(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		tests.Store(t, New(ulogger.TestLogger{}))
	})

	t.Run("memory overwrite", func(t *testing.T) {
		tests.Overwrite(t, New(ulogger.TestLogger{}))
	})

	t.Run("memory delete", func(t *testing.T) {
		tests.Delete(t, New(ulogger.TestLogger{}))
	})

	t.Run("memory get all", func(t *testing.T) {
		tests.GetAll(t, New(ulogger.TestLogger{}))
	})

	t.Run("memory copy", func(t *testing.T) {
		tests.Copy(t, New(ulogger.TestLogger{}), New(ulogger.TestLogger{}))
	})

	t.Run("memory isolation", func(t *testing.T) {
		tests.Isolation(t, New(ulogger.TestLogger{}))
	})

	t.Run("memory health", func(t *testing.T) {
		tests.Health(t, New(ulogger.TestLogger{}))
	})
}

func TestSwissMap(t *testing.T) {
	t.Run("swiss store", func(t *testing.T) {
		tests.Store(t, NewSwissMap(ulogger.TestLogger{}, 16))
	})

	t.Run("swiss overwrite", func(t *testing.T) {
		tests.Overwrite(t, NewSwissMap(ulogger.TestLogger{}, 16))
	})

	t.Run("swiss delete", func(t *testing.T) {
		tests.Delete(t, NewSwissMap(ulogger.TestLogger{}, 16))
	})

	t.Run("swiss get all", func(t *testing.T) {
		tests.GetAll(t, NewSwissMap(ulogger.TestLogger{}, 0))
	})

	t.Run("swiss copy into memory", func(t *testing.T) {
		tests.Copy(t, NewSwissMap(ulogger.TestLogger{}, 16), New(ulogger.TestLogger{}))
	})

	t.Run("swiss isolation", func(t *testing.T) {
		tests.Isolation(t, NewSwissMap(ulogger.TestLogger{}, 16))
	})

	t.Run("swiss health", func(t *testing.T) {
		tests.Health(t, NewSwissMap(ulogger.TestLogger{}, 16))
	})
}
