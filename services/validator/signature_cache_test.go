package validator

import (
	"testing"
	"time"

	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/txhandler/model"
	"github.com/bsv-blockchain/txhandler/test/utils/transactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingVerifier struct {
	calls int
}

func (c *countingVerifier) Verify(publicKey *bec.PublicKey, message []byte, signature []byte) bool {
	c.calls++
	return ECDSAVerifier{}.Verify(publicKey, message, signature)
}

func TestCachingVerifier(t *testing.T) {
	tx := transactions.Create(t,
		transactions.WithInput(model.Outpoint{}, alice),
		transactions.WithOutput(1, bob),
	)

	message, err := tx.SignableBytes(0)
	require.NoError(t, err)

	signature := tx.Inputs[0].Signature

	t.Run("caches both outcomes", func(t *testing.T) {
		counter := &countingVerifier{}
		cv := NewCachingVerifier(counter, time.Minute, 100)

		assert.True(t, cv.Verify(alice.PublicKey, message, signature))
		assert.True(t, cv.Verify(alice.PublicKey, message, signature))
		assert.Equal(t, 1, counter.calls)

		assert.False(t, cv.Verify(bob.PublicKey, message, signature))
		assert.False(t, cv.Verify(bob.PublicKey, message, signature))
		assert.Equal(t, 2, counter.calls)

		assert.Equal(t, 2, cv.Len())
	})

	t.Run("distinguishes messages", func(t *testing.T) {
		counter := &countingVerifier{}
		cv := NewCachingVerifier(counter, time.Minute, 100)

		assert.True(t, cv.Verify(alice.PublicKey, message, signature))
		assert.False(t, cv.Verify(alice.PublicKey, append([]byte{0}, message...), signature))
		assert.Equal(t, 2, counter.calls)
	})

	t.Run("expires", func(t *testing.T) {
		counter := &countingVerifier{}
		cv := NewCachingVerifier(counter, 10*time.Millisecond, 100)

		assert.True(t, cv.Verify(alice.PublicKey, message, signature))
		time.Sleep(20 * time.Millisecond)
		assert.True(t, cv.Verify(alice.PublicKey, message, signature))
		assert.Equal(t, 2, counter.calls)
	})

	t.Run("nil key", func(t *testing.T) {
		counter := &countingVerifier{}
		cv := NewCachingVerifier(counter, time.Minute, 100)

		assert.False(t, cv.Verify(nil, message, signature))
		assert.Equal(t, 0, counter.calls)
	})
}
