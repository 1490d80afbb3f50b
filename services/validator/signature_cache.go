package validator

import (
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	bec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/jellydator/ttlcache/v3"
)

// CachingVerifier remembers the outcome of signature checks. Candidates rejected in
// one epoch are often resubmitted in the next, only their signatures are re-checked
// from the cache.
type CachingVerifier struct {
	verifier SignatureVerifier
	cache    *ttlcache.Cache[chainhash.Hash, bool]
}

func NewCachingVerifier(verifier SignatureVerifier, ttl time.Duration, capacity uint64) *CachingVerifier {
	if verifier == nil {
		verifier = ECDSAVerifier{}
	}

	return &CachingVerifier{
		verifier: verifier,
		cache: ttlcache.New[chainhash.Hash, bool](
			ttlcache.WithTTL[chainhash.Hash, bool](ttl),
			ttlcache.WithCapacity[chainhash.Hash, bool](capacity),
			ttlcache.WithDisableTouchOnHit[chainhash.Hash, bool](),
		),
	}
}

func (cv *CachingVerifier) Verify(publicKey *bec.PublicKey, message []byte, signature []byte) bool {
	if publicKey == nil {
		return false
	}

	key := cacheKey(publicKey, message, signature)

	if item := cv.cache.Get(key); item != nil {
		return item.Value()
	}

	valid := cv.verifier.Verify(publicKey, message, signature)
	cv.cache.Set(key, valid, ttlcache.DefaultTTL)

	return valid
}

// Len returns the number of cached results.
func (cv *CachingVerifier) Len() int {
	return cv.cache.Len()
}

func cacheKey(publicKey *bec.PublicKey, message []byte, signature []byte) chainhash.Hash {
	pub := publicKey.Compressed()

	b := make([]byte, 0, len(pub)+len(message)+len(signature)+2)
	b = append(b, byte(len(pub)))
	b = append(b, pub...)
	b = append(b, byte(len(signature)))
	b = append(b, signature...)
	b = append(b, message...)

	return chainhash.HashH(b)
}
