package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DigestSize is the length in bytes of a DefaultKeyer digest before hex
// encoding.
const DigestSize = 16

// Keyer derives filesystem-safe digests from cache keys.
//
// Contract:
// - Determinism: equal keys must produce the same digest, regardless of map
// iteration order or how arguments were passed.
// - Output: digests must be non-empty lowercase hex.
// - Errors: a key that cannot be encoded must return an error wrapping
// ErrSerialization rather than a degenerate digest.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Digest returns the digest for an arbitrary key value.
	Digest(key any) (string, error)
}

// DefaultKeyer digests keys with SHA-256 over the optional source salt and the
// canonical key encoding, truncated to 128 bits.
type DefaultKeyer struct {
	source string
}

// NewDefaultKeyer creates a keyer salted with source. An empty source adds no
// salt.
func NewDefaultKeyer(source string) *DefaultKeyer {
	return &DefaultKeyer{source: source}
}

// Source returns the configured salt.
func (k *DefaultKeyer) Source() string {
	return k.source
}

// Digest returns 32 lowercase hex characters.
func (k *DefaultKeyer) Digest(key any) (string, error) {
	canonical, err := canonicalize(key)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if k.source != "" {
		// Quoting keeps the salt boundary unambiguous.
		h.Write([]byte(strconv.Quote(k.source)))
	}
	h.Write(canonical)
	sum := h.Sum(nil)

	return hex.EncodeToString(sum[:DigestSize]), nil
}

// DigestCall binds args and kwargs against sig, applies defaults, and
// digests the resulting CallKey.
func DigestCall(k Keyer, sig Signature, args []any, kwargs map[string]any) (string, error) {
	binding, err := sig.Bind(args, kwargs)
	if err != nil {
		return "", err
	}
	return k.Digest(CallKey{Function: sig.Name, Args: binding})
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
