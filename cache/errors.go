package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrConfiguration indicates an invalid Config: non-positive max age,
	// unusable root, or an invalid name or prefix.
	ErrConfiguration = errors.New("cache: invalid configuration")

	// ErrSerialization indicates a key or value could not be encoded.
	ErrSerialization = errors.New("cache: serialization failed")

	// ErrDeserialization indicates stored content could not be decoded.
	ErrDeserialization = errors.New("cache: deserialization failed")

	// ErrNotFound indicates an explicit load of an item that does not exist.
	ErrNotFound = errors.New("cache: item not found")

	// ErrInvalidDigest indicates a digest that is not lowercase hex.
	ErrInvalidDigest = errors.New("cache: digest is invalid")

	// ErrInvalidSignature indicates a malformed function signature.
	ErrInvalidSignature = errors.New("cache: signature is invalid")

	// ErrInvalidCall indicates arguments that do not bind to a signature.
	ErrInvalidCall = errors.New("cache: arguments do not match signature")

	// ErrNilStore indicates a nil *Store was used.
	ErrNilStore = errors.New("cache: store is nil")

	// ErrSweepInProgress indicates an async sweep is already running.
	ErrSweepInProgress = errors.New("cache: sweep already in progress")
)
