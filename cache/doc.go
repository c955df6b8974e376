// Package cache memoizes expensive computations in files.
//
// A Store owns one flat directory, by default under os.TempDir. Each cached
// value lives in its own file named after a digest of the call that produced
// it, and the file's modification time is its expiry clock: an item older
// than the store's MaxAge is deleted the next time it is resolved, or by
// Sweep.
//
// GetOrCompute is the main entry point. It fails open: a broken or
// unreadable cache never fails the caller, it only costs a recompute.
//
//	store, err := cache.Open(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	v, err := cache.GetOrCompute(ctx, store, key, func(ctx context.Context) (Report, error) {
//		return buildReport(ctx, key)
//	})
//
// Keys are digested from a canonical encoding, so equal keys map to the same
// file across processes. Wrap and Memoize bind function arguments against a
// declared Signature first, which makes f(1) and f(x=1) share a file.
package cache
