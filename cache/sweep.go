package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/furechan/tempcache/observe"
)

// SweepResult is delivered by SweepAsync.
type SweepResult struct {
	Removed int
	Err     error
}

// Stats summarizes the items of a store.
type Stats struct {
	Items   int
	Bytes   int64
	Expired int
	Oldest  time.Time
	Newest  time.Time
}

type entry struct {
	path string
	info fs.FileInfo
}

// scan lists the regular files matching the store's naming pattern. Files
// that vanish while listing are skipped; a missing root has no items.
func (s *Store) scan() ([]entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: list %s: %w", s.root, err)
	}

	entries := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() || !s.owns(d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: filepath.Join(s.root, d.Name()), info: info})
	}
	return entries, nil
}

// Items returns every item file of the store, expired or not.
func (s *Store) Items() ([]*Item, error) {
	entries, err := s.scan()
	if err != nil {
		return nil, err
	}
	items := make([]*Item, len(entries))
	for i, e := range entries {
		items[i] = s.item(e.path)
	}
	return items, nil
}

// Stats counts the store's items, their total size and how many are expired.
func (s *Store) Stats() (Stats, error) {
	entries, err := s.scan()
	if err != nil {
		return Stats{}, err
	}
	expiry := s.Expiry()

	var st Stats
	for _, e := range entries {
		mtime := e.info.ModTime()
		st.Items++
		st.Bytes += e.info.Size()
		if mtime.Before(expiry) {
			st.Expired++
		}
		if st.Oldest.IsZero() || mtime.Before(st.Oldest) {
			st.Oldest = mtime
		}
		if mtime.After(st.Newest) {
			st.Newest = mtime
		}
	}
	return st, nil
}

// Sweep deletes expired items, or every item when purgeAll is set, and
// returns how many were removed. Items deleted concurrently by someone else
// are neither counted nor errors. Failed deletions are joined into the
// returned error; the count still reflects what was removed.
func (s *Store) Sweep(ctx context.Context, purgeAll bool) (int, error) {
	var removed int
	err := s.mw.Run(ctx, s.meta, "sweep", func(ctx context.Context) (observe.Outcome, error) {
		entries, err := s.scan()
		if err != nil {
			return observe.OutcomeError, err
		}

		expiry := s.Expiry()
		var errs []error
		for _, e := range entries {
			if !purgeAll && !e.info.ModTime().Before(expiry) {
				continue
			}
			if err := os.Remove(e.path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			removed++
		}
		errs = append(errs, s.removePartials(expiry)...)

		s.mw.Swept(ctx, s.meta, removed)
		s.log.Debug(ctx, "swept items",
			observe.Field{Key: "removed", Value: removed},
			observe.Field{Key: "all", Value: purgeAll},
		)
		return observe.OutcomeDone, errors.Join(errs...)
	})
	return removed, err
}

// removePartials deletes in-flight write files left behind by writers that
// died before renaming. Only files older than expiry are touched, so live
// writes of any store sharing the directory survive. They are not counted.
func (s *Store) removePartials(expiry time.Time) []error {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}

	var errs []error
	for _, d := range dirents {
		if !d.Type().IsRegular() || !strings.HasPrefix(d.Name(), partialPrefix) {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(expiry) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, d.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errs
}

// SweepAsync runs Sweep in a background goroutine and delivers its result on
// the returned channel. Only one asynchronous sweep runs per store at a time;
// a second request receives ErrSweepInProgress.
func (s *Store) SweepAsync(ctx context.Context, purgeAll bool) <-chan SweepResult {
	ch := make(chan SweepResult, 1)
	if !s.sweeping.CompareAndSwap(false, true) {
		ch <- SweepResult{Err: ErrSweepInProgress}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)

		n, err := s.Sweep(ctx, purgeAll)
		s.sweeping.Store(false)
		ch <- SweepResult{Removed: n, Err: err}
	}()
	return ch
}
