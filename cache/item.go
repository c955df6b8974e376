package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/furechan/tempcache/observe"
)

// partialPattern names in-flight writes. It never matches the item pattern.
const (
	partialPrefix  = ".partial-"
	partialPattern = partialPrefix + "*"
)

// Item is a reference to one cache file. It holds no content and no
// metadata: existence and age are read from the filesystem on each call, so
// Items for the same path are interchangeable.
type Item struct {
	path  string
	store *Store
}

// Path returns the absolute path of the item file.
func (it *Item) Path() string {
	return it.path
}

// Exists reports whether the item file is present.
func (it *Item) Exists() bool {
	_, err := os.Stat(it.path)
	return err == nil
}

// ModTime returns the item's last write time, or ErrNotFound.
func (it *Item) ModTime() (time.Time, error) {
	info, err := os.Stat(it.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, it.path)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Size returns the stored content length in bytes, or ErrNotFound.
func (it *Item) Size() (int64, error) {
	info, err := os.Stat(it.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, it.path)
		}
		return 0, err
	}
	return info.Size(), nil
}

// OlderThan reports whether the item exists and was last written before t.
func (it *Item) OlderThan(t time.Time) bool {
	mtime, err := it.ModTime()
	return err == nil && mtime.Before(t)
}

// NewerThan reports whether the item exists and was last written after t.
func (it *Item) NewerThan(t time.Time) bool {
	mtime, err := it.ModTime()
	return err == nil && mtime.After(t)
}

// Load decodes the item content into v, which must be a non-nil pointer.
// A missing file yields ErrNotFound and undecodable content yields
// ErrDeserialization.
func (it *Item) Load(ctx context.Context, v any) error {
	it.logger().Debug(ctx, "loading item", observe.Field{Key: "path", Value: it.path})

	data, err := os.ReadFile(it.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, it.path)
		}
		return fmt.Errorf("cache: read %s: %w", it.path, err)
	}
	if err := it.store.serializer.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeserialization, it.path, err)
	}
	return nil
}

// Save encodes v and replaces the item content. The value is written to a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial item. The store root is recreated if it was
// removed.
func (it *Item) Save(ctx context.Context, v any) error {
	it.logger().Debug(ctx, "saving item", observe.Field{Key: "path", Value: it.path})

	data, err := it.store.serializer.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerialization, it.path, err)
	}

	dir := filepath.Dir(it.path)
	if err := os.MkdirAll(dir, it.store.dirPerm); err != nil {
		return fmt.Errorf("cache: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, partialPattern)
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, it.path); err != nil {
		return fmt.Errorf("cache: rename temp file: %w", err)
	}

	success = true
	return nil
}

// Delete removes the item. Deleting a missing item is not an error.
func (it *Item) Delete(ctx context.Context) error {
	it.logger().Debug(ctx, "deleting item", observe.Field{Key: "path", Value: it.path})

	if err := os.Remove(it.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete %s: %w", it.path, err)
	}
	return nil
}

// String returns the item path.
func (it *Item) String() string {
	return it.path
}

func (it *Item) logger() observe.Logger {
	return it.store.log
}
