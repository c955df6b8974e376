package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	it, err := s.ItemForKey(ctx, "sample")
	require.NoError(t, err)
	require.False(t, it.Exists())

	in := report{Title: "t", Scores: map[string]float64{"a": 1}, Tags: []string{"x"}}
	require.NoError(t, it.Save(ctx, in))
	assert.True(t, it.Exists())

	var out report
	require.NoError(t, it.Load(ctx, &out))
	assert.Equal(t, in, out)

	size, err := it.Size()
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestItem_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, it.Save(ctx, "first"))
	require.NoError(t, it.Save(ctx, "second"))

	var got string
	require.NoError(t, it.Load(ctx, &got))
	assert.Equal(t, "second", got)
}

func TestItem_SaveLeavesNoPartialFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	it, err := s.ItemForKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, it.Save(ctx, "v"))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(it.Path()), entries[0].Name())
}

func TestItem_SaveRecreatesRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	it, err := s.ItemForKey(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(s.Root()))
	require.NoError(t, it.Save(ctx, "v"))
	assert.True(t, it.Exists())
}

func TestItem_SaveSerializationError(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "k")
	require.NoError(t, err)

	err = it.Save(ctx, func() {})
	assert.ErrorIs(t, err, ErrSerialization)
	assert.False(t, it.Exists())
}

func TestItem_LoadMissing(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "missing")
	require.NoError(t, err)

	var v string
	assert.ErrorIs(t, it.Load(ctx, &v), ErrNotFound)

	_, err = it.ModTime()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = it.Size()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItem_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "k")
	require.NoError(t, err)
	writeFile(t, it.Path(), "garbage")

	var v string
	assert.ErrorIs(t, it.Load(ctx, &v), ErrDeserialization)
}

func TestItem_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, it.Save(ctx, 1))

	require.NoError(t, it.Delete(ctx))
	assert.False(t, it.Exists())
	require.NoError(t, it.Delete(ctx))
}

func TestItem_OlderNewerThan(t *testing.T) {
	ctx := context.Background()
	it, err := newTestStore(t).ItemForKey(ctx, "k")
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, it.OlderThan(now), "missing items are never older")
	assert.False(t, it.NewerThan(now.Add(-time.Hour)), "missing items are never newer")

	require.NoError(t, it.Save(ctx, 1))
	age(t, it.Path(), 10*time.Minute)

	assert.True(t, it.OlderThan(now.Add(-5*time.Minute)))
	assert.False(t, it.OlderThan(now.Add(-15*time.Minute)))
	assert.True(t, it.NewerThan(now.Add(-15*time.Minute)))
	assert.False(t, it.NewerThan(now))

	mtime, err := it.ModTime()
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(-10*time.Minute), mtime, time.Second)
}

func TestItem_ZstdStore(t *testing.T) {
	ctx := context.Background()
	z, err := NewZstdSerializer(nil)
	require.NoError(t, err)
	s := newTestStore(t, func(c *Config) { c.Serializer = z })

	it, err := s.ItemForKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, it.Save(ctx, []int{1, 2, 3}))

	var got []int
	require.NoError(t, it.Load(ctx, &got))
	assert.Equal(t, []int{1, 2, 3}, got)
}
