package cache

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...func(*Config)) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := Open(cfg)
	require.NoError(t, err)
	return s
}

// age sets the item's modification time to d before now.
func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	mtime := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
