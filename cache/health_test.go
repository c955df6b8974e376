package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furechan/tempcache/health"
)

func TestStoreChecker(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(c *Config) { c.MaxAge = time.Hour })
	checker := s.Checker()
	assert.Equal(t, "store:"+DefaultName, checker.Name())

	r := checker.Check(ctx)
	assert.Equal(t, health.StatusHealthy, r.Status, r.Message)
	assert.Equal(t, s.Root(), r.Details["root"])

	it, err := s.ItemForKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, it.Save(ctx, "v"))
	age(t, it.Path(), 2*time.Hour)

	r = checker.Check(ctx)
	assert.Equal(t, health.StatusDegraded, r.Status)
	assert.Equal(t, 1, r.Details["expired"])

	_, err = s.Sweep(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, checker.Check(ctx).Status)

	require.NoError(t, os.RemoveAll(s.Root()))
	r = checker.Check(ctx)
	assert.Equal(t, health.StatusUnhealthy, r.Status)
	assert.Error(t, r.Error)
}

func TestStoreChecker_BreakerOpen(t *testing.T) {
	s := newTestStore(t, func(c *Config) { c.Breaker = BreakerConfig{MaxFailures: 1} })
	s.breaker.record(errors.New("disk full"))

	r := s.Checker().Check(context.Background())
	assert.Equal(t, health.StatusDegraded, r.Status)
	assert.Equal(t, "open", r.Details["breaker"])
}

func TestStoreChecker_Aggregated(t *testing.T) {
	agg := health.NewAggregator()
	agg.Register(newTestStore(t).Checker())
	agg.Register(newTestStore(t, func(c *Config) { c.Name = "second" }).Checker())

	reports := agg.CheckAll(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, health.StatusHealthy, health.Overall(reports))
}
