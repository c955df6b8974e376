// Package health reports the health of cache stores.
//
// A Checker reports a Result with one of three statuses: Healthy, Degraded,
// or Unhealthy. An Aggregator runs several checkers under one timeout and
// folds their results into an overall status:
//
//	agg := health.NewAggregator()
//	agg.Register(store.Checker())
//	reports := agg.CheckAll(ctx)
//	overall := health.Overall(reports)
package health
