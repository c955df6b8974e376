package cache

import (
	"context"
	"fmt"
	"os"

	"github.com/furechan/tempcache/health"
)

// Checker returns a health check for the store. The store is unhealthy when
// its root is missing or not writable, and degraded while the I/O breaker is
// open or expired items are waiting for a sweep.
func (s *Store) Checker() health.Checker {
	return health.NewCheckerFunc("store:"+s.name, s.checkHealth)
}

func (s *Store) checkHealth(_ context.Context) health.Result {
	details := map[string]any{
		"root":    s.root,
		"max_age": s.policy.MaxAge.String(),
		"breaker": s.breaker.State().String(),
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return health.Unhealthy("store root is missing", err).WithDetails(details)
	}
	if !info.IsDir() {
		return health.Unhealthy("store root is not a directory", nil).WithDetails(details)
	}

	tmp, err := os.CreateTemp(s.root, partialPattern)
	if err != nil {
		return health.Unhealthy("store root is not writable", err).WithDetails(details)
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())

	st, err := s.Stats()
	if err != nil {
		return health.Unhealthy("store root is not readable", err).WithDetails(details)
	}
	details["items"] = st.Items
	details["bytes"] = st.Bytes
	details["expired"] = st.Expired

	if s.breaker.State() != BreakerClosed {
		return health.Degraded("io breaker is open").WithDetails(details)
	}
	if st.Expired > 0 {
		return health.Degraded(fmt.Sprintf("%d expired items awaiting sweep", st.Expired)).WithDetails(details)
	}
	return health.Healthy("store is writable").WithDetails(details)
}
