package httpclient

import (
	"errors"
	"net/http"

	"candlefuse/config"

	"github.com/sony/gobreaker"
)

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Timeout = cfg.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.MaxFailures
	}
	// Client errors are the caller's fault, not the provider's.
	st.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return statusErr.StatusCode < http.StatusInternalServerError
		}
		return false
	}
	return gobreaker.NewCircuitBreaker(st)
}
