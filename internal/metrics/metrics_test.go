package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncStreamAttemptLabelsResult(t *testing.T) {
	before := testutil.ToFloat64(streamAttemptsTotal.WithLabelValues("primary", "container", "failure"))
	IncStreamAttempt("primary", "container", errors.New("boom"))
	after := testutil.ToFloat64(streamAttemptsTotal.WithLabelValues("primary", "container", "failure"))
	assert.Equal(t, before+1, after)
}

func TestIncTrackCache(t *testing.T) {
	hits := testutil.ToFloat64(trackCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(trackCacheTotal.WithLabelValues("miss"))
	IncTrackCache(true)
	IncTrackCache(false)
	IncTrackCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(trackCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(trackCacheTotal.WithLabelValues("miss")))
}

func TestFallbackCounters(t *testing.T) {
	fb := testutil.ToFloat64(fallbacksTotal)
	ex := testutil.ToFloat64(retryExhaustedTotal)
	IncFallback()
	IncRetryExhausted()
	assert.Equal(t, fb+1, testutil.ToFloat64(fallbacksTotal))
	assert.Equal(t, ex+1, testutil.ToFloat64(retryExhaustedTotal))
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest("GET", "/v1/loadtracks", 200, 0)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestDuration, "ttaudio_http_request_duration_seconds"), 1)
}
