// Package metrics holds the Prometheus instrumentation for resolution and playback.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ttaudio_page_fetch_duration_seconds",
		Help:    "Time taken to fetch a video page",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13},
	}, []string{"result"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttaudio_resolutions_total",
		Help: "Total number of playback url resolutions by result",
	}, []string{"result"})

	streamAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttaudio_stream_attempts_total",
		Help: "Total number of stream open+decode attempts by candidate, strategy and result",
	}, []string{"candidate", "strategy", "result"})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttaudio_stream_fallbacks_total",
		Help: "Total number of sessions that switched to the fallback candidate",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttaudio_stream_retry_exhausted_total",
		Help: "Total number of sessions that failed on both candidates",
	})

	trackCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttaudio_track_cache_total",
		Help: "Track metadata cache lookups by result",
	}, []string{"result"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ttaudio_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ObservePageFetch records a page fetch and its outcome.
func ObservePageFetch(d time.Duration, err error) {
	pageFetchDuration.WithLabelValues(resultLabel(err)).Observe(d.Seconds())
}

// IncResolution records a resolution outcome.
func IncResolution(err error) {
	resolutionsTotal.WithLabelValues(resultLabel(err)).Inc()
}

// IncStreamAttempt records one stream attempt.
func IncStreamAttempt(candidate, strategy string, err error) {
	streamAttemptsTotal.WithLabelValues(candidate, strategy, resultLabel(err)).Inc()
}

// IncFallback records a switch to the fallback candidate.
func IncFallback() {
	fallbacksTotal.Inc()
}

// IncRetryExhausted records a session that failed on both candidates.
func IncRetryExhausted() {
	retryExhaustedTotal.Inc()
}

// IncTrackCache records a track cache lookup.
func IncTrackCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	trackCacheTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records a served request. path must be a route pattern.
func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}
