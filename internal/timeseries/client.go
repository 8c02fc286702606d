// Package timeseries implements the time-series client: fixed-length,
// gap-filled metric sampling over a POST-JSON range-query API.
package timeseries

import "context"

// Client is the narrow interface the correlation engine depends on.
type Client interface {
	// Sample returns a fixed-length sequence of length
	// sampleDuration/step, covering [endTS-sampleDuration, endTS],
	// sampled every step seconds. Labels are reduced internally to the
	// subset identifying the metric's owning entity before the raw
	// range query is issued.
	Sample(ctx context.Context, metricID string, labels map[string]string, endTS float64, step, sampleDuration float64) ([]float64, error)
}
