package timeseries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-rca/internal/obsmeta"
)

// HTTPClient samples a Prometheus-style range-query endpoint over a
// POST-JSON request.
type HTTPClient struct {
	baseURL    string
	rangePath  string
	httpClient *http.Client
	registry   *obsmeta.Registry
}

// NewHTTPClient constructs an HTTPClient targeting baseURL+rangePath
// for raw sample queries, reducing query labels via registry.
func NewHTTPClient(baseURL, rangePath string, timeout time.Duration, registry *obsmeta.Registry) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		rangePath:  rangePath,
		httpClient: &http.Client{Timeout: timeout},
		registry:   registry,
	}
}

type rawSample struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

type rangeQueryResponse struct {
	Samples []rawSample `json:"samples"`
}

// Sample implements Client. On metadata-lookup failure or an empty
// result, it returns an all-zero sequence rather than an error.
func (c *HTTPClient) Sample(ctx context.Context, metricID string, labels map[string]string, endTS float64, step, sampleDuration float64) ([]float64, error) {
	numBuckets := int(sampleDuration / step)
	if numBuckets <= 0 {
		return nil, fmt.Errorf("timeseries: invalid step/sampleDuration for %s", metricID)
	}

	reduced := c.reduceLabels(metricID, labels)
	startTS := endTS - sampleDuration

	raw, err := c.fetchRange(ctx, metricID, reduced, startTS, endTS)
	if err != nil || len(raw) == 0 {
		return make([]float64, numBuckets), nil
	}
	return bucketize(raw, endTS, step, numBuckets), nil
}

// reduceLabels keeps only the label keys the registry says identify
// the metric's owning entity; on lookup failure the full label map is
// returned unmodified (a later empty-result fallback still applies).
func (c *HTTPClient) reduceLabels(metricID string, labels map[string]string) map[string]string {
	if c.registry == nil {
		return labels
	}
	entityType, ok := c.registry.EntityTypeForMetric(metricID)
	if !ok {
		return labels
	}
	keys, ok := c.registry.KeysForEntityType(entityType)
	if !ok {
		return labels
	}
	reduced := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := labels[k]; ok {
			reduced[k] = v
		}
	}
	return reduced
}

func (c *HTTPClient) fetchRange(ctx context.Context, metricID string, labels map[string]string, startTS, endTS float64) ([]rawSample, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("timeseries: base URL not configured")
	}
	payload := map[string]interface{}{
		"metric_id": metricID,
		"labels":    labels,
		"start":     startTS,
		"end":       endTS,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal range query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolvePath(c.rangePath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timeseries range query returned %s", resp.Status)
	}
	var out rangeQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode range query response: %w", err)
	}
	return out.Samples, nil
}

func (c *HTTPClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// bucketize places each raw sample into the earliest bucket whose
// endpoint lies at or after the sample timestamp, provided the sample
// is no older than two step intervals before that bucket's endpoint.
// Bucket i covers the interval ending at endTS-(numBuckets-1-i)*step.
// Empty buckets are filled with 0.0.
func bucketize(raw []rawSample, endTS, step float64, numBuckets int) []float64 {
	out := make([]float64, numBuckets)

	bucketEnd := func(i int) float64 {
		return endTS - float64(numBuckets-1-i)*step
	}

	for _, s := range raw {
		for i := 0; i < numBuckets; i++ {
			end := bucketEnd(i)
			if end >= s.Timestamp && s.Timestamp >= end-2*step {
				out[i] = s.Value
				break
			}
		}
	}
	return out
}
