// Package broker defines the narrow broker interfaces the inference
// loop and metadata refresher depend on, plus an in-process
// channel-backed fake used by tests and local development.
package broker

import (
	"context"

	"github.com/miradorstack/mirador-rca/internal/result"
)

// KPIConsumer yields raw payloads from the abnormal-KPI topic. It has
// the same shape as aggregator.Source so a Channel satisfies both.
type KPIConsumer interface {
	Next(ctx context.Context) (raw []byte, ok bool, err error)
}

// MetricConsumer yields raw payloads from the abnormal-metric topic.
type MetricConsumer interface {
	Next(ctx context.Context) (raw []byte, ok bool, err error)
}

// MetadataConsumer yields raw payloads from the observation-metadata
// topic, consumed only by the metadata refresher.
type MetadataConsumer interface {
	Next(ctx context.Context) (raw []byte, ok bool, err error)
}

// CausePublisher sends one formatted cause envelope to the inference
// topic. Publish errors are logged by the caller and never abort the
// inference loop.
type CausePublisher interface {
	Publish(ctx context.Context, envelope result.Envelope) error
}
