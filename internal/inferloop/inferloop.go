// Package inferloop drives the foreground inference cycle and the
// observation-metadata refresher. It owns no causal-graph logic
// itself: the topology/time-series/rule/policy work happens inside
// crosshost.Expander, so each cycle here is poll, resolve a snapshot
// timestamp, expand, format, publish, record.
package inferloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-rca/internal/aggregator"
	"github.com/miradorstack/mirador-rca/internal/broker"
	"github.com/miradorstack/mirador-rca/internal/crosshost"
	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/metrics"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
	"github.com/miradorstack/mirador-rca/internal/result"
)

// Config tunes the loop's polling/retry behaviour, independent of the
// graph-building parameters crosshost.Config already owns.
type Config struct {
	// NoKPIPollInterval is how long the loop sleeps after a poll finds
	// no triggering KPI before retrying.
	NoKPIPollInterval time.Duration
	// ToleratedBias bounds how stale a topology snapshot may be
	// relative to the triggering KPI's own timestamp.
	ToleratedBias float64
}

// CycleRecorder receives the outcome of each inference cycle, letting
// the gRPC facade serve the most recent result back to operators.
type CycleRecorder interface {
	RecordCycle(duration time.Duration, res *result.CauseResult, cycleErr error)
}

// Loop runs the foreground inference cycle: aggregator.GetAbnormalInfo
// feeds crosshost.Expander, whose ranked causes are formatted and
// published as one envelope per triggering KPI.
type Loop struct {
	Aggregator *aggregator.Aggregator
	Expander   *crosshost.Expander
	Formatter  *result.Formatter
	Publisher  broker.CausePublisher
	Recorder   CycleRecorder
	Cfg        Config
	Logger     *slog.Logger
}

// New constructs a Loop; a nil logger falls back to slog.Default.
func New(agg *aggregator.Aggregator, expander *crosshost.Expander, formatter *result.Formatter, publisher broker.CausePublisher, recorder CycleRecorder, cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		Aggregator: agg,
		Expander:   expander,
		Formatter:  formatter,
		Publisher:  publisher,
		Recorder:   recorder,
		Cfg:        cfg,
		Logger:     logger,
	}
}

// Run blocks, executing inference cycles back to back until ctx is
// cancelled. It never returns an error: every cycle's failure is
// logged and folded into the recorder's outcome instead.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !l.runOnce(ctx) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.Cfg.NoKPIPollInterval):
			}
		}
	}
}

// runOnce executes a single cycle and reports whether a triggering KPI
// was actually found (false means the caller should back off before
// polling again).
func (l *Loop) runOnce(ctx context.Context) bool {
	start := time.Now()

	kpi, metricEvents, err := l.Aggregator.GetAbnormalInfo(ctx)
	if err != nil {
		if infererr.Is(err, infererr.NoKPI) {
			return false
		}
		l.Logger.Warn("aggregator poll failed", slog.Any("error", err))
		return false
	}

	res, cycleErr := l.infer(ctx, kpi, metricEvents)
	metrics.SetAggregatorMetricBufSize(l.Aggregator.BufSize())
	l.Recorder.RecordCycle(time.Since(start), res, cycleErr)
	return true
}

func (l *Loop) infer(ctx context.Context, kpi models.AbnormalEvent, metricEvents []models.AbnormalEvent) (*result.CauseResult, error) {
	tSec := float64(kpi.Timestamp) / 1000
	ts, err := l.Expander.Topo.RecentTS(ctx, tSec, l.Cfg.ToleratedBias)
	if err != nil {
		reason, abort := infererr.AsWarning(err)
		l.Logger.Warn("resolve topology snapshot failed", slog.String("reason", reason))
		if abort {
			return nil, err
		}
		return nil, nil
	}

	causes, err := l.Expander.Expand(ctx, kpi, metricEvents, ts)
	if err != nil {
		reason, abort := infererr.AsWarning(err)
		l.Logger.Warn("cross-host expansion failed", slog.String("reason", reason))
		if abort {
			return nil, err
		}
		return nil, nil
	}
	if len(causes) == 0 {
		l.Logger.Info("no cause found for triggering KPI", slog.String("metric_id", kpi.MetricID), slog.String("entity_id", kpi.EntityID))
		return nil, nil
	}

	causeResult, err := l.Formatter.Format(causes)
	if err != nil {
		l.Logger.Warn("format cause result failed", slog.Any("error", err))
		return nil, err
	}

	envelope := result.BuildEnvelope(kpi, causeResult)
	if err := l.Publisher.Publish(ctx, envelope); err != nil {
		l.Logger.Warn("publish cause envelope failed", slog.Any("error", err))
	}

	return &causeResult, nil
}

// MetadataRefresher consumes the observation-metadata topic and merges
// each update into a shared obsmeta.Registry, decoupled from the
// inference loop so metadata starts flowing before the first cycle
// runs.
type MetadataRefresher struct {
	Consumer broker.MetadataConsumer
	Registry *obsmeta.Registry
	Logger   *slog.Logger
}

// NewMetadataRefresher constructs a MetadataRefresher; a nil logger
// falls back to slog.Default.
func NewMetadataRefresher(consumer broker.MetadataConsumer, registry *obsmeta.Registry, logger *slog.Logger) *MetadataRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataRefresher{Consumer: consumer, Registry: registry, Logger: logger}
}

// Run blocks, merging each observation-metadata update until ctx is
// cancelled.
func (m *MetadataRefresher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, ok, err := m.Consumer.Next(ctx)
		if err != nil {
			m.Logger.Warn("metadata consumer failed", slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		entityType, keys, metricIDs, err := broker.ParseMetadata(raw)
		if err != nil {
			m.Logger.Warn("drop malformed metadata payload", slog.Any("error", err))
			continue
		}
		m.Registry.MergeMetadata(entityType, keys, metricIDs)
	}
}
