// Package aggregator implements the abnormal-event aggregator: it
// time-aligns the KPI and metric anomaly streams around each
// triggering KPI timestamp.
package aggregator

import (
	"context"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
)

// Source yields the next raw event payload from a broker topic. ok is
// false when the poll interval elapsed with nothing delivered; err is
// set only for genuine transport failures.
type Source interface {
	Next(ctx context.Context) (raw []byte, ok bool, err error)
}

// Aggregator buffers metric anomaly events and exposes
// GetAbnormalInfo to pair each triggering KPI with its temporally
// relevant candidate metrics.
type Aggregator struct {
	kpiSource    Source
	metricSource Source
	registry     *obsmeta.Registry

	validMS  int64
	futureMS int64
	agingMS  int64

	kpiQueue     []models.AbnormalEvent
	metricBuf    []models.AbnormalEvent
	lastKPITs    int64
	lastMetricTs int64
}

// New constructs an Aggregator. valid/future/aging are given in
// seconds and are converted to milliseconds internally to match event
// timestamps.
func New(kpiSource, metricSource Source, registry *obsmeta.Registry, validSec, futureSec, agingSec float64) *Aggregator {
	return &Aggregator{
		kpiSource:    kpiSource,
		metricSource: metricSource,
		registry:     registry,
		validMS:      int64(validSec * 1000),
		futureMS:     int64(futureSec * 1000),
		agingMS:      int64(agingSec * 1000),
	}
}

func isValid(t, kpiTs, validMS, futureMS int64) bool {
	return kpiTs-validMS < t && t <= kpiTs+futureMS
}

func isAging(t, kpiTs, agingMS int64) bool {
	return t+agingMS < kpiTs
}

func isFuture(t, kpiTs, futureMS int64) bool {
	return t > kpiTs+futureMS
}

// IngestKPIRaw parses a KPI-topic payload, derives its entity id,
// always buffers it as a candidate metric event, and additionally
// enqueues it as a triggering KPI when its event type is "app". Inline
// cause_metrics are parsed and buffered too, each one skipped on its
// own if its entity id cannot be derived.
func (a *Aggregator) IngestKPIRaw(raw []byte) error {
	evt, err := parseAbnormalEvent(raw, a.registry)
	if err != nil {
		return err
	}
	a.metricBuf = append(a.metricBuf, evt)
	if evt.Timestamp > a.lastKPITs {
		a.lastKPITs = evt.Timestamp
	}
	if evt.IsKPI() {
		a.kpiQueue = append(a.kpiQueue, evt)
	}
	for _, cm := range parseInlineCauseMetrics(raw, a.registry) {
		a.metricBuf = append(a.metricBuf, cm)
	}
	return nil
}

// IngestMetricRaw parses a metric-topic payload and buffers it unless
// it is already aged relative to the most recently observed KPI
// timestamp.
func (a *Aggregator) IngestMetricRaw(raw []byte) error {
	evt, err := parseAbnormalEvent(raw, a.registry)
	if err != nil {
		return err
	}
	if a.lastKPITs != 0 && isAging(evt.Timestamp, a.lastKPITs, a.agingMS) {
		return nil
	}
	a.metricBuf = append(a.metricBuf, evt)
	if evt.Timestamp > a.lastMetricTs {
		a.lastMetricTs = evt.Timestamp
	}
	return nil
}

// BufSize reports the current metric-event buffer length, for
// exporting as a gauge.
func (a *Aggregator) BufSize() int {
	return len(a.metricBuf)
}

// GetAbnormalInfo dequeues one triggering KPI and returns it together
// with the buffered metric events that fall inside its valid window.
// It returns a NoKPI error when the queue is empty and the KPI source
// has nothing more to offer within ctx's deadline.
func (a *Aggregator) GetAbnormalInfo(ctx context.Context) (models.AbnormalEvent, []models.AbnormalEvent, error) {
	if len(a.kpiQueue) == 0 {
		a.drainKPISource(ctx, 0)
	}
	if len(a.kpiQueue) == 0 {
		return models.AbnormalEvent{}, nil, infererr.New(infererr.NoKPI, "GetAbnormalInfo", "no triggering KPI available", nil)
	}

	kpi := a.kpiQueue[0]
	a.kpiQueue = a.kpiQueue[1:]

	a.drainKPISource(ctx, kpi.Timestamp)
	a.drainMetricSource(ctx, kpi.Timestamp)

	a.clearAging(kpi.Timestamp)

	valid := make([]models.AbnormalEvent, 0, len(a.metricBuf))
	for _, m := range a.metricBuf {
		if isValid(m.Timestamp, kpi.Timestamp, a.validMS, a.futureMS) {
			valid = append(valid, m)
		}
	}
	return kpi, valid, nil
}

// drainKPISource drives the KPI stream forward until it is known to
// have passed kpiTs+F, so that any other KPIs sharing kpi's timestamp
// are folded into the metric buffer rather than lost. A kpiTs of zero
// means "pull at most one event", used to seed the queue when empty.
func (a *Aggregator) drainKPISource(ctx context.Context, kpiTs int64) {
	for {
		if kpiTs != 0 && a.lastKPITs > kpiTs+a.futureMS {
			return
		}
		raw, ok, err := a.kpiSource.Next(ctx)
		if err != nil || !ok {
			return
		}
		_ = a.IngestKPIRaw(raw)
		if kpiTs == 0 {
			return
		}
	}
}

func (a *Aggregator) drainMetricSource(ctx context.Context, kpiTs int64) {
	for a.lastMetricTs <= kpiTs+a.futureMS {
		raw, ok, err := a.metricSource.Next(ctx)
		if err != nil || !ok {
			return
		}
		_ = a.IngestMetricRaw(raw)
	}
}

// clearAging evicts buffered metric events older than kpiTs-A.
func (a *Aggregator) clearAging(kpiTs int64) {
	kept := a.metricBuf[:0]
	for _, m := range a.metricBuf {
		if !isAging(m.Timestamp, kpiTs, a.agingMS) {
			kept = append(kept, m)
		}
	}
	a.metricBuf = kept
}
