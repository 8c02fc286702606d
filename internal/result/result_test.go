package result

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-rca/internal/keyword"
	"github.com/miradorstack/mirador-rca/internal/models"
)

func buildSampleCauses() []models.Cause {
	root := models.MetricNode{
		NodeID: models.MetricNodeId{EntityID: "block2", MetricID: "blk_util"},
		Attrs: models.MetricAttrs{
			EntityID: "block2", EntityType: models.EntityBlock, Timestamp: 100000,
			Desc: "block device utilization high", CorrScore: 0.9, HasCorrScore: true,
		},
	}
	mid := models.MetricNode{
		NodeID: models.MetricNodeId{EntityID: "process1", MetricID: models.VirtualMetricIODelay},
		Attrs: models.MetricAttrs{
			EntityID: "process1", EntityType: models.EntityProcess, Timestamp: 100000,
			Desc: "io delay", CorrScore: 0.7, HasCorrScore: true, IsVirtual: true,
		},
	}
	kpi := models.MetricNode{
		NodeID: models.MetricNodeId{EntityID: "sli1", MetricID: "sli_latency"},
		Attrs: models.MetricAttrs{
			EntityID: "sli1", EntityType: models.EntitySLI, Timestamp: 100000,
			Desc: "SLI latency abnormal",
		},
	}
	return []models.Cause{
		{
			MetricID:   root.NodeID.MetricID,
			EntityID:   root.NodeID.EntityID,
			CauseScore: 0.85,
			Path:       []models.MetricNode{root, mid, kpi},
		},
	}
}

func TestFormatBuildsAbnormalKPIFromPathTail(t *testing.T) {
	kw := keyword.NewTable()
	f := NewFormatter(kw)

	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AbnormalKPI.MetricID != "sli_latency" || res.AbnormalKPI.EntityID != "sli1" {
		t.Fatalf("unexpected abnormal_kpi: %+v", res.AbnormalKPI)
	}
	if res.AbnormalKPI.Desc != "SLI latency abnormal" {
		t.Fatalf("expected kpi desc to come from the path's last node, got %q", res.AbnormalKPI.Desc)
	}
}

func TestFormatRenamesVirtualMetricIDsInPath(t *testing.T) {
	kw := keyword.NewTable()
	f := NewFormatter(kw)

	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.CauseMetrics) != 1 {
		t.Fatalf("expected one cause metric, got %d", len(res.CauseMetrics))
	}
	path := res.CauseMetrics[0].Path
	if len(path) != 3 {
		t.Fatalf("expected 3-node path, got %d", len(path))
	}
	if path[1].MetricID != models.VirtualMetricDefault {
		t.Fatalf("expected virtual metric id renamed to default placeholder, got %q", path[1].MetricID)
	}
	if path[0].MetricID != "blk_util" {
		t.Fatalf("expected concrete metric id kept as-is, got %q", path[0].MetricID)
	}
}

func TestFormatLooksUpKeywordByRootEntityType(t *testing.T) {
	f := NewFormatter(keyword.NewTable())

	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CauseMetrics[0].Keyword != "" {
		t.Fatalf("expected empty keyword for an unconfigured entity type, got %q", res.CauseMetrics[0].Keyword)
	}
}

func TestFormatUsesConfiguredKeywordForEntityType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte("entity_keywords:\n  block: disk_io\n  sli: service_level\n"), 0o600); err != nil {
		t.Fatalf("write keyword file: %v", err)
	}
	kw := keyword.NewTable()
	if err := kw.LoadYAML(path); err != nil {
		t.Fatalf("load keyword file: %v", err)
	}
	f := NewFormatter(kw)

	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The root cause's entity type (models.EntityBlock) and the kpi's
	// (models.EntitySLI) carry different keywords, so this pins that
	// Format reads the root cause's entity type, not the kpi's.
	if res.CauseMetrics[0].Keyword != kw.KeywordForEntity(models.EntityBlock) || res.CauseMetrics[0].Keyword != "disk_io" {
		t.Fatalf("expected keyword lookup to use the root cause's entity type, got %q", res.CauseMetrics[0].Keyword)
	}
}

func TestFormatDescSummarizesTopCauses(t *testing.T) {
	f := NewFormatter(keyword.NewTable())
	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Desc, "SLI latency abnormal") {
		t.Fatalf("expected desc to mention the kpi description, got %q", res.Desc)
	}
	if !strings.Contains(res.Desc, "block device utilization high") {
		t.Fatalf("expected desc to mention the root cause description, got %q", res.Desc)
	}
}

func TestFormatRejectsEmptyCauses(t *testing.T) {
	f := NewFormatter(keyword.NewTable())
	if _, err := f.Format(nil); err == nil {
		t.Fatalf("expected an error for an empty cause list")
	}
}

func TestBuildEnvelopeWrapsResultWithSeverity(t *testing.T) {
	f := NewFormatter(keyword.NewTable())
	res, err := f.Format(buildSampleCauses())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kpi := models.AbnormalEvent{EntityID: "sli1", MetricID: "sli_latency", Timestamp: 100000, EventID: "evt-1"}
	env := BuildEnvelope(kpi, res)

	if env.EventID != "evt-1" || env.Timestamp != 100000 {
		t.Fatalf("unexpected envelope header: %+v", env)
	}
	if env.SeverityText != "WARN" || env.SeverityNumber != 13 {
		t.Fatalf("unexpected severity fields: %+v", env)
	}
	if len(env.Keywords) != len(res.CauseMetrics) {
		t.Fatalf("expected one keyword per cause metric, got %d for %d metrics", len(env.Keywords), len(res.CauseMetrics))
	}
}
