package broker

import (
	"context"
	"testing"
	"time"

	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/result"
)

func TestChannelDeliversSentPayloadsInOrder(t *testing.T) {
	c := NewChannel(2, 50*time.Millisecond)
	c.Send([]byte("a"))
	c.Send([]byte("b"))

	raw, ok, err := c.Next(context.Background())
	if err != nil || !ok || string(raw) != "a" {
		t.Fatalf("expected (a, true, nil), got (%s, %v, %v)", raw, ok, err)
	}
	raw, ok, err = c.Next(context.Background())
	if err != nil || !ok || string(raw) != "b" {
		t.Fatalf("expected (b, true, nil), got (%s, %v, %v)", raw, ok, err)
	}
}

func TestChannelTimesOutWhenEmpty(t *testing.T) {
	c := NewChannel(1, 10*time.Millisecond)
	_, ok, err := c.Next(context.Background())
	if err != nil || ok {
		t.Fatalf("expected (false, nil) on poll timeout, got (%v, %v)", ok, err)
	}
}

func TestChannelReportsClosedWithoutWaiting(t *testing.T) {
	c := NewChannel(1, time.Second)
	c.Close()

	start := time.Now()
	_, ok, err := c.Next(context.Background())
	if err != nil || ok {
		t.Fatalf("expected (false, nil) on closed channel, got (%v, %v)", ok, err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("expected a closed channel to return immediately")
	}
}

func TestChannelRespectsContextCancellation(t *testing.T) {
	c := NewChannel(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := c.Next(ctx)
	if ok || err == nil {
		t.Fatalf("expected a context error, got (%v, %v)", ok, err)
	}
}

func TestParseMetadataExtractsFields(t *testing.T) {
	raw := []byte(`{"entity_type":"process","keys":["pid","host"],"metric_ids":["cpu_util","mem_util"]}`)
	entityType, keys, metricIDs, err := ParseMetadata(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entityType != models.EntityProcess {
		t.Fatalf("expected entity type process, got %q", entityType)
	}
	if len(keys) != 2 || len(metricIDs) != 2 {
		t.Fatalf("unexpected keys/metric_ids: %v %v", keys, metricIDs)
	}
}

func TestParseMetadataRejectsMissingEntityType(t *testing.T) {
	if _, _, _, err := ParseMetadata([]byte(`{"keys":["a"]}`)); err == nil {
		t.Fatalf("expected an error for a missing entity_type")
	}
}

func TestFakePublisherKeepsBoundedHistory(t *testing.T) {
	p := NewFakePublisher(2)
	for i := 0; i < 3; i++ {
		env := result.Envelope{EventID: string(rune('a' + i))}
		if err := p.Publish(context.Background(), env); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got := p.Envelopes()
	if len(got) != 2 {
		t.Fatalf("expected 2 retained envelopes, got %d", len(got))
	}
	if got[0].EventID != "b" || got[1].EventID != "c" {
		t.Fatalf("expected the oldest envelope to be evicted, got %+v", got)
	}
}
