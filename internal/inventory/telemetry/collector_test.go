package telemetry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/tair/taghub/internal/inventory/domain"
)

func event(t domain.EventType, tags int, payload map[string]any) domain.Event {
	ids := make([]string, tags)
	for i := range ids {
		ids[i] = "TAG"
	}
	return domain.Event{Type: t, TagIDs: ids, Payload: domain.NewPayload(payload)}
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestCollectorFromEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	ctx := context.Background()

	inputs := []domain.Event{
		event(domain.EventTagAssigned, 1, map[string]any{"latency_ms": 250.0}),
		event(domain.EventTagAssigned, 1, map[string]any{"latency_ms": 750.0}),
		event(domain.EventTransferArrived, 5, map[string]any{"duration_seconds": 7200.0}),
		event(domain.EventTagApplied, 1, nil),
		event(domain.EventTagApplied, 1, nil),
		event(domain.EventTagApplied, 1, nil),
		event(domain.EventTagRMA, 1, nil),
		event(domain.EventLotQuarantineResolve, 2, map[string]any{"action": "release"}),
	}
	for _, e := range inputs {
		if err := c.Handle(ctx, e); err != nil {
			t.Fatalf("handle %s: %v", e.Type, err)
		}
	}

	s := c.Snapshot()
	if s.AssignmentLatencyMS.Count != 2 || s.AssignmentLatencyMS.Mean != 500 {
		t.Errorf("unexpected latency stat: %+v", s.AssignmentLatencyMS)
	}
	if s.TransferDurationSeconds.Last != 7200 {
		t.Errorf("unexpected transfer duration stat: %+v", s.TransferDurationSeconds)
	}
	if s.RMAOutcomes != 4 || s.RMARate != 0.25 {
		t.Errorf("expected rma rate 0.25 over 4 outcomes, got %v over %d", s.RMARate, s.RMAOutcomes)
	}

	if err := c.Handle(ctx, event(domain.EventLotQuarantineResolve, 4, map[string]any{"action": "rma"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if s := c.Snapshot(); s.RMAOutcomes != 8 || s.RMARate != 0.625 {
		t.Errorf("expected quarantine rma to count per tag, got %v over %d", s.RMARate, s.RMAOutcomes)
	}

	if got := metricValue(t, c.eventsTotal.WithLabelValues(string(domain.EventTagApplied))); got != 3 {
		t.Errorf("expected 3 applied events counted, got %v", got)
	}
	if got := metricValue(t, c.rmaRate); got != 0.625 {
		t.Errorf("expected rma gauge 0.625, got %v", got)
	}
}

func TestCollectorRejectsMalformedPayload(t *testing.T) {
	c := NewCollector(nil)
	bad := domain.Event{Type: domain.EventTransferArrived, Payload: []byte(`{"duration_seconds":"soon"}`)}
	if err := c.Handle(context.Background(), bad); err == nil {
		t.Error("expected decode error")
	}
}

func TestWindowIsBounded(t *testing.T) {
	c := NewCollector(nil)
	for i := 0; i < WindowSize+50; i++ {
		c.ObserveTransferDuration(time.Duration(i) * time.Second)
	}
	s := c.Snapshot().TransferDurationSeconds
	if s.Count != WindowSize {
		t.Fatalf("expected %d samples, got %d", WindowSize, s.Count)
	}
	if s.Min != 50 || s.Last != WindowSize+49 {
		t.Errorf("expected oldest samples dropped, got %+v", s)
	}
}

func TestCoverTrend(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.ObserveCover("HUB-PAR", 28)
	c.ObserveCover("HUB-PAR", math.Inf(1))
	c.ObserveCover("HUB-PAR", 21.5)
	c.ObserveCover("HUB-LON", 8)

	covers := c.Snapshot().DaysOfCover
	if len(covers) != 2 || covers[0].HubID != "HUB-LON" {
		t.Fatalf("expected covers ordered by hub, got %+v", covers)
	}
	par := covers[1]
	if par.Count != 2 || par.Latest != 21.5 || par.Trend != -6.5 {
		t.Errorf("unexpected HUB-PAR cover: %+v", par)
	}
	if covers[0].Trend != 0 {
		t.Errorf("single sample must have zero trend, got %v", covers[0].Trend)
	}
	if got := metricValue(t, c.coverTrend.WithLabelValues("HUB-PAR")); got != -6.5 {
		t.Errorf("expected trend gauge -6.5, got %v", got)
	}
}

func TestAlertCycle(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveAlertCycle(10 * time.Minute)
	c.ObserveAlertCycle(20 * time.Minute)
	if s := c.Snapshot().AlertResolutionSeconds; s.Mean != 900 || s.Max != 1200 {
		t.Errorf("unexpected alert resolution stat: %+v", s)
	}
}

func TestAssignmentLatencyBuckets(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveAssignmentLatency(300 * time.Microsecond)
	c.ObserveAssignmentLatency(40 * time.Millisecond)

	var out dto.Metric
	if err := c.latencyHist.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	hist := out.GetHistogram()
	if hist.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", hist.GetSampleCount())
	}
	want := map[float64]uint64{0.1: 0, 1: 1, 10: 1, 100: 2, 1000: 2}
	for _, b := range hist.GetBucket() {
		if got := b.GetCumulativeCount(); got != want[b.GetUpperBound()] {
			t.Errorf("bucket le=%v: expected %d, got %d", b.GetUpperBound(), want[b.GetUpperBound()], got)
		}
	}
}
