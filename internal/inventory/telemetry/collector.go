package telemetry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/taghub/internal/inventory/domain"
)

// WindowSize bounds every rolling window kept by the collector.
const WindowSize = 100

// window is a bounded FIFO of samples.
type window struct {
	samples []float64
}

func (w *window) add(v float64) {
	if len(w.samples) == WindowSize {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:WindowSize-1]
	}
	w.samples = append(w.samples, v)
}

func (w *window) stat() Stat {
	s := Stat{Count: len(w.samples)}
	if s.Count == 0 {
		return s
	}
	s.Min, s.Max = w.samples[0], w.samples[0]
	sum := 0.0
	for _, v := range w.samples {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(s.Count)
	s.Last = w.samples[s.Count-1]
	return s
}

// trend is the last sample minus the first.
func (w *window) trend() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	return w.samples[len(w.samples)-1] - w.samples[0]
}

// Stat summarises one rolling window.
type Stat struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Last  float64 `json:"last"`
}

// HubCover is the days-of-cover history of one hub.
type HubCover struct {
	HubID  string  `json:"hub_id"`
	Latest float64 `json:"latest"`
	Trend  float64 `json:"trend"`
	Count  int     `json:"count"`
}

// Snapshot is a point-in-time copy of the collector state.
type Snapshot struct {
	AssignmentLatencyMS     Stat       `json:"assignment_latency_ms"`
	TransferDurationSeconds Stat       `json:"transfer_duration_seconds"`
	AlertResolutionSeconds  Stat       `json:"alert_resolution_seconds"`
	RMARate                 float64    `json:"rma_rate"`
	RMAOutcomes             int        `json:"rma_outcomes"`
	DaysOfCover             []HubCover `json:"days_of_cover"`
}

// Collector keeps operational telemetry derived from committed events and
// alert evaluations. It is observational only.
type Collector struct {
	mu               sync.Mutex
	assignLatency    window
	transferDuration window
	alertResolution  window
	outcomes         window // 1 per RMA, 0 per application
	cover            map[string]*window

	eventsTotal    *prometheus.CounterVec
	latencyHist    prometheus.Histogram
	durationHist   prometheus.Histogram
	resolutionHist prometheus.Histogram
	rmaRate        prometheus.Gauge
	daysOfCover    *prometheus.GaugeVec
	coverTrend     *prometheus.GaugeVec
}

// NewCollector creates a collector and registers its metrics with reg.
// A nil registerer keeps the metrics unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_events_total",
				Help: "Total number of committed inventory events",
			},
			[]string{"type"},
		),
		latencyHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_assignment_latency_ms",
			Help:    "Time from an assign call to its completion in milliseconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 10, 5),
		}),
		durationHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_transfer_duration_seconds",
			Help:    "Duration of completed hub transfers in seconds",
			Buckets: []float64{3600, 6 * 3600, 12 * 3600, 24 * 3600, 48 * 3600, 96 * 3600, 7 * 24 * 3600},
		}),
		resolutionHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_alert_resolution_seconds",
			Help:    "Time from an alert first firing until it cleared",
			Buckets: prometheus.ExponentialBuckets(60, 4, 8),
		}),
		rmaRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_rma_rate",
			Help: "Share of RMAs among the last tag outcomes",
		}),
		daysOfCover: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "inventory_days_of_cover",
				Help: "Latest days of cover per hub",
			},
			[]string{"hub_id"},
		),
		coverTrend: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "inventory_days_of_cover_trend",
				Help: "Change in days of cover across the sample window per hub",
			},
			[]string{"hub_id"},
		),

		cover: make(map[string]*window),
	}

	if reg != nil {
		reg.MustRegister(
			c.eventsTotal,
			c.latencyHist,
			c.durationHist,
			c.resolutionHist,
			c.rmaRate,
			c.daysOfCover,
			c.coverTrend,
		)
	}
	return c
}

// Name implements events.Sink.
func (c *Collector) Name() string { return "telemetry" }

// Handle implements events.Sink.
func (c *Collector) Handle(_ context.Context, event domain.Event) error {
	c.eventsTotal.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case domain.EventTagAssigned:
		var payload struct {
			LatencyMS *float64 `json:"latency_ms"`
		}
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("failed to decode assignment payload: %w", err)
		}
		if payload.LatencyMS != nil {
			c.ObserveAssignmentLatency(time.Duration(*payload.LatencyMS * float64(time.Millisecond)))
		}
	case domain.EventTransferArrived:
		var payload struct {
			DurationSeconds float64 `json:"duration_seconds"`
		}
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("failed to decode arrival payload: %w", err)
		}
		c.ObserveTransferDuration(time.Duration(payload.DurationSeconds * float64(time.Second)))
	case domain.EventTagApplied:
		c.observeOutcomes(0, len(event.TagIDs))
	case domain.EventTagRMA:
		c.observeOutcomes(1, len(event.TagIDs))
	case domain.EventLotQuarantineResolve:
		var payload struct {
			Action domain.QuarantineAction `json:"action"`
		}
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("failed to decode quarantine payload: %w", err)
		}
		if payload.Action == domain.QuarantineActionRMA {
			c.observeOutcomes(1, len(event.TagIDs))
		}
	}
	return nil
}

// ObserveAssignmentLatency records how long an assign call took to complete.
func (c *Collector) ObserveAssignmentLatency(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	c.mu.Lock()
	c.assignLatency.add(ms)
	c.mu.Unlock()
	c.latencyHist.Observe(ms)
}

// ObserveTransferDuration records a completed transfer.
func (c *Collector) ObserveTransferDuration(d time.Duration) {
	c.mu.Lock()
	c.transferDuration.add(d.Seconds())
	c.mu.Unlock()
	c.durationHist.Observe(d.Seconds())
}

// ObserveAlertCycle records how long an alert stayed open.
func (c *Collector) ObserveAlertCycle(d time.Duration) {
	c.mu.Lock()
	c.alertResolution.add(d.Seconds())
	c.mu.Unlock()
	c.resolutionHist.Observe(d.Seconds())
}

// ObserveCover records a days-of-cover sample. Infinite values carry no
// trend information and are skipped.
func (c *Collector) ObserveCover(hubID string, daysOfCover float64) {
	if math.IsInf(daysOfCover, 0) || math.IsNaN(daysOfCover) {
		return
	}
	c.mu.Lock()
	w, ok := c.cover[hubID]
	if !ok {
		w = &window{}
		c.cover[hubID] = w
	}
	w.add(daysOfCover)
	trend := w.trend()
	c.mu.Unlock()

	c.daysOfCover.WithLabelValues(hubID).Set(daysOfCover)
	c.coverTrend.WithLabelValues(hubID).Set(trend)
}

func (c *Collector) observeOutcomes(value float64, n int) {
	if n == 0 {
		n = 1
	}
	c.mu.Lock()
	for i := 0; i < n; i++ {
		c.outcomes.add(value)
	}
	rate := c.outcomes.stat().Mean
	c.mu.Unlock()
	c.rmaRate.Set(rate)
}

// Snapshot returns a copy of the current telemetry.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcomes := c.outcomes.stat()
	snapshot := Snapshot{
		AssignmentLatencyMS:     c.assignLatency.stat(),
		TransferDurationSeconds: c.transferDuration.stat(),
		AlertResolutionSeconds:  c.alertResolution.stat(),
		RMARate:                 outcomes.Mean,
		RMAOutcomes:             outcomes.Count,
		DaysOfCover:             make([]HubCover, 0, len(c.cover)),
	}
	for hubID, w := range c.cover {
		stat := w.stat()
		snapshot.DaysOfCover = append(snapshot.DaysOfCover, HubCover{
			HubID:  hubID,
			Latest: stat.Last,
			Trend:  w.trend(),
			Count:  stat.Count,
		})
	}
	sort.Slice(snapshot.DaysOfCover, func(i, j int) bool {
		return snapshot.DaysOfCover[i].HubID < snapshot.DaysOfCover[j].HubID
	})
	return snapshot
}
