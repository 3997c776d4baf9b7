package alert

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/tair/taghub/internal/inventory/domain"
)

// Severity orders alerts for display.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

// Type identifies the rule that produced an alert.
type Type string

const (
	TypeStockThreshold  Type = "stock_threshold"
	TypeDaysOfCover     Type = "days_of_cover"
	TypeNoRecentUsage   Type = "no_recent_usage"
	TypeTransferOverdue Type = "transfer_overdue"
)

// HubStatus is the summary health of a hub.
type HubStatus string

const (
	HubStatusHealthy  HubStatus = "healthy"
	HubStatusWarning  HubStatus = "warning"
	HubStatusCritical HubStatus = "critical"
)

// Resolution actions offered on alerts.
const (
	ActionCreateTransfer = "create_transfer"
	ActionArrived        = string(domain.ResolutionArrived)
	ActionLost           = string(domain.ResolutionLost)
)

// Thresholds used by the rules.
const (
	criticalStockRatio = 0.5
	criticalCoverDays  = 7.0
	warningCoverDays   = 14.0
	criticalDaysLate   = 3
)

// Measure is a float that may be infinite. Infinite values encode as JSON null.
type Measure float64

// IsInf reports whether m is infinite.
func (m Measure) IsInf() bool {
	return math.IsInf(float64(m), 0)
}

// MarshalJSON implements json.Marshaler.
func (m Measure) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(math.Round(f*100) / 100)
}

// FormatDays renders a days-of-cover value rounded to whole days, or "∞".
func FormatDays(days float64) string {
	if math.IsInf(days, 1) {
		return "∞"
	}
	return strconv.FormatFloat(math.Round(days), 'f', 0, 64)
}

// HubSnapshot is the input of the engine for one hub, read in a single
// consistent store view.
type HubSnapshot struct {
	HubID                string
	Name                 string
	Threshold            int
	DaysOfCoverThreshold float64
	FreeStock            int
	ReservedStock        int
	QuarantinedStock     int
	AppliedToday         int
	AppliedLast7Days     int
	AppliedLast30Days    int
}

// Alert is a derived stock-health condition. Alerts are never stored.
type Alert struct {
	ID                string   `json:"id"`
	Type              Type     `json:"type"`
	Severity          Severity `json:"severity"`
	HubID             string   `json:"hub_id"`
	TransferID        string   `json:"transfer_id,omitempty"`
	Message           string   `json:"message"`
	Shortfall         int      `json:"shortfall,omitempty"`
	DaysOfCover       *Measure `json:"days_of_cover,omitempty"`
	DaysPastDue       int      `json:"days_past_due,omitempty"`
	SuggestedAction   string   `json:"suggested_action"`
	CanResolve        bool     `json:"can_resolve"`
	ResolutionActions []string `json:"resolution_actions"`
}

// HubHealth is the derived summary of one hub.
type HubHealth struct {
	HubID                string    `json:"hub_id"`
	Name                 string    `json:"name"`
	Threshold            int       `json:"threshold"`
	DaysOfCoverThreshold float64   `json:"days_of_cover_threshold"`
	FreeStock            int       `json:"free_stock"`
	ReservedStock        int       `json:"reserved_stock"`
	QuarantinedStock     int       `json:"quarantined_stock"`
	AssignableStock      int       `json:"assignable_stock"`
	AppliedToday         int       `json:"applied_today"`
	BurnRate7d           float64   `json:"burn_rate_7d"`
	BurnRate30d          float64   `json:"burn_rate_30d"`
	DaysOfCover          Measure   `json:"days_of_cover"`
	DaysOfCoverDisplay   string    `json:"days_of_cover_display"`
	StockRatio           Measure   `json:"stock_ratio"`
	NoRecentUsage        bool      `json:"no_recent_usage"`
	Status               HubStatus `json:"status"`
}

// Report is the result of one evaluation.
type Report struct {
	Alerts []Alert     `json:"alerts"`
	Hubs   []HubHealth `json:"hubs"`
}

// BurnRate averages applied counts over a trailing window of days.
func BurnRate(applied, days int) float64 {
	if days <= 0 {
		return 0
	}
	return float64(applied) / float64(days)
}

// DaysOfCover divides free stock by the daily burn rate. Zero burn is +Inf.
func DaysOfCover(freeStock int, burnRate float64) float64 {
	if burnRate <= 0 {
		return math.Inf(1)
	}
	return float64(freeStock) / burnRate
}

// StockRatio is free stock over threshold. A hub without a threshold is +Inf.
func StockRatio(freeStock, threshold int) float64 {
	if threshold <= 0 {
		return math.Inf(1)
	}
	return float64(freeStock) / float64(threshold)
}

// Classify derives the hub status. A hub without recent usage is never
// healthy because its forecast is unverified.
func Classify(daysOfCover, stockRatio float64, noRecentUsage bool) HubStatus {
	if noRecentUsage {
		if stockRatio < criticalStockRatio {
			return HubStatusCritical
		}
		return HubStatusWarning
	}
	if daysOfCover < criticalCoverDays || stockRatio < criticalStockRatio {
		return HubStatusCritical
	}
	if daysOfCover < warningCoverDays || stockRatio < 1 {
		return HubStatusWarning
	}
	return HubStatusHealthy
}

// Summarize computes the health of one hub.
func Summarize(h HubSnapshot) HubHealth {
	burn7 := BurnRate(h.AppliedLast7Days, 7)
	doc := DaysOfCover(h.FreeStock, burn7)
	ratio := StockRatio(h.FreeStock, h.Threshold)
	noUsage := burn7 == 0

	assignable := h.FreeStock - h.QuarantinedStock
	if assignable < 0 {
		assignable = 0
	}

	return HubHealth{
		HubID:                h.HubID,
		Name:                 h.Name,
		Threshold:            h.Threshold,
		DaysOfCoverThreshold: h.DaysOfCoverThreshold,
		FreeStock:            h.FreeStock,
		ReservedStock:        h.ReservedStock,
		QuarantinedStock:     h.QuarantinedStock,
		AssignableStock:      assignable,
		AppliedToday:         h.AppliedToday,
		BurnRate7d:           burn7,
		BurnRate30d:          BurnRate(h.AppliedLast30Days, 30),
		DaysOfCover:          Measure(doc),
		DaysOfCoverDisplay:   FormatDays(doc),
		StockRatio:           Measure(ratio),
		NoRecentUsage:        noUsage,
		Status:               Classify(doc, ratio, noUsage),
	}
}

// Evaluate derives the alert set from hub snapshots and overdue transfers.
// Hubs are evaluated in id order, then overdue transfers in the given order;
// the merged list is sorted by severity, stable otherwise. The same inputs
// always produce the same report.
func Evaluate(hubs []HubSnapshot, overdue []domain.OverdueTransfer) Report {
	sorted := make([]HubSnapshot, len(hubs))
	copy(sorted, hubs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].HubID < sorted[j].HubID })

	report := Report{Alerts: []Alert{}, Hubs: make([]HubHealth, 0, len(sorted))}
	for _, h := range sorted {
		health := Summarize(h)
		report.Hubs = append(report.Hubs, health)
		report.Alerts = append(report.Alerts, hubAlerts(health)...)
	}
	for _, o := range overdue {
		report.Alerts = append(report.Alerts, overdueAlert(o))
	}

	sort.SliceStable(report.Alerts, func(i, j int) bool {
		return report.Alerts[i].Severity.rank() < report.Alerts[j].Severity.rank()
	})
	return report
}

func hubAlerts(h HubHealth) []Alert {
	var alerts []Alert

	if h.FreeStock < h.Threshold {
		shortfall := h.Threshold - h.FreeStock
		severity := SeverityWarning
		if float64(h.FreeStock) < float64(h.Threshold)*criticalStockRatio {
			severity = SeverityCritical
		}
		alerts = append(alerts, Alert{
			ID:                alertID(TypeStockThreshold, h.HubID),
			Type:              TypeStockThreshold,
			Severity:          severity,
			HubID:             h.HubID,
			Message:           fmt.Sprintf("Hub %s has %d tags in free stock, below its threshold of %d (short by %d)", h.HubID, h.FreeStock, h.Threshold, shortfall),
			Shortfall:         shortfall,
			SuggestedAction:   fmt.Sprintf("Create a transfer of %d tags to %s", shortfall, h.HubID),
			CanResolve:        true,
			ResolutionActions: []string{ActionCreateTransfer},
		})
	}

	doc := float64(h.DaysOfCover)
	if !h.DaysOfCover.IsInf() && doc < h.DaysOfCoverThreshold {
		severity := SeverityWarning
		if doc < criticalCoverDays {
			severity = SeverityCritical
		}
		cover := h.DaysOfCover
		alerts = append(alerts, Alert{
			ID:                alertID(TypeDaysOfCover, h.HubID),
			Type:              TypeDaysOfCover,
			Severity:          severity,
			HubID:             h.HubID,
			Message:           fmt.Sprintf("Hub %s has %s days of cover at the current burn rate, below its %s day threshold", h.HubID, h.DaysOfCoverDisplay, FormatDays(h.DaysOfCoverThreshold)),
			DaysOfCover:       &cover,
			SuggestedAction:   fmt.Sprintf("Create a transfer to %s to extend cover", h.HubID),
			CanResolve:        true,
			ResolutionActions: []string{ActionCreateTransfer},
		})
	}

	if h.NoRecentUsage {
		cover := h.DaysOfCover
		alerts = append(alerts, Alert{
			ID:                alertID(TypeNoRecentUsage, h.HubID),
			Type:              TypeNoRecentUsage,
			Severity:          SeverityWarning,
			HubID:             h.HubID,
			Message:           fmt.Sprintf("No tags applied at hub %s in the last 7 days; days of cover forecast is uncertain", h.HubID),
			DaysOfCover:       &cover,
			SuggestedAction:   fmt.Sprintf("Review expected demand at %s", h.HubID),
			CanResolve:        false,
			ResolutionActions: []string{},
		})
	}

	return alerts
}

func overdueAlert(o domain.OverdueTransfer) Alert {
	severity := SeverityWarning
	if o.DaysPastDue > criticalDaysLate {
		severity = SeverityCritical
	}
	t := o.Transfer
	return Alert{
		ID:                alertID(TypeTransferOverdue, t.ID),
		Type:              TypeTransferOverdue,
		Severity:          severity,
		HubID:             t.ToHubID,
		TransferID:        t.ID,
		Message:           fmt.Sprintf("Transfer %s of %d tags from %s to %s is %d days past its ETA", t.ID, t.Quantity, t.FromHubID, t.ToHubID, o.DaysPastDue),
		DaysPastDue:       o.DaysPastDue,
		SuggestedAction:   "Confirm arrival or declare the shipment lost",
		CanResolve:        true,
		ResolutionActions: []string{ActionArrived, ActionLost},
	}
}

func alertID(t Type, subject string) string {
	return string(t) + ":" + subject
}
