// Package models holds the district report data contract shared by the
// API client, the dashboard service and the views.
package models

import "time"

// District is an administrative region, the unit of reporting.
type District struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// ID returns the identifier used in navigation and API calls.
// Districts without a code fall back to their name.
func (d District) ID() string {
	if d.Code != "" {
		return d.Code
	}
	return d.Name
}

// Metric keys, shared by MetricsSnapshot JSON fields and Comparisons.
const (
	MetricPeopleWorked    = "people_worked"
	MetricPersondays      = "persondays"
	MetricAvgWage         = "avg_wage"
	MetricPaymentsPending = "payments_pending_percent"
	MetricWomenPercent    = "women_percent"
)

// MetricsSnapshot is the set of program statistics for a district and period.
// Every field is optional; nil renders as a placeholder.
type MetricsSnapshot struct {
	PeopleWorked           *float64 `json:"people_worked,omitempty" yaml:"people_worked,omitempty"`
	Persondays             *float64 `json:"persondays,omitempty" yaml:"persondays,omitempty"`
	AvgWage                *float64 `json:"avg_wage,omitempty" yaml:"avg_wage,omitempty"`
	PaymentsPendingPercent *float64 `json:"payments_pending_percent,omitempty" yaml:"payments_pending_percent,omitempty"`
	WomenPercent           *float64 `json:"women_percent,omitempty" yaml:"women_percent,omitempty"`
}

// Status drives the display colour of a comparison.
type Status string

const (
	StatusGood    Status = "good"
	StatusBad     Status = "bad"
	StatusNeutral Status = "neutral"
)

// Comparison describes how a metric moved against the prior period.
// Values arrive pre-computed from the data source.
type Comparison struct {
	DeltaText string `json:"delta_text" yaml:"delta_text"`
	Status    Status `json:"status" yaml:"status"`
}

// Comparisons maps a metric key (MetricPeopleWorked, ...) to its comparison.
type Comparisons map[string]Comparison

// Get returns the comparison for key, or a zero Comparison.
func (c Comparisons) Get(key string) Comparison {
	if c == nil {
		return Comparison{}
	}
	return c[key]
}

// TrendPoint is one month of the workdays trend.
type TrendPoint struct {
	Month string  `json:"month" yaml:"month"`
	Value float64 `json:"value" yaml:"value"`
}

// Report is the district report snapshot rendered on the dashboard.
type Report struct {
	DistrictCode string          `json:"districtCode,omitempty" yaml:"districtCode,omitempty"`
	DistrictName string          `json:"districtName,omitempty" yaml:"districtName,omitempty"`
	Month        string          `json:"month,omitempty" yaml:"month,omitempty"`
	Metrics      MetricsSnapshot `json:"metrics" yaml:"metrics"`
	Comparisons  Comparisons     `json:"comparisons,omitempty" yaml:"comparisons,omitempty"`
	Summary      string          `json:"summary" yaml:"summary"`
	Trend        []TrendPoint    `json:"trend" yaml:"trend"`
	LastUpdated  *time.Time      `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`

	// Stale marks a report served from the snapshot store after the
	// upstream API failed.
	Stale bool `json:"stale,omitempty" yaml:"-"`
}

// SnapshotInfo describes one saved last-known-good report.
type SnapshotInfo struct {
	Key          string    `json:"-"`
	DistrictCode string    `json:"districtCode"`
	Month        string    `json:"month"`
	Latest       bool      `json:"latest"`
	SavedAt      time.Time `json:"savedAt"`
}

// Float returns a pointer to v, for building metrics literals.
func Float(v float64) *float64 {
	return &v
}
