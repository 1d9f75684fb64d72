package config

import (
	"iter"
	"slices"
)

// Anomaly describes a configuration field that was replaced by its fallback.
type Anomaly struct {
	Field    string
	Reason   string
	Actual   any
	Fallback any
}

// AnomalyCollector is an utility struct for collecting anomalies.
type AnomalyCollector struct {
	anomalies []*Anomaly
}

// NewAnomalyCollector returns an empty anomaly collector.
func NewAnomalyCollector() *AnomalyCollector {
	return &AnomalyCollector{
		anomalies: []*Anomaly{},
	}
}

// Add records an anomaly.
func (ac *AnomalyCollector) Add(field, reason string, actual, fallback any) {
	ac.anomalies = append(ac.anomalies, &Anomaly{
		Field:    field,
		Reason:   reason,
		Actual:   actual,
		Fallback: fallback,
	})
}

// Len returns the number of anomalies collected so far.
func (ac *AnomalyCollector) Len() int {
	return len(ac.anomalies)
}

// All iterates over the collected anomalies.
func (ac *AnomalyCollector) All() iter.Seq[*Anomaly] {
	return slices.Values(ac.anomalies)
}
