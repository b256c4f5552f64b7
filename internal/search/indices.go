// Package search provides alert retrieval from the OpenSearch alert index.
package search

import "time"

const (
	// indexPrefix is the daily alert index prefix written by the
	// indexer, one index per day (e.g. wazuh-alerts-4.x-2026.08.31).
	indexPrefix = "wazuh-alerts-4.x-"

	// AllIndices matches every alert index regardless of date.
	AllIndices = "wazuh-alerts-*"
)

// MonthPattern returns the wildcard covering every daily index in t's
// calendar month.
func MonthPattern(t time.Time) string {
	return indexPrefix + t.Format("2006.01") + ".*"
}

// ResolveIndexPattern picks the index pattern for an optional date range:
//
//   - no bounds: all indices
//   - one bound: that bound's calendar month
//   - both bounds in the same month: that month
//   - bounds in different months: all indices
//
// Narrowing per-day across a multi-month span is deliberately not
// attempted; the broad pattern is always correct, just less selective.
// The result is always a usable pattern, never an error.
func ResolveIndexPattern(from, to *time.Time) string {
	switch {
	case from == nil && to == nil:
		return AllIndices
	case from != nil && to == nil:
		return MonthPattern(*from)
	case from == nil:
		return MonthPattern(*to)
	}

	if from.Year() == to.Year() && from.Month() == to.Month() {
		return MonthPattern(*from)
	}
	return AllIndices
}
