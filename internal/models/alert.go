// Package models defines domain models for AlertDesk.
package models

import "time"

// Agent identifies the monitored host that produced an alert.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"`
}

// Rule describes the detection rule that matched.
type Rule struct {
	ID          string   `json:"id"`
	Level       int      `json:"level"`
	Description string   `json:"description"`
	Groups      []string `json:"groups"`
}

// Alert is a single security event sourced from the alert index.
// Alerts are never persisted by AlertDesk; the index owns them.
type Alert struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     Agent          `json:"agent"`
	Rule      Rule           `json:"rule"`
	FullLog   string         `json:"full_log"`
	Location  string         `json:"location,omitempty"`
	Decoder   map[string]any `json:"decoder,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Snapshot returns the alert as a plain nested structure suitable for
// storing as JSON. All timestamps are serialized to RFC 3339 strings so
// the snapshot round-trips without driver-specific time handling.
func (a *Alert) Snapshot() map[string]any {
	snap := map[string]any{
		"id":        a.ID,
		"timestamp": a.Timestamp.Format(time.RFC3339),
		"agent": map[string]any{
			"id":   a.Agent.ID,
			"name": a.Agent.Name,
		},
		"rule": map[string]any{
			"id":          a.Rule.ID,
			"level":       a.Rule.Level,
			"description": a.Rule.Description,
			"groups":      a.Rule.Groups,
		},
		"full_log": a.FullLog,
	}
	if a.Agent.IP != "" {
		snap["agent"].(map[string]any)["ip"] = a.Agent.IP
	}
	if a.Location != "" {
		snap["location"] = a.Location
	}
	if a.Decoder != nil {
		snap["decoder"] = serializeTimes(a.Decoder)
	}
	if a.Data != nil {
		snap["data"] = serializeTimes(a.Data)
	}
	return snap
}

// serializeTimes walks a nested structure and converts every time.Time
// to its RFC 3339 string form.
func serializeTimes(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = serializeTimes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = serializeTimes(item)
		}
		return out
	default:
		return v
	}
}
