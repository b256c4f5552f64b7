package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/metrics"
	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// Placeholder values for optional text fields the index sometimes omits.
const (
	placeholderDescription = "no description provided"
	placeholderLog         = "log line unavailable"
)

// Reader executes alert searches and aggregate reports against the
// gateway, mapping raw hits into typed alerts. Mapping is best-effort:
// a hit missing agent, rule or timestamp is dropped, never fatal.
type Reader struct {
	gw  Gateway
	now func() time.Time
}

// NewReader creates a reader over the given gateway.
func NewReader(gw Gateway) *Reader {
	return &Reader{gw: gw, now: time.Now}
}

// Search returns one page of alerts matching the filters, newest first,
// along with the total hit count. A time range with no backing index is
// a normal empty result, not an error.
func (r *Reader) Search(ctx context.Context, page, size int, f *Filters) (int64, []models.Alert, error) {
	if page < 1 || size < 1 {
		return 0, nil, fmt.Errorf("page and size must be positive")
	}

	var from, to *time.Time
	if f != nil {
		from, to = f.FromDate, f.ToDate
	}
	pattern := ResolveIndexPattern(from, to)
	body := BuildSearchBody(f, page, size)

	res, err := r.gw.Search(ctx, []string{pattern}, body)
	if errors.Is(err, ErrIndexNotFound) {
		return 0, nil, nil
	}
	if err != nil {
		metrics.SearchErrorsTotal.Inc()
		return 0, nil, fmt.Errorf("search alerts: %w", err)
	}
	metrics.SearchQueriesTotal.Inc()

	alerts := make([]models.Alert, 0, len(res.Hits))
	for _, hit := range res.Hits {
		alert, ok := mapHit(hit)
		if !ok {
			metrics.SearchHitsSkippedTotal.Inc()
			continue
		}
		alerts = append(alerts, alert)
	}
	return res.Total, alerts, nil
}

// mapHit converts one raw document into an Alert. Returns false when
// the document lacks a parseable agent, rule or timestamp.
func mapHit(hit Hit) (models.Alert, bool) {
	src := hit.Source

	agentRaw, ok := src["agent"].(map[string]any)
	if !ok {
		return models.Alert{}, false
	}
	ruleRaw, ok := src["rule"].(map[string]any)
	if !ok {
		return models.Alert{}, false
	}
	tsRaw, ok := src["@timestamp"].(string)
	if !ok {
		return models.Alert{}, false
	}
	ts, ok := parseTimestamp(tsRaw)
	if !ok {
		return models.Alert{}, false
	}

	agentID, ok := stringField(agentRaw, "id")
	if !ok {
		return models.Alert{}, false
	}
	agentName, ok := stringField(agentRaw, "name")
	if !ok {
		return models.Alert{}, false
	}
	ruleID, ok := stringField(ruleRaw, "id")
	if !ok {
		return models.Alert{}, false
	}
	level, ok := intField(ruleRaw, "level")
	if !ok {
		return models.Alert{}, false
	}

	description, ok := stringField(ruleRaw, "description")
	if !ok || description == "" {
		description = placeholderDescription
	}
	fullLog, ok := stringField(src, "full_log")
	if !ok || fullLog == "" {
		fullLog = placeholderLog
	}

	alert := models.Alert{
		ID:        hit.ID,
		Timestamp: ts,
		Agent: models.Agent{
			ID:   agentID,
			Name: agentName,
		},
		Rule: models.Rule{
			ID:          ruleID,
			Level:       level,
			Description: description,
			Groups:      stringSlice(ruleRaw["groups"]),
		},
		FullLog: fullLog,
	}
	if ip, ok := stringField(agentRaw, "ip"); ok {
		alert.Agent.IP = ip
	}
	if loc, ok := stringField(src, "location"); ok {
		alert.Location = loc
	}
	if decoder, ok := src["decoder"].(map[string]any); ok {
		alert.Decoder = decoder
	}
	if data, ok := src["data"].(map[string]any); ok {
		alert.Data = data
	}
	return alert, true
}

// timestampLayouts covers the formats the indexer emits. RFC 3339
// proper comes first; the second layout accepts the zone offset without
// a colon (+0000), which is what the ingest pipeline writes. Fractional
// seconds are optional in both.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

func intField(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// LevelBucket is a per-severity-level alert count.
type LevelBucket struct {
	Level int   `json:"level"`
	Count int64 `json:"count"`
}

// RuleBucket is a per-rule-description alert count.
type RuleBucket struct {
	Description string `json:"description"`
	Count       int64  `json:"count"`
}

// DayBucket is a per-calendar-day alert count. Days inside the report
// window with no alerts are present with a zero count.
type DayBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// WeeklyStats aggregates the last seven days of alerts.
type WeeklyStats struct {
	RuleLevels     []LevelBucket `json:"rule_levels"`
	TopRules       []RuleBucket  `json:"top_rules"`
	AlertsOverTime []DayBucket   `json:"alerts_over_time"`
}

// MonthlyStats aggregates the current month to date. NoData is set when
// no index exists yet for the month; that is a structured result, not
// an error.
type MonthlyStats struct {
	NoData         bool          `json:"no_data,omitempty"`
	Message        string        `json:"message,omitempty"`
	Total          int64         `json:"total"`
	RuleLevels     []LevelBucket `json:"rule_levels"`
	TopRules       []RuleBucket  `json:"top_rules"`
	AlertsOverTime []DayBucket   `json:"alerts_over_time"`
}

// WeeklyStats returns aggregate counts for the trailing seven days.
// An empty window produces empty bucket lists, never an error.
func (r *Reader) WeeklyStats(ctx context.Context) (*WeeklyStats, error) {
	now := r.now()
	from := now.AddDate(0, 0, -7)

	pattern := ResolveIndexPattern(&from, &now)
	body := statsBody(from, now)

	res, err := r.gw.Search(ctx, []string{pattern}, body)
	if errors.Is(err, ErrIndexNotFound) {
		return &WeeklyStats{
			RuleLevels:     []LevelBucket{},
			TopRules:       []RuleBucket{},
			AlertsOverTime: []DayBucket{},
		}, nil
	}
	if err != nil {
		metrics.SearchErrorsTotal.Inc()
		return nil, fmt.Errorf("weekly stats: %w", err)
	}
	metrics.SearchQueriesTotal.Inc()

	levels, rules, days, err := decodeStatsAggs(res.Aggregations)
	if err != nil {
		return nil, fmt.Errorf("weekly stats: %w", err)
	}
	return &WeeklyStats{RuleLevels: levels, TopRules: rules, AlertsOverTime: days}, nil
}

// MonthlyStats returns aggregate counts from the first of the current
// month through now. When no index exists for the month yet, a no-data
// result is returned.
func (r *Reader) MonthlyStats(ctx context.Context) (*MonthlyStats, error) {
	now := r.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	pattern := MonthPattern(now)
	exists, err := r.gw.IndexExists(ctx, pattern)
	if err != nil {
		metrics.SearchErrorsTotal.Inc()
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	if !exists {
		log.Printf("monthly stats: no indices match %s yet", pattern)
		return &MonthlyStats{
			NoData:  true,
			Message: "no alerts recorded for the current month",
		}, nil
	}

	body := statsBody(monthStart, now)
	body["track_total_hits"] = true

	res, err := r.gw.Search(ctx, []string{pattern}, body)
	if errors.Is(err, ErrIndexNotFound) {
		return &MonthlyStats{
			NoData:  true,
			Message: "no alerts recorded for the current month",
		}, nil
	}
	if err != nil {
		metrics.SearchErrorsTotal.Inc()
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	metrics.SearchQueriesTotal.Inc()

	levels, rules, days, err := decodeStatsAggs(res.Aggregations)
	if err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	return &MonthlyStats{
		Total:          res.Total,
		RuleLevels:     levels,
		TopRules:       rules,
		AlertsOverTime: days,
	}, nil
}

// statsBody builds the shared aggregation request: per-level counts
// (top 15), top 10 rule descriptions, and a daily histogram with
// explicit bounds so empty days still appear with count zero.
func statsBody(from, to time.Time) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"range": map[string]any{
							"@timestamp": map[string]any{
								"gte": from.Format(time.RFC3339),
								"lte": to.Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
		"aggs": map[string]any{
			"rule_levels": map[string]any{
				"terms": map[string]any{"field": "rule.level", "size": 15},
			},
			"top_rules": map[string]any{
				"terms": map[string]any{"field": "rule.description.keyword", "size": 10},
			},
			"alerts_over_time": map[string]any{
				"date_histogram": map[string]any{
					"field":             "@timestamp",
					"calendar_interval": "day",
					"format":            "yyyy-MM-dd",
					"min_doc_count":     0,
					"extended_bounds": map[string]any{
						"min": from.UnixMilli(),
						"max": to.UnixMilli(),
					},
				},
			},
		},
	}
}

// bucketList mirrors the engine's terms/date_histogram bucket envelope.
type bucketList struct {
	Buckets []struct {
		Key         any    `json:"key"`
		KeyAsString string `json:"key_as_string"`
		DocCount    int64  `json:"doc_count"`
	} `json:"buckets"`
}

func decodeStatsAggs(aggs map[string]json.RawMessage) ([]LevelBucket, []RuleBucket, []DayBucket, error) {
	levels := []LevelBucket{}
	rules := []RuleBucket{}
	days := []DayBucket{}

	var raw bucketList
	if err := decodeAgg(aggs, "rule_levels", &raw); err != nil {
		return nil, nil, nil, err
	}
	for _, b := range raw.Buckets {
		if n, ok := b.Key.(float64); ok {
			levels = append(levels, LevelBucket{Level: int(n), Count: b.DocCount})
		}
	}

	if err := decodeAgg(aggs, "top_rules", &raw); err != nil {
		return nil, nil, nil, err
	}
	for _, b := range raw.Buckets {
		if s, ok := b.Key.(string); ok {
			rules = append(rules, RuleBucket{Description: s, Count: b.DocCount})
		}
	}

	if err := decodeAgg(aggs, "alerts_over_time", &raw); err != nil {
		return nil, nil, nil, err
	}
	for _, b := range raw.Buckets {
		days = append(days, DayBucket{Date: b.KeyAsString, Count: b.DocCount})
	}

	return levels, rules, days, nil
}

func decodeAgg(aggs map[string]json.RawMessage, name string, out *bucketList) error {
	*out = bucketList{}
	raw, ok := aggs[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode aggregation %s: %w", name, err)
	}
	return nil
}
