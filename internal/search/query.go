package search

import "time"

// Filters narrows an alert search. Every set field contributes one
// clause; clauses are combined with bool/must semantics. A nil or empty
// filter set matches everything.
type Filters struct {
	AgentIDs   []string
	RuleLevels []int
	RuleGroups []string
	FromDate   *time.Time
	ToDate     *time.Time
	SearchTerm string
	AlertID    string
}

// BuildQuery builds the query portion of a search request body from the
// filter set. The output is the engine's native query DSL expressed as
// nested maps.
func BuildQuery(f *Filters) map[string]any {
	var must []any

	if f != nil {
		if len(f.AgentIDs) > 0 {
			must = append(must, termsClause("agent.id", f.AgentIDs))
		}
		if len(f.RuleLevels) > 0 {
			must = append(must, termsClause("rule.level", f.RuleLevels))
		}
		if len(f.RuleGroups) > 0 {
			must = append(must, termsClause("rule.groups", f.RuleGroups))
		}
		if f.FromDate != nil || f.ToDate != nil {
			bounds := map[string]any{}
			if f.FromDate != nil {
				bounds["gte"] = f.FromDate.Format(time.RFC3339)
			}
			if f.ToDate != nil {
				bounds["lte"] = f.ToDate.Format(time.RFC3339)
			}
			must = append(must, map[string]any{
				"range": map[string]any{"@timestamp": bounds},
			})
		}
		if f.SearchTerm != "" {
			must = append(must, map[string]any{
				"multi_match": map[string]any{
					"query":  f.SearchTerm,
					"fields": []string{"rule.description", "full_log", "agent.name"},
				},
			})
		}
		if f.AlertID != "" {
			must = append(must, map[string]any{
				"ids": map[string]any{"values": []string{f.AlertID}},
			})
		}
	}

	if len(must) == 0 {
		must = []any{map[string]any{"match_all": map[string]any{}}}
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
	}
}

// BuildSearchBody builds a full search request body: filters plus
// paging and newest-first ordering. Offsets are zero-based, page is
// one-based; callers validate page/size bounds.
func BuildSearchBody(f *Filters, page, size int) map[string]any {
	body := BuildQuery(f)
	body["from"] = (page - 1) * size
	body["size"] = size
	body["sort"] = []any{
		map[string]any{"@timestamp": map[string]any{"order": "desc"}},
	}
	return body
}

func termsClause[T any](field string, values []T) map[string]any {
	return map[string]any{"terms": map[string]any{field: values}}
}
