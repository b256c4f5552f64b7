// Package alerts provides alert search and reporting API endpoints.
package alerts

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/search"
)

// Pagination bounds. Oversized pages are rejected, not clamped.
const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// parsePagination extracts page and per_page from query parameters.
func parsePagination(q url.Values) (page, perPage int, err error) {
	page = defaultPage
	perPage = defaultPerPage

	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
	}
	if v := q.Get("per_page"); v != "" {
		perPage, err = strconv.Atoi(v)
		if err != nil || perPage < 1 {
			return 0, 0, fmt.Errorf("per_page must be a positive integer")
		}
		if perPage > maxPerPage {
			return 0, 0, fmt.Errorf("per_page must be at most %d", maxPerPage)
		}
	}
	return page, perPage, nil
}

// parseFilters builds search filters from query parameters.
func parseFilters(q url.Values) (*search.Filters, error) {
	f := &search.Filters{}

	if v := q.Get("agent_ids"); v != "" {
		f.AgentIDs = splitCSV(v)
	}
	if v := q.Get("rule_levels"); v != "" {
		for _, s := range splitCSV(v) {
			level, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("invalid rule level %q", s)
			}
			f.RuleLevels = append(f.RuleLevels, level)
		}
	}
	if v := q.Get("rule_groups"); v != "" {
		f.RuleGroups = splitCSV(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("from must be an RFC 3339 timestamp")
		}
		f.FromDate = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("to must be an RFC 3339 timestamp")
		}
		f.ToDate = &t
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return nil, fmt.Errorf("to must not precede from")
	}
	f.SearchTerm = q.Get("search")
	f.AlertID = q.Get("alert_id")

	return f, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
