package alerts

import (
	"net/url"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
		wantErr     bool
	}{
		{"defaults", "", 1, 20, false},
		{"explicit", "page=3&per_page=50", 3, 50, false},
		{"max per_page", "per_page=100", 1, 100, false},
		{"over max rejected", "per_page=101", 0, 0, true},
		{"zero page", "page=0", 0, 0, true},
		{"negative per_page", "per_page=-1", 0, 0, true},
		{"non-numeric", "page=abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			page, perPage, err := parsePagination(q)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page != tt.wantPage || perPage != tt.wantPerPage {
				t.Errorf("got page=%d per_page=%d, want %d/%d", page, perPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestParseFilters(t *testing.T) {
	q, _ := url.ParseQuery("agent_ids=001,002&rule_levels=10,12&rule_groups=sshd&from=2026-08-01T00:00:00Z&to=2026-08-31T00:00:00Z&search=failed&alert_id=abc")

	f, err := parseFilters(q)
	if err != nil {
		t.Fatalf("parseFilters() error = %v", err)
	}
	if len(f.AgentIDs) != 2 || f.AgentIDs[1] != "002" {
		t.Errorf("agent ids = %v", f.AgentIDs)
	}
	if len(f.RuleLevels) != 2 || f.RuleLevels[0] != 10 {
		t.Errorf("rule levels = %v", f.RuleLevels)
	}
	if f.FromDate == nil || f.ToDate == nil {
		t.Fatal("expected both date bounds")
	}
	if f.SearchTerm != "failed" || f.AlertID != "abc" {
		t.Errorf("search = %q alert_id = %q", f.SearchTerm, f.AlertID)
	}
}

func TestParseFiltersRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric rule level", "rule_levels=ten"},
		{"bad from timestamp", "from=yesterday"},
		{"bad to timestamp", "to=2026-08-31"},
		{"inverted range", "from=2026-08-31T00:00:00Z&to=2026-08-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			if _, err := parseFilters(q); err == nil {
				t.Error("expected error")
			}
		})
	}
}
