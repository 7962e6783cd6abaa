package httputil

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit", "?page=3&per_page=50", 3, 50, 100},
		{"zero page clamps", "?page=0", 1, 20, 0},
		{"per_page capped", "?per_page=500", 1, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/audit_log"+tt.query, nil)
			p, err := ParsePagination(r)
			if err != nil {
				t.Fatalf("ParsePagination: %v", err)
			}
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("got page=%d per_page=%d, want %d/%d", p.Page, p.PerPage, tt.wantPage, tt.wantPerPage)
			}
			if p.Offset() != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", p.Offset(), tt.wantOffset)
			}
		})
	}
}

func TestParsePaginationRejectsGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/audit_log?page=abc", nil)
	if _, err := ParsePagination(r); err == nil {
		t.Error("non-numeric page must error")
	}
}
