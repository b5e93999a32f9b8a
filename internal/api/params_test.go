package api

import (
	"net/http/httptest"
	"testing"
)

func TestParsePageParam(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing", "/titles", 1},
		{"valid", "/titles?page=3", 3},
		{"zero", "/titles?page=0", 1},
		{"negative", "/titles?page=-2", 1},
		{"garbage", "/titles?page=abc", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			if got := ParsePageParam(r); got != tt.want {
				t.Errorf("ParsePageParam(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestParsePerPageParam(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing uses default", "/titles", 20},
		{"valid", "/titles?per_page=50", 50},
		{"over max uses default", "/titles?per_page=500", 20},
		{"zero uses default", "/titles?per_page=0", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			if got := ParsePerPageParam(r, 20, 100); got != tt.want {
				t.Errorf("ParsePerPageParam(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseQueryInt64(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		param   string
		want    int64
		wantSet bool
	}{
		{"present", "/titles?year=1979", "year", 1979, true},
		{"absent", "/titles", "year", 0, false},
		{"garbage", "/titles?year=x", "year", 0, false},
		{"zero is a value", "/titles?year=0", "year", 0, true},
		{"negative year", "/titles?year=-500", "year", -500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got, set := ParseQueryInt64(r, tt.param)
			if got != tt.want || set != tt.wantSet {
				t.Errorf("ParseQueryInt64(%q, %q) = (%d, %v), want (%d, %v)",
					tt.url, tt.param, got, set, tt.want, tt.wantSet)
			}
		})
	}
}

func TestParseURLParamInt64(t *testing.T) {
	r := newGetRequest(t, "/titles/42", map[string]string{"id": "42"})
	id, err := ParseURLParamInt64(r, "id")
	if err != nil || id != 42 {
		t.Errorf("ParseURLParamInt64 = (%d, %v), want (42, nil)", id, err)
	}

	r = newGetRequest(t, "/titles/abc", map[string]string{"id": "abc"})
	if _, err := ParseURLParamInt64(r, "id"); err == nil {
		t.Error("ParseURLParamInt64 accepted non-numeric id")
	}

	r = newGetRequest(t, "/titles", nil)
	if _, err := ParseURLParamInt64(r, "id"); err == nil {
		t.Error("ParseURLParamInt64 accepted missing param")
	}
}

func TestCalculateTotalPages(t *testing.T) {
	tests := []struct {
		total   int
		perPage int
		want    int
	}{
		{0, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 20, 5},
		{5, 0, 1},
	}

	for _, tt := range tests {
		if got := CalculateTotalPages(tt.total, tt.perPage); got != tt.want {
			t.Errorf("CalculateTotalPages(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}
