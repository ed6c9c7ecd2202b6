package timeparse

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2026, 1, 16, 15, 30, 0, 0, loc)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"24h", now.Add(-24 * time.Hour)},
		{"3d", now.AddDate(0, 0, -3)},
		{"2w", now.AddDate(0, 0, -14)},
		{" 1H ", now.Add(-time.Hour)},
		{"today", time.Date(2026, 1, 16, 0, 0, 0, 0, loc)},
		{"Yesterday", time.Date(2026, 1, 15, 0, 0, 0, 0, loc)},
		{"now", now},
		{"2026-01-10", time.Date(2026, 1, 10, 0, 0, 0, 0, loc)},
		{"2026-01-10T08:15:00", time.Date(2026, 1, 10, 8, 15, 0, 0, loc)},
		{"2026-01-10T08:15:00Z", time.Date(2026, 1, 10, 8, 15, 0, 0, time.UTC)},
		{"2026-01-10T08:15:00+02:00", time.Date(2026, 1, 10, 6, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.expr, now)
		if !ok {
			t.Errorf("Parse(%q) failed", tt.expr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseUnrecognized(t *testing.T) {
	now := time.Now()
	for _, expr := range []string{"", "   ", "last tuesday", "5m", "h24", "2026-13-45", "-3d"} {
		if got, ok := Parse(expr, now); ok {
			t.Errorf("Parse(%q) = %v, want no bound", expr, got)
		}
	}
}

func TestCompactRelative(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{15 * 24 * time.Hour, "2w ago"},
		{100 * 24 * time.Hour, "Nov 21, 2025"},
	}
	for _, tt := range tests {
		if got := CompactRelative(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("CompactRelative(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
