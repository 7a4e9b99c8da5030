package analytics

import (
	"errors"
	"testing"
	"time"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2026, time.August, 10, 12, 30, 0, 0, time.Local)

	tests := []struct {
		label    string
		wantFrom time.Time
	}{
		{"7d", time.Date(2026, time.August, 4, 0, 0, 0, 0, time.Local)},
		{"30d", time.Date(2026, time.July, 12, 0, 0, 0, 0, time.Local)},
		{"all", time.Time{}},
	}
	for _, tt := range tests {
		win, err := ResolveRange(tt.label, now)
		if err != nil {
			t.Fatalf("ResolveRange(%q) error: %v", tt.label, err)
		}
		if !win.From.Equal(tt.wantFrom) {
			t.Errorf("ResolveRange(%q).From = %v, want %v", tt.label, win.From, tt.wantFrom)
		}
		if !win.To.Equal(now) {
			t.Errorf("ResolveRange(%q).To = %v, want %v", tt.label, win.To, now)
		}
		if win.Label != tt.label {
			t.Errorf("ResolveRange(%q).Label = %q", tt.label, win.Label)
		}
	}
}

func TestResolveRangeCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.Local)
	win, err := ResolveRange("7d", now)
	if err != nil {
		t.Fatalf("ResolveRange: %v", err)
	}
	want := time.Date(2026, time.February, 25, 0, 0, 0, 0, time.Local)
	if !win.From.Equal(want) {
		t.Errorf("From = %v, want %v", win.From, want)
	}
}

func TestResolveRangeUnknownLabel(t *testing.T) {
	for _, label := range []string{"", "90d", "week", "7D"} {
		if _, err := ResolveRange(label, time.Now()); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ResolveRange(%q) error = %v, want ErrInvalidRange", label, err)
		}
	}
}
