package main

import (
	"testing"
	"time"
)

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := time.Date(2025, 6, 2, 8, 30, 0, 0, time.Local)

	tests := []struct {
		name string
		in   *time.Time
		want string
	}{
		{"none", nil, "never"},
		{"past", &past, "expired"},
		{"now", &now, "expired"},
		{"future", &future, "2025-06-02 08:30"},
	}
	for _, tt := range tests {
		if got := expiry(tt.in, now); got != tt.want {
			t.Errorf("%s: expiry() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOrDash(t *testing.T) {
	if got := orDash(""); got != "-" {
		t.Errorf("orDash(\"\") = %q", got)
	}
	if got := orDash("x"); got != "x" {
		t.Errorf("orDash(\"x\") = %q", got)
	}
}
