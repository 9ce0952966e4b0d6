package model

import (
	"testing"
	"time"
)

func TestDeriveStatusAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline string
		explicit Status
		want     Status
	}{
		{"past date is overdue", "2025-06-14", "", StatusOverdue},
		{"same day is still pending", "2025-06-15", "", StatusPending},
		{"future date is pending", "2030-01-01", "", StatusPending},
		{"unparsable is pending", "next tuesday", "", StatusPending},
		{"empty is pending", "", "", StatusPending},
		{"padded date parses", "  2020-01-01 ", "", StatusOverdue},
		{"explicit done wins", "2030-01-01", StatusDone, StatusDone},
		{"explicit pending wins over past", "2001-01-01", StatusPending, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatusAt(tt.deadline, tt.explicit, now); got != tt.want {
				t.Errorf("DeriveStatusAt(%q, %q) = %q, want %q", tt.deadline, tt.explicit, got, tt.want)
			}
		})
	}
}

func TestDeriveStatusAtEndOfDay(t *testing.T) {
	day := "2025-06-15"
	justBefore := time.Date(2025, 6, 15, 23, 59, 58, 0, time.UTC)
	justAfter := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	if got := DeriveStatusAt(day, "", justBefore); got != StatusPending {
		t.Errorf("Expected pending before end of day, got %q", got)
	}
	if got := DeriveStatusAt(day, "", justAfter); got != StatusOverdue {
		t.Errorf("Expected overdue after end of day, got %q", got)
	}
}

func TestDeriveStatusAtShortDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	// 2024-03-10 has 23 hours in New York.
	afterMidnight := time.Date(2024, 3, 11, 0, 30, 0, 0, loc)
	if got := DeriveStatusAt("2024-03-10", "", afterMidnight); got != StatusOverdue {
		t.Errorf("Expected overdue after wall-clock end of day, got %q", got)
	}

	lateEvening := time.Date(2024, 3, 10, 23, 59, 0, 0, loc)
	if got := DeriveStatusAt("2024-03-10", "", lateEvening); got != StatusPending {
		t.Errorf("Expected pending before wall-clock end of day, got %q", got)
	}
}

func TestDeriveStatusNeverDone(t *testing.T) {
	inputs := []string{"", "done", "2019-01-01", "2099-12-31", "<b>", "2020-13-45", "vectorized"}
	for _, in := range inputs {
		if got := DeriveStatus(in, ""); got == StatusDone {
			t.Errorf("DeriveStatus(%q) produced done", in)
		}
	}
}

func TestLiteralStatus(t *testing.T) {
	tests := map[string]Status{
		"done":     StatusDone,
		" DONE ":   StatusDone,
		"Overdue":  StatusOverdue,
		"pending":  "",
		"complete": "",
		"":         "",
	}
	for raw, want := range tests {
		if got := LiteralStatus(raw); got != want {
			t.Errorf("LiteralStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMapRemoteStatus(t *testing.T) {
	tests := map[string]Status{
		"vectorized": StatusDone,
		"Vectorized": StatusDone,
		"error":      StatusOverdue,
		"failed":     StatusOverdue,
		"processing": StatusPending,
		"uploading":  StatusPending,
		"":           StatusPending,
	}
	for raw, want := range tests {
		if got := MapRemoteStatus(raw); got != want {
			t.Errorf("MapRemoteStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}
