package model

import (
	"strings"
	"time"
)

// DeriveStatus computes the status of a deadline at the current time.
// See DeriveStatusAt.
func DeriveStatus(deadline string, explicit Status) Status {
	return DeriveStatusAt(deadline, explicit, time.Now())
}

// DeriveStatusAt returns explicit when it is set. Otherwise the deadline is
// read as a local calendar date due at end of day: overdue when that
// instant is strictly before now, pending otherwise or when the date does
// not parse. It never yields done; completion only comes from an override.
func DeriveStatusAt(deadline string, explicit Status, now time.Time) Status {
	if explicit != "" {
		return explicit
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(deadline), now.Location())
	if err != nil {
		return StatusPending
	}
	due := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, now.Location())
	if due.Before(now) {
		return StatusOverdue
	}
	return StatusPending
}

// LiteralStatus returns the status named by a raw table cell when it is
// literally "done" or "overdue", and "" otherwise.
func LiteralStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusDone):
		return StatusDone
	case string(StatusOverdue):
		return StatusOverdue
	}
	return ""
}

// MapRemoteStatus maps a document API status onto a milestone status.
func MapRemoteStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vectorized":
		return StatusDone
	case "error", "failed":
		return StatusOverdue
	default:
		return StatusPending
	}
}
