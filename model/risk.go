package model

import (
	"math"
	"strings"
	"time"
)

// RiskLevel grades how much attention a milestone needs
type RiskLevel string

// RiskLevel constants
const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Assessment is the risk view of a single milestone
type Assessment struct {
	Level          RiskLevel `json:"level"`
	DaysRemaining  int       `json:"days_remaining"`
	Overdue        bool      `json:"overdue"`
	Recommendation string    `json:"recommendation"`
}

// Assess grades a milestone at the given time.
func Assess(m Milestone, now time.Time) Assessment {
	days := 0
	if day, err := time.ParseInLocation(DateLayout, m.DeadlineDate, now.Location()); err == nil {
		days = int(math.Round(day.Sub(now).Hours() / 24))
	}

	raw := strings.ToLower(m.RawStatus)
	a := Assessment{DaysRemaining: days, Overdue: days < 0}

	switch {
	case raw == "vectorized":
		a.Level = RiskLow
		a.Recommendation = "This document has been successfully vectorized. No further action required."
	case raw == "error" || raw == "failed" || days < 0:
		a.Level = RiskHigh
		a.Recommendation = "This document requires immediate attention. Review processing errors and consider re-uploading."
	case raw == "processing" || raw == "uploading":
		a.Level = RiskMedium
		a.Recommendation = "This document is currently being processed. Monitor progress and ensure pipeline completion."
	default:
		a.Level = RiskLow
		a.Recommendation = "This document status is nominal. Monitor periodically during the next refresh cycle."
	}
	return a
}
