package model

import (
	"sort"
	"strings"
	"time"
)

// RecordsPerPage is the dashboard table page size
const RecordsPerPage = 10

// FormatUploadDate renders an upload timestamp as "dd.mm.yyyy hh:mm" in
// local time, or "-" when it is missing or unparsable.
func FormatUploadDate(ts string) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return "-"
	}
	return t.Local().Format("02.01.2006 15:04")
}

// ParseTimestamp accepts RFC3339 timestamps (with or without fraction) and
// bare calendar dates.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Filter returns the milestones whose visible fields contain q,
// case-insensitively. A blank query matches everything.
func Filter(items []Milestone, q string) []Milestone {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]Milestone(nil), items...)
	}

	var result []Milestone
	for _, m := range items {
		fields := []string{
			m.Name, m.DocumentRef, m.Context, string(m.Status), m.DeadlineDate,
			m.FileName, m.Lender, m.Borrower,
		}
		if m.UploadTime != "" {
			fields = append(fields, FormatUploadDate(m.UploadTime))
		}
		for _, f := range fields {
			if f != "" && strings.Contains(strings.ToLower(f), q) {
				result = append(result, m)
				break
			}
		}
	}
	return result
}

// SortByUploadDesc orders milestones newest upload first. Rows without an
// upload time keep their relative order after the timestamped ones.
func SortByUploadDesc(items []Milestone) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, okI := ParseTimestamp(items[i].UploadTime)
		tj, okJ := ParseTimestamp(items[j].UploadTime)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
}

// Page is one slice of a paginated listing
type Page struct {
	Items      []Milestone `json:"items"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
}

// Paginate returns the requested page, clamped into [1, TotalPages].
func Paginate(items []Milestone, page, perPage int) Page {
	if perPage <= 0 {
		perPage = RecordsPerPage
	}
	totalPages := (len(items) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	return Page{
		Items:      append([]Milestone{}, items[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		Total:      len(items),
	}
}
