// Package export renders milestones as CSV text.
//
// Free-text fields are wrapped in double quotes but embedded quotes are not
// escaped, so a field containing a quote or a line break does not survive a
// parse round trip byte for byte. Record counts do.
package export

import (
	"strings"
	"time"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/model"
)

// Column headers per sync mode
const (
	RemoteHeader = "Name,Upload Date,Lender,Borrower,Status"
	LocalHeader  = "Deadline,Task,Document Reference,Agreement / Project Context,Status"
)

// ContentType of generated exports
const ContentType = "text/csv"

// Header returns the column header used for mode.
func Header(mode string) string {
	if mode == config.ModeLocal {
		return LocalHeader
	}
	return RemoteHeader
}

// GenerateCSV renders records with the header of mode, one line per record.
func GenerateCSV(records []model.Milestone, mode string) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, Header(mode))
	for _, m := range records {
		if mode == config.ModeLocal {
			lines = append(lines, localRow(m))
		} else {
			lines = append(lines, remoteRow(m))
		}
	}
	return strings.Join(lines, "\n")
}

func localRow(m model.Milestone) string {
	return strings.Join([]string{
		m.DeadlineDate,
		quote(m.Name),
		quote(m.DocumentRef),
		quote(m.Context),
		string(m.Status),
	}, ",")
}

func remoteRow(m model.Milestone) string {
	status := m.RawStatus
	if status == "" {
		status = string(m.Status)
	}
	return strings.Join([]string{
		quote(m.Name),
		quote(model.FormatUploadDate(m.UploadTime)),
		quote(m.Lender),
		quote(m.Borrower),
		status,
	}, ",")
}

func quote(s string) string {
	return `"` + s + `"`
}

// Filename names an export after its creation time, with the characters
// that are unsafe in file names replaced.
func Filename(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return "milestones-" + ts + ".csv"
}
