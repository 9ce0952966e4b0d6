// Package parser turns pasted or uploaded tabular text into milestones.
//
// Both formats share one positional column layout: deadline, name,
// document reference, context, status. The first row is always a header.
// Parsers are total: malformed input yields fewer rows, never an error.
package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techpathlabs/milestonedesk/model"
)

// Defaults for cells a row leaves blank
const (
	DefaultDocumentRef = "—"
	DefaultContext     = "Imported"
)

// Format identifies the tabular shape of a piece of text
type Format string

// Format constants
const (
	FormatNone Format = ""
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// Parser converts table rows into milestones. The zero value uses the wall
// clock and random UUIDs.
type Parser struct {
	Now   func() time.Time
	NewID func() string
}

var (
	defaultParser = &Parser{}
	tableTag      = regexp.MustCompile(`(?i)<table[\s>]`)
)

// ParseHTMLTable parses the first <table> of html with the default parser.
func ParseHTMLTable(html string) []model.Milestone {
	return defaultParser.ParseHTMLTable(html)
}

// ParseCSVText parses comma-separated text with the default parser.
func ParseCSVText(csv string) []model.Milestone {
	return defaultParser.ParseCSVText(csv)
}

// FromCells maps positional cells onto a milestone with the default parser.
func FromCells(cells []string, index int) model.Milestone {
	return defaultParser.FromCells(cells, index)
}

// Detect reports which parser applies to free text: HTML when it contains
// a table element, CSV when it has a comma and at least two non-blank lines.
func Detect(text string) Format {
	if tableTag.MatchString(text) {
		return FormatHTML
	}
	if strings.Contains(text, ",") && len(nonBlankLines(text)) >= 2 {
		return FormatCSV
	}
	return FormatNone
}

// DetectFile picks a format from a file name extension.
func DetectFile(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatNone
}

// ParseFile parses file content picked by the file name extension, falling
// back to content sniffing for unknown extensions.
func (p *Parser) ParseFile(name string, content []byte) []model.Milestone {
	text := string(content)
	format := DetectFile(name)
	if format == FormatNone {
		format = Detect(text)
	}
	return p.Parse(format, text)
}

// Parse runs the parser for format over text.
func (p *Parser) Parse(format Format, text string) []model.Milestone {
	switch format {
	case FormatHTML:
		return p.ParseHTMLTable(text)
	case FormatCSV:
		return p.ParseCSVText(text)
	}
	return nil
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Parser) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.New().String()
}

// FromCells maps positional cells (deadline, name, document reference,
// context, status) onto a milestone. index is the row's position in the
// source, header included, and names rows that have no name cell.
func (p *Parser) FromCells(cells []string, index int) model.Milestone {
	cell := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}

	now := p.now()
	deadline := cell(0)
	if deadline == "" {
		deadline = now.Format(model.DateLayout)
	}

	raw := cell(4)
	status := model.LiteralStatus(raw)
	if status == "" {
		status = model.DeriveStatusAt(deadline, "", now)
	}

	return model.Milestone{
		ID:           p.newID(),
		DeadlineDate: deadline,
		Name:         orDefault(cell(1), fmt.Sprintf("Row %d", index)),
		DocumentRef:  orDefault(cell(2), DefaultDocumentRef),
		Context:      orDefault(cell(3), DefaultContext),
		Status:       status,
		RawStatus:    raw,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
