package parser

import (
	"strings"

	"github.com/techpathlabs/milestonedesk/model"
)

// ParseCSVText parses csv as a header line followed by data lines. Fields
// are split on commas followed by an even number of double quotes; one
// surrounding quote is stripped from each side and the field is trimmed.
// Nested or escaped quotes are not supported. Lines with fewer than two
// fields are skipped.
func (p *Parser) ParseCSVText(csv string) []model.Milestone {
	lines := nonBlankLines(csv)
	if len(lines) < 2 {
		return []model.Milestone{}
	}

	milestones := make([]model.Milestone, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		cells := splitCSVLine(strings.TrimRight(lines[i], "\r"))
		if len(cells) < 2 {
			continue
		}
		milestones = append(milestones, p.FromCells(cells, i))
	}
	return milestones
}

// splitCSVLine splits on each comma followed by an even number of double
// quotes up to the end of the line. On balanced lines this means commas
// outside quoted spans. An unbalanced quote keeps every comma to its left
// inside one cell.
func splitCSVLine(line string) []string {
	runes := []rune(line)
	quotesAfter := make([]int, len(runes)+1)
	for i := len(runes) - 1; i >= 0; i-- {
		quotesAfter[i] = quotesAfter[i+1]
		if runes[i] == '"' {
			quotesAfter[i]++
		}
	}

	var cells []string
	start := 0
	for i, r := range runes {
		if r == ',' && quotesAfter[i+1]%2 == 0 {
			cells = append(cells, cleanCSVField(string(runes[start:i])))
			start = i + 1
		}
	}
	cells = append(cells, cleanCSVField(string(runes[start:])))
	return cells
}

func cleanCSVField(f string) string {
	f = strings.TrimPrefix(f, `"`)
	f = strings.TrimSuffix(f, `"`)
	return strings.TrimSpace(f)
}
