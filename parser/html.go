package parser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/techpathlabs/milestonedesk/model"
)

// ParseHTMLTable parses the first <table> element of html. The first row is
// a header; rows with fewer than two cells are skipped. Input without a
// table yields an empty result.
func (p *Parser) ParseHTMLTable(htmlText string) []model.Milestone {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return []model.Milestone{}
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return []model.Milestone{}
	}

	rows := tableRows(table)
	milestones := make([]model.Milestone, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		cells := rowCells(rows[i])
		if len(cells) < 2 {
			continue
		}
		milestones = append(milestones, p.FromCells(cells, i))
	}
	return milestones
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// tableRows collects the <tr> elements of table in document order, without
// descending into nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Table:
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, strings.TrimSpace(textContent(c)))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
