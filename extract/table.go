// Package extract turns the terminal's container-availability results page
// into typed container data. The page carries one table whose header row
// names the columns and whose first body row describes the container.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Column headers of the availability table, lower-cased.
const (
	ColContainerNumber         = "container number"
	ColAvailable               = "available"
	ColLocation                = "location"
	ColTrucker                 = "trucker"
	ColCustomsStatus           = "customs status"
	ColFreightStatus           = "freight status"
	ColMiscHolds               = "misc holds"
	ColTerminalDemurrageAmount = "terminal demurrage amount"
	ColLastFreeDay             = "last free day"
	ColLastGuarDay             = "last guar. day"
	ColPayThroughDate          = "pay through date"
	ColNonDemurrageAmount      = "non demurrage amount"
	ColSSCO                    = "ssco"
	ColType                    = "type"
	ColLength                  = "length"
	ColHeight                  = "height"
	ColHazardous               = "hazardous"
	ColGensetRequired          = "genset required"
)

// Columns lists the table headers in page order.
var Columns = []string{
	ColContainerNumber, ColAvailable, ColLocation, ColTrucker,
	ColCustomsStatus, ColFreightStatus, ColMiscHolds, ColTerminalDemurrageAmount,
	ColLastFreeDay, ColLastGuarDay, ColPayThroughDate, ColNonDemurrageAmount,
	ColSSCO, ColType, ColLength, ColHeight, ColHazardous, ColGensetRequired,
}

// ErrEmptyDocument is returned for a blank raw document.
var ErrEmptyDocument = errors.New("extract: empty document")

// Row maps lower-cased column headers to trimmed cell text.
type Row map[string]string

// Get returns the trimmed cell under header, or "".
func (r Row) Get(header string) string {
	return r[header]
}

// ParseTable finds the availability table in doc and returns its first
// data row. A page without the table, or with an empty body, yields an
// empty Row and no error.
func ParseTable(doc string) (Row, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ErrEmptyDocument
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	table := findTable(root)
	if table == nil {
		return Row{}, nil
	}

	var headers []string
	row := Row{}
	for _, tr := range collect(table, atom.Tr) {
		cells, isHeader := cellsOf(tr)
		if len(cells) == 0 {
			continue
		}
		if isHeader {
			if headers == nil {
				for _, c := range cells {
					headers = append(headers, strings.ToLower(c))
				}
			}
			continue
		}
		if headers == nil {
			continue
		}
		for i, c := range cells {
			if i < len(headers) {
				row[headers[i]] = c
			}
		}
		break
	}
	return row, nil
}

// findTable returns the first table whose header row names the container
// number column.
func findTable(root *html.Node) *html.Node {
	for _, t := range collect(root, atom.Table) {
		for _, th := range collect(t, atom.Th) {
			if strings.EqualFold(textOf(th), ColContainerNumber) {
				return t
			}
		}
	}
	return nil
}

// collect returns every descendant element of n with the given atom, in
// document order. Nested tables are not entered once a match is found.
func collect(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// cellsOf returns the text of the direct th/td children of tr and whether
// the row is a header row.
func cellsOf(tr *html.Node) ([]string, bool) {
	var cells []string
	header := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			header = true
			cells = append(cells, textOf(c))
		case atom.Td:
			cells = append(cells, textOf(c))
		}
	}
	return cells, header
}

// textOf returns the whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
