package course

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/jacktrack/internal/domain/model"
)

// HTMLFile reads a course from a saved HTML scorecard page.
func HTMLFile(path string) Provider {
	return ProviderFunc(func(_ context.Context) (model.Course, error) {
		f, err := os.Open(path)
		if err != nil {
			return model.Course{}, fmt.Errorf("open scorecard %s: %w", path, err)
		}
		defer f.Close()
		return ParseHTML(f)
	})
}

// ParseHTML extracts holes from the first table that carries hole, par and
// yardage data. Both layouts are accepted: one row per hole with a header
// row ("Hole | Par | Yards"), or one row per attribute with the label in the
// first cell ("Hole | 1 | 2 | ...", "Par | 4 | 5 | ...").
func ParseHTML(r io.Reader) (model.Course, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.Course{}, fmt.Errorf("parse scorecard html: %w", err)
	}

	c := model.Course{Name: courseName(doc)}
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := tableRows(table)
		if holes := columnLayout(rows); len(holes) > 0 {
			c.Holes = holes
			return false
		}
		if holes := rowLayout(rows); len(holes) > 0 {
			c.Holes = holes
			return false
		}
		return true
	})
	if len(c.Holes) == 0 {
		return model.Course{}, fmt.Errorf("%w: no scorecard table found", ErrInvalidCourse)
	}
	return c, nil
}

func courseName(doc *goquery.Document) string {
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

type field int

const (
	fieldNone field = iota
	fieldHole
	fieldPar
	fieldYards
)

func classify(label string) field {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(l, "hole"):
		return fieldHole
	case strings.HasPrefix(l, "par"):
		return fieldPar
	case strings.HasPrefix(l, "yard"), strings.HasPrefix(l, "yds"), strings.HasPrefix(l, "length"):
		return fieldYards
	default:
		return fieldNone
	}
}

// columnLayout handles a header row followed by one row per hole.
func columnLayout(rows [][]string) []model.Hole {
	if len(rows) < 2 {
		return nil
	}
	col := map[field]int{}
	for i, h := range rows[0] {
		if f := classify(h); f != fieldNone {
			if _, ok := col[f]; !ok {
				col[f] = i
			}
		}
	}
	hc, okH := col[fieldHole]
	pc, okP := col[fieldPar]
	if !okH || !okP {
		return nil
	}
	yc, okY := col[fieldYards]

	var holes []model.Hole
	for _, row := range rows[1:] {
		n, ok1 := cellInt(row, hc)
		p, ok2 := cellInt(row, pc)
		if !ok1 || !ok2 {
			continue
		}
		h := model.Hole{Number: n, Par: p}
		if okY {
			h.Yardage, _ = cellInt(row, yc)
		}
		holes = append(holes, h)
	}
	return holes
}

// rowLayout handles one row per attribute with numbered columns.
func rowLayout(rows [][]string) []model.Hole {
	var numbers, pars, yards []string
	for _, row := range rows {
		switch classify(row[0]) {
		case fieldHole:
			numbers = row[1:]
		case fieldPar:
			pars = row[1:]
		case fieldYards:
			if yards == nil {
				yards = row[1:]
			}
		}
	}
	if numbers == nil || pars == nil {
		return nil
	}
	var holes []model.Hole
	for i, s := range numbers {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		p, ok := cellInt(pars, i)
		if !ok {
			continue
		}
		h := model.Hole{Number: n, Par: p}
		h.Yardage, _ = cellInt(yards, i)
		holes = append(holes, h)
	}
	return holes
}

func cellInt(row []string, i int) (int, bool) {
	if i < 0 || i >= len(row) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(row[i]))
	if err != nil {
		return 0, false
	}
	return v, true
}
