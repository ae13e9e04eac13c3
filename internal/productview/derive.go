package productview

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
)

// Direction orders a sort.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort selects one column and a direction.
type Sort struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// Params are the inputs of a derivation besides the raw rows. Blank filter
// texts are inactive.
type Params struct {
	Filters     map[Column]string `json:"filters,omitempty"`
	SearchField Column            `json:"searchField,omitempty"`
	SearchText  string            `json:"searchText,omitempty"`
	Sort        *Sort             `json:"sort,omitempty"`
}

// WithFilter returns a copy of p with the filter on c set to text.
func (p Params) WithFilter(c Column, text string) Params {
	out := p.clone()
	if out.Filters == nil {
		out.Filters = map[Column]string{}
	}
	out.Filters[c] = text
	return out
}

func (p Params) clone() Params {
	out := p
	if p.Filters != nil {
		out.Filters = make(map[Column]string, len(p.Filters))
		for k, v := range p.Filters {
			out.Filters[k] = v
		}
	}
	if p.Sort != nil {
		s := *p.Sort
		out.Sort = &s
	}
	return out
}

type needle struct {
	column Column
	text   string
}

// Derive applies the column filters, then the single-field search, then a
// stable sort. It does not modify s and the result depends only on its inputs.
func Derive(s Snapshot, p Params) []catalog.Product {
	fold := cases.Fold()
	var needles []needle
	for col, text := range p.Filters {
		if strings.TrimSpace(text) == "" {
			continue
		}
		needles = append(needles, needle{column: col, text: fold.String(text)})
	}
	if p.SearchField != "" && strings.TrimSpace(p.SearchText) != "" {
		needles = append(needles, needle{column: p.SearchField, text: fold.String(p.SearchText)})
	}

	out := make([]catalog.Product, 0, len(s.rows))
	for _, row := range s.rows {
		if matches(row, needles, fold) {
			out = append(out, row)
		}
	}
	if p.Sort != nil && p.Sort.Column != "" {
		sortRows(out, *p.Sort)
	}
	return out
}

func matches(row catalog.Product, needles []needle, fold cases.Caser) bool {
	for _, n := range needles {
		value, ok := n.column.text(row)
		if !ok || !strings.Contains(fold.String(value), n.text) {
			return false
		}
	}
	return true
}

// sortRows sorts stably. Nulls sort first ascending; descending is the exact
// reverse of the ascending order with ties kept in prior order.
func sortRows(rows []catalog.Product, s Sort) {
	coll := collate.New(language.English, collate.IgnoreCase)
	sign := 1
	if s.Direction == Descending {
		sign = -1
	}
	slices.SortStableFunc(rows, func(a, b catalog.Product) int {
		return sign * compareBy(s.Column, a, b, coll)
	})
}

func compareBy(c Column, a, b catalog.Product, coll *collate.Collator) int {
	switch c.kind() {
	case kindNumber:
		return cmp.Compare(c.number(a), c.number(b))
	case kindTime:
		return a.LastUpdated.Compare(b.LastUpdated)
	}
	as, aok := c.text(a)
	bs, bok := c.text(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return coll.CompareString(as, bs)
}
