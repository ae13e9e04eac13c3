package productview

import "github.com/odyssey-erp/stockdesk/internal/catalog"

// Snapshot is an immutable copy of the materialized product list. Methods that
// change it return a new Snapshot.
type Snapshot struct {
	rows []catalog.Product
}

// NewSnapshot copies rows into a Snapshot.
func NewSnapshot(rows []catalog.Product) Snapshot {
	return Snapshot{rows: append([]catalog.Product(nil), rows...)}
}

// Rows returns a copy of the raw rows in source order.
func (s Snapshot) Rows() []catalog.Product {
	return append([]catalog.Product(nil), s.rows...)
}

// Len reports the number of rows.
func (s Snapshot) Len() int { return len(s.rows) }

// Find returns the row with id.
func (s Snapshot) Find(id int64) (catalog.Product, bool) {
	for _, p := range s.rows {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Replace returns a snapshot with the row sharing p.ID swapped for p.
func (s Snapshot) Replace(p catalog.Product) Snapshot {
	rows := s.Rows()
	for i := range rows {
		if rows[i].ID == p.ID {
			rows[i] = p
			return Snapshot{rows: rows}
		}
	}
	return s
}

// Without returns a snapshot lacking the row with id.
func (s Snapshot) Without(id int64) Snapshot {
	rows := make([]catalog.Product, 0, len(s.rows))
	for _, p := range s.rows {
		if p.ID != id {
			rows = append(rows, p)
		}
	}
	return Snapshot{rows: rows}
}

// Only returns a snapshot restricted to ids, preserving source order.
func (s Snapshot) Only(ids map[int64]struct{}) Snapshot {
	rows := make([]catalog.Product, 0, len(ids))
	for _, p := range s.rows {
		if _, ok := ids[p.ID]; ok {
			rows = append(rows, p)
		}
	}
	return Snapshot{rows: rows}
}
