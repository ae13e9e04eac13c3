package productview

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// Source materializes the product list.
type Source interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// Editor persists row edits and deletions.
type Editor interface {
	UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

// RowState is the lifecycle state of a row in the table.
type RowState string

const (
	RowAbsent   RowState = "absent"
	RowListed   RowState = "listed"
	RowSelected RowState = "selected"
	RowEditing  RowState = "editing"
)

// ErrEditInProgress is returned when a second row enters editing.
var ErrEditInProgress = fmt.Errorf("%w: another row is being edited", shared.ErrConstraint)

// Model holds the raw snapshot and the parameters around it. The derived list
// is never stored; Rows recomputes it.
type Model struct {
	mu       sync.Mutex
	snapshot Snapshot
	params   Params
	selected map[int64]struct{}
	columns  []Column
	editing  int64
	lastErr  error
}

// NewModel returns an empty model with every column visible.
func NewModel() *Model {
	return &Model{
		selected: map[int64]struct{}{},
		columns:  slices.Clone(AllColumns),
	}
}

// Refresh replaces the snapshot from src and drops selected or editing ids
// that no longer exist. On failure the previous snapshot is kept and the error
// is retained for Err.
func (m *Model) Refresh(ctx context.Context, src Source) error {
	rows, err := src.ListProducts(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastErr = err
		return err
	}
	m.snapshot = NewSnapshot(rows)
	m.lastErr = nil
	for id := range m.selected {
		if _, ok := m.snapshot.Find(id); !ok {
			delete(m.selected, id)
		}
	}
	if _, ok := m.snapshot.Find(m.editing); !ok {
		m.editing = 0
	}
	return nil
}

// Err returns the error of the last failed refresh, if it has not been
// followed by a successful one.
func (m *Model) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Snapshot returns the raw snapshot.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Params returns a copy of the current parameters.
func (m *Model) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.clone()
}

// SetParams replaces the derivation parameters. Selection is untouched.
func (m *Model) SetParams(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p.clone()
}

// Rows derives the visible rows.
func (m *Model) Rows() []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Derive(m.snapshot, m.params)
}

// Toggle flips selection of id and reports the new state.
func (m *Model) Toggle(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshot.Find(id); !ok {
		return false, fmt.Errorf("productview: toggle %d: %w", id, shared.ErrNotFound)
	}
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
		return false, nil
	}
	m.selected[id] = struct{}{}
	return true, nil
}

// SelectAll selects exactly the currently derived rows.
func (m *Model) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = map[int64]struct{}{}
	for _, p := range Derive(m.snapshot, m.params) {
		m.selected[p.ID] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (m *Model) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = map[int64]struct{}{}
}

// Selected returns the selected ids in ascending order.
func (m *Model) Selected() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetColumns sets the visible columns in the given order. Names are matched
// case-insensitively.
func (m *Model) SetColumns(cols []Column) error {
	if len(cols) == 0 {
		return shared.Validationf("at least one column must be visible")
	}
	canonical := make([]Column, 0, len(cols))
	seen := map[Column]bool{}
	for _, raw := range cols {
		c, ok := ParseColumn(string(raw))
		if !ok {
			return shared.Validationf("unknown column %q", raw)
		}
		if seen[c] {
			return shared.Validationf("duplicate column %q", raw)
		}
		seen[c] = true
		canonical = append(canonical, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = canonical
	return nil
}

// Columns returns the visible columns.
func (m *Model) Columns() []Column {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.columns)
}

// State reports the lifecycle state of id.
func (m *Model) State(id int64) RowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshot.Find(id); !ok {
		return RowAbsent
	}
	if m.editing == id {
		return RowEditing
	}
	if _, ok := m.selected[id]; ok {
		return RowSelected
	}
	return RowListed
}

// Editing returns the id being edited, or zero.
func (m *Model) Editing() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editing
}

// BeginEdit moves id into editing. Only one row edits at a time.
func (m *Model) BeginEdit(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshot.Find(id); !ok {
		return fmt.Errorf("productview: edit %d: %w", id, shared.ErrNotFound)
	}
	if m.editing != 0 && m.editing != id {
		return ErrEditInProgress
	}
	m.editing = id
	return nil
}

// CancelEdit returns the editing row to listed.
func (m *Model) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = 0
}

// SaveEdit persists patch for the editing row. On success the row is replaced
// in a new snapshot and returns to listed; on failure it stays in editing.
func (m *Model) SaveEdit(ctx context.Context, editor Editor, patch catalog.ProductPatch) (catalog.Product, error) {
	m.mu.Lock()
	id := m.editing
	m.mu.Unlock()
	if id == 0 {
		return catalog.Product{}, shared.Validationf("no row is being edited")
	}

	updated, err := editor.UpdateProduct(ctx, id, patch)
	if err != nil {
		return catalog.Product{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = m.snapshot.Replace(updated)
	if m.editing == id {
		m.editing = 0
	}
	return updated, nil
}

// Remove deletes id through editor and drops it from the snapshot and the selection.
func (m *Model) Remove(ctx context.Context, editor Editor, id int64) (bool, error) {
	deleted, err := editor.DeleteProduct(ctx, id)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = m.snapshot.Without(id)
	delete(m.selected, id)
	if m.editing == id {
		m.editing = 0
	}
	return deleted, nil
}

// ExportRows returns the selected rows when any are selected, else the
// derived rows. Both follow the current sort.
func (m *Model) ExportRows() []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.selected) == 0 {
		return Derive(m.snapshot, m.params)
	}
	return Derive(m.snapshot.Only(m.selected), Params{Sort: m.params.clone().Sort})
}
