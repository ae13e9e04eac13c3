package productview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

type stubSource struct {
	rows []catalog.Product
	err  error
}

func (s *stubSource) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.rows, s.err
}

type stubEditor struct {
	updateErr error
	deleted   []int64
	patches   map[int64]catalog.ProductPatch
}

func (e *stubEditor) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error) {
	if e.updateErr != nil {
		return catalog.Product{}, e.updateErr
	}
	if e.patches == nil {
		e.patches = map[int64]catalog.ProductPatch{}
	}
	e.patches[id] = patch
	p := catalog.Product{ID: id, Name: "updated"}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	return p, nil
}

func (e *stubEditor) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	e.deleted = append(e.deleted, id)
	return true, nil
}

func loadedModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel()
	require.NoError(t, m.Refresh(context.Background(), &stubSource{rows: fixture()}))
	return m
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	m := loadedModel(t)
	boom := errors.New("store offline")

	err := m.Refresh(context.Background(), &stubSource{err: boom})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, m.Err(), boom)
	require.Equal(t, 4, m.Snapshot().Len())
	require.Len(t, m.Rows(), 4)

	require.NoError(t, m.Refresh(context.Background(), &stubSource{rows: fixture()[:1]}))
	require.NoError(t, m.Err())
	require.Equal(t, 1, m.Snapshot().Len())
}

func TestRefreshPrunesVanishedSelection(t *testing.T) {
	m := loadedModel(t)
	m.SelectAll()
	require.Equal(t, []int64{1, 2, 3, 4}, m.Selected())
	require.NoError(t, m.BeginEdit(2))

	require.NoError(t, m.Refresh(context.Background(), &stubSource{rows: fixture()[:1]}))
	require.Len(t, m.Rows(), 1)
	require.Equal(t, []int64{1}, m.Selected())
	require.Equal(t, RowAbsent, m.State(2))
	require.Zero(t, m.Editing())
	require.Equal(t, RowSelected, m.State(1))
}

func TestSelectAllSelectsExactlyDerivedRows(t *testing.T) {
	m := loadedModel(t)
	m.SetParams(Params{}.WithFilter(ColumnBrand, "acme"))

	m.SelectAll()
	require.Equal(t, []int64{1, 4}, m.Selected())

	m.SetParams(Params{})
	require.Equal(t, []int64{1, 4}, m.Selected(), "selection survives filter changes")
	require.Equal(t, RowSelected, m.State(1))
	require.Equal(t, RowListed, m.State(2))

	m.ClearSelection()
	require.Empty(t, m.Selected())
}

func TestToggle(t *testing.T) {
	m := loadedModel(t)

	on, err := m.Toggle(2)
	require.NoError(t, err)
	require.True(t, on)
	on, err = m.Toggle(2)
	require.NoError(t, err)
	require.False(t, on)

	_, err = m.Toggle(99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEditLifecycle(t *testing.T) {
	m := loadedModel(t)
	editor := &stubEditor{}
	ctx := context.Background()

	require.NoError(t, m.BeginEdit(3))
	require.Equal(t, RowEditing, m.State(3))
	require.ErrorIs(t, m.BeginEdit(1), ErrEditInProgress)

	m.CancelEdit()
	require.Equal(t, RowListed, m.State(3))

	require.NoError(t, m.BeginEdit(3))
	name := "Cog"
	saved, err := m.SaveEdit(ctx, editor, catalog.ProductPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Cog", saved.Name)
	require.Equal(t, RowListed, m.State(3))
	p, _ := m.Snapshot().Find(3)
	require.Equal(t, "Cog", p.Name)

	require.NoError(t, m.BeginEdit(2))
	editor.updateErr = shared.Constraintf("sku taken")
	_, err = m.SaveEdit(ctx, editor, catalog.ProductPatch{Name: &name})
	require.ErrorIs(t, err, shared.ErrConstraint)
	require.Equal(t, RowEditing, m.State(2))

	_, err = NewModel().SaveEdit(ctx, editor, catalog.ProductPatch{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRemoveDropsRowAndSelection(t *testing.T) {
	m := loadedModel(t)
	editor := &stubEditor{}

	_, err := m.Toggle(2)
	require.NoError(t, err)
	require.NoError(t, m.BeginEdit(2))

	deleted, err := m.Remove(context.Background(), editor, 2)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []int64{2}, editor.deleted)
	require.Equal(t, RowAbsent, m.State(2))
	require.Empty(t, m.Selected())
	require.Zero(t, m.Editing())
	require.Equal(t, []int64{1, 3, 4}, ids(m.Rows()))
}

func TestColumnsOnlyAffectProjection(t *testing.T) {
	m := loadedModel(t)

	require.NoError(t, m.SetColumns([]Column{ColumnName, ColumnStock}))
	require.Len(t, m.Rows(), 4)
	require.Equal(t, []Column{ColumnName, ColumnStock}, m.Columns())

	require.ErrorIs(t, m.SetColumns(nil), shared.ErrValidation)
	require.ErrorIs(t, m.SetColumns([]Column{"colour"}), shared.ErrValidation)
	require.ErrorIs(t, m.SetColumns([]Column{ColumnName, ColumnName}), shared.ErrValidation)
}

func TestExportRowsPrefersSelection(t *testing.T) {
	m := loadedModel(t)
	m.SetParams(Params{Sort: &Sort{Column: ColumnPrice, Direction: Descending}})

	require.Equal(t, []int64{2, 1, 4, 3}, ids(m.ExportRows()))

	_, err := m.Toggle(3)
	require.NoError(t, err)
	_, err = m.Toggle(1)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids(m.ExportRows()))

	require.NoError(t, m.SetColumns([]Column{ColumnID, ColumnName}))
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, m.ExportRows(), m.Columns()))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, []map[string]any{
		{"id": float64(1), "name": "Widget"},
		{"id": float64(3), "name": "Sprocket"},
	}, decoded)
}

func TestParamsAreCopied(t *testing.T) {
	m := loadedModel(t)
	p := Params{}.WithFilter(ColumnName, "widget")
	m.SetParams(p)
	p.Filters[ColumnName] = "gadget"

	require.Equal(t, []int64{1}, ids(m.Rows()))
	require.Equal(t, "widget", m.Params().Filters[ColumnName])
}
