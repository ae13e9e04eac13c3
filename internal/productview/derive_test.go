package productview

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
)

func sp(s string) *string { return &s }

func fixture() []catalog.Product {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []catalog.Product{
		{ID: 1, Name: "Widget", SKU: "W-100", Stock: 10, Price: 9.99, BrandName: sp("Acme"), CategoryName: sp("Tools"), LastUpdated: at},
		{ID: 2, Name: "gadget", SKU: "G-200", Stock: 3, Price: 19.5, BrandName: sp("Globex"), LastUpdated: at.Add(time.Hour)},
		{ID: 3, Name: "Sprocket", SKU: "S-300", Stock: 10, Price: 1.25, CategoryName: sp("tools"), LastUpdated: at.Add(2 * time.Hour)},
		{ID: 4, Name: "Straße Kit", SKU: "K-400", Stock: 0, Price: 5, BrandName: sp("acme"), LastUpdated: at.Add(3 * time.Hour)},
	}
}

func ids(rows []catalog.Product) []int64 {
	out := make([]int64, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.ID)
	}
	return out
}

func TestDeriveNoParamsKeepsSourceOrder(t *testing.T) {
	snap := NewSnapshot(fixture())
	require.Equal(t, []int64{1, 2, 3, 4}, ids(Derive(snap, Params{})))
}

func TestDeriveFiltersAreANDedAndCaseInsensitive(t *testing.T) {
	snap := NewSnapshot(fixture())

	p := Params{}.WithFilter(ColumnBrand, "ACME")
	require.Equal(t, []int64{1, 4}, ids(Derive(snap, p)))

	p = p.WithFilter(ColumnCategory, "tool")
	require.Equal(t, []int64{1}, ids(Derive(snap, p)))

	p = p.WithFilter(ColumnCategory, "  ")
	require.Equal(t, []int64{1, 4}, ids(Derive(snap, p)))

	p = Params{}.WithFilter(ColumnName, "KIT")
	require.Equal(t, []int64{4}, ids(Derive(snap, p)))
}

func TestDeriveSearchRestrictedToField(t *testing.T) {
	snap := NewSnapshot(fixture())

	p := Params{SearchField: ColumnSKU, SearchText: "00"}
	require.Equal(t, []int64{1, 2, 3, 4}, ids(Derive(snap, p)))

	p = Params{SearchField: ColumnName, SearchText: "g"}
	require.Equal(t, []int64{1, 2}, ids(Derive(snap, p)))

	p = Params{SearchField: ColumnName, SearchText: "g"}.WithFilter(ColumnBrand, "glob")
	require.Equal(t, []int64{2}, ids(Derive(snap, p)))
}

func TestDeriveMatchesPriceWithoutGrouping(t *testing.T) {
	rows := append(fixture(), catalog.Product{ID: 5, Name: "Lathe", SKU: "L-500", Price: 1234.5})
	snap := NewSnapshot(rows)

	require.Equal(t, []int64{5}, ids(Derive(snap, Params{}.WithFilter(ColumnPrice, "1234"))))
	require.Equal(t, []int64{5}, ids(Derive(snap, Params{SearchField: ColumnPrice, SearchText: "1234.5"})))
	require.Empty(t, Derive(snap, Params{}.WithFilter(ColumnPrice, "1,234")))
	require.Equal(t, []int64{1}, ids(Derive(snap, Params{}.WithFilter(ColumnPrice, "9.99"))))
}

func TestDeriveStableSort(t *testing.T) {
	snap := NewSnapshot(fixture())

	asc := Derive(snap, Params{Sort: &Sort{Column: ColumnStock, Direction: Ascending}})
	require.Equal(t, []int64{4, 2, 1, 3}, ids(asc))

	desc := Derive(snap, Params{Sort: &Sort{Column: ColumnStock, Direction: Descending}})
	require.Equal(t, []int64{1, 3, 2, 4}, ids(desc))

	byName := Derive(snap, Params{Sort: &Sort{Column: ColumnName, Direction: Ascending}})
	require.Equal(t, []int64{2, 3, 4, 1}, ids(byName))

	byCategory := Derive(snap, Params{Sort: &Sort{Column: ColumnCategory, Direction: Ascending}})
	require.Equal(t, []int64{2, 4, 1, 3}, ids(byCategory))
}

func TestDeriveIsPureAndIdempotent(t *testing.T) {
	raw := fixture()
	snap := NewSnapshot(raw)
	p := Params{SearchField: ColumnName, SearchText: "e", Sort: &Sort{Column: ColumnPrice, Direction: Descending}}

	first := Derive(snap, p)
	second := Derive(snap, p)
	require.Equal(t, first, second)
	require.Equal(t, []int64{1, 2, 3, 4}, ids(snap.Rows()))

	raw[0].Name = "Changed"
	got, _ := snap.Find(1)
	require.Equal(t, "Widget", got.Name)
}

func TestSnapshotHelpersReturnCopies(t *testing.T) {
	snap := NewSnapshot(fixture())

	without := snap.Without(2)
	require.Equal(t, 4, snap.Len())
	require.Equal(t, 3, without.Len())

	changed := snap.Replace(catalog.Product{ID: 3, Name: "Cog"})
	p, ok := changed.Find(3)
	require.True(t, ok)
	require.Equal(t, "Cog", p.Name)
	p, _ = snap.Find(3)
	require.Equal(t, "Sprocket", p.Name)

	only := snap.Only(map[int64]struct{}{4: {}, 1: {}})
	require.Equal(t, []int64{1, 4}, ids(only.Rows()))
}

func TestExportProjectsVisibleColumns(t *testing.T) {
	rows := fixture()[:2]
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, rows, []Column{ColumnSKU, ColumnCategory, ColumnPrice}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, map[string]any{"sku": "W-100", "category": "Tools", "price": 9.99}, decoded[0])
	require.Equal(t, map[string]any{"sku": "G-200", "category": nil, "price": 19.5}, decoded[1])
	require.Contains(t, buf.String(), `{"sku":"W-100","category":"Tools","price":9.99}`)
}

func TestParseColumn(t *testing.T) {
	c, ok := ParseColumn("LastUpdated")
	require.True(t, ok)
	require.Equal(t, ColumnLastUpdated, c)
	_, ok = ParseColumn("colour")
	require.False(t, ok)
}
