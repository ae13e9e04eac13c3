package viewhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/productview"
)

func sp(s string) *string { return &s }

type stubCatalog struct {
	rows    []catalog.Product
	listErr error
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.rows, s.listErr
}

func (s *stubCatalog) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			if patch.Stock != nil {
				s.rows[i].Stock = *patch.Stock
			}
			return s.rows[i], nil
		}
	}
	return catalog.Product{}, errors.New("missing")
}

func (s *stubCatalog) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func newRouter(cat *stubCatalog) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, cat, nil).MountRoutes(r)
	return r
}

func sampleRows() []catalog.Product {
	return []catalog.Product{
		{ID: 1, Name: "Widget", SKU: "W-1", Stock: 10, Price: 2, BrandName: sp("Acme")},
		{ID: 2, Name: "Gadget", SKU: "G-1", Stock: 1, Price: 5, BrandName: sp("Globex")},
		{ID: 3, Name: "Gizmo", SKU: "Z-1", Stock: 4, Price: 3},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeIDs(t *testing.T, body []byte) []int64 {
	t.Helper()
	var rows []catalog.Product
	require.NoError(t, json.Unmarshal(body, &rows))
	out := make([]int64, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.ID)
	}
	return out
}

func TestDeriveEndpoint(t *testing.T) {
	router := newRouter(&stubCatalog{rows: sampleRows()})

	rr := do(t, router, http.MethodGet, "/products/view?search_field=name&q=G&sort=stock&dir=desc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []int64{1, 3, 2}, decodeIDs(t, rr.Body.Bytes()))

	rr = do(t, router, http.MethodGet, "/products/view?filter.brand=acme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []int64{1}, decodeIDs(t, rr.Body.Bytes()))

	rr = do(t, router, http.MethodGet, "/products/view?sort=colour", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportEndpointPrefersIDs(t *testing.T) {
	router := newRouter(&stubCatalog{rows: sampleRows()})

	rr := do(t, router, http.MethodGet, "/products/export?columns=id,sku&ids=3,1&sort=price", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[{"id":1,"sku":"W-1"},{"id":3,"sku":"Z-1"}]`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/products/export?columns=name&filter.name=gad", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[{"name":"Gadget"}]`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/products/export?ids=x", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionFlow(t *testing.T) {
	cat := &stubCatalog{rows: sampleRows()}
	router := newRouter(cat)

	rr := do(t, router, http.MethodPost, "/view/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPut, "/view/params", `{"filters":{"brand":"g"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPost, "/view/selection/all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var state struct {
		Rows     []catalog.Product `json:"rows"`
		Selected []int64           `json:"selected"`
		Editing  int64             `json:"editing"`
		Error    string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Equal(t, []int64{2}, state.Selected)

	rr = do(t, router, http.MethodPost, "/view/edit/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodPost, "/view/edit/3", "")
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodPost, "/view/edit/save", `{"stock":8}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Zero(t, state.Editing)
	require.Equal(t, 8, state.Rows[0].Stock)

	rr = do(t, router, http.MethodPost, "/view/edit/save", `{"stock":"eight"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodDelete, "/view/rows/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Empty(t, state.Selected)
	require.Empty(t, state.Rows)

	cat.listErr = errors.New("store offline")
	rr = do(t, router, http.MethodPost, "/view/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Equal(t, "store offline", state.Error)

	rr = do(t, router, http.MethodPut, "/view/params", `{}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Len(t, state.Rows, 2)
}

func TestParseParams(t *testing.T) {
	q := url.Values{}
	q.Set("filter.sku", "W")
	q.Set("search_field", "Name")
	q.Set("q", "wid")
	q.Set("sort", "price")
	params, err := ParseParams(q)
	require.NoError(t, err)
	require.Equal(t, "W", params.Filters[productview.ColumnSKU])
	require.Equal(t, productview.ColumnName, params.SearchField)
	require.Equal(t, productview.Ascending, params.Sort.Direction)

	q.Set("filter.colour", "red")
	_, err = ParseParams(q)
	require.Error(t, err)
}

func TestSessionAcceptsMixedCaseColumns(t *testing.T) {
	router := newRouter(&stubCatalog{rows: sampleRows()})

	rr := do(t, router, http.MethodPost, "/view/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPut, "/view/params",
		`{"filters":{"NAME":"get"},"searchField":"Sku","searchText":"-1","sort":{"column":"STOCK","direction":"DESC"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var state struct {
		Rows   []catalog.Product  `json:"rows"`
		Params productview.Params `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Len(t, state.Rows, 2)
	require.Equal(t, int64(1), state.Rows[0].ID)
	require.Equal(t, int64(2), state.Rows[1].ID)
	require.Equal(t, "get", state.Params.Filters[productview.ColumnName])
	require.Equal(t, productview.ColumnSKU, state.Params.SearchField)
	require.Equal(t, productview.Descending, state.Params.Sort.Direction)

	rr = do(t, router, http.MethodPut, "/view/params", `{"filters":{"Colour":"red"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPut, "/view/columns", `{"columns":["NAME","Sku"]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, "/view/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[{"name":"Widget","sku":"W-1"},{"name":"Gadget","sku":"G-1"}]`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/view/columns", `{"columns":["name","NAME"]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
