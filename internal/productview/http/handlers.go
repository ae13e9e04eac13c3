package viewhttp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/platform/httpx"
	"github.com/odyssey-erp/stockdesk/internal/productview"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// CatalogService is the subset of the catalog used by the table view.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

// Handler serves stateless derivations and the single table session of the
// desktop client.
type Handler struct {
	logger  *slog.Logger
	catalog CatalogService
	model   *productview.Model
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, catalog CatalogService, model *productview.Model) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if model == nil {
		model = productview.NewModel()
	}
	return &Handler{logger: logger, catalog: catalog, model: model}
}

// MountRoutes registers view routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/view", h.handleDerive)
	r.Get("/products/export", h.handleExport)

	r.Route("/view", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Post("/refresh", h.handleRefresh)
		r.Put("/params", h.handleSetParams)
		r.Put("/columns", h.handleSetColumns)
		r.Post("/selection/all", h.handleSelectAll)
		r.Delete("/selection", h.handleClearSelection)
		r.Post("/selection/{id}", h.handleToggle)
		r.Post("/edit/{id}", h.handleBeginEdit)
		r.Delete("/edit", h.handleCancelEdit)
		r.Post("/edit/save", h.handleSaveEdit)
		r.Delete("/rows/{id}", h.handleRemove)
		r.Get("/export", h.handleSessionExport)
	})
}

type stateResponse struct {
	Rows     []catalog.Product    `json:"rows"`
	Params   productview.Params   `json:"params"`
	Selected []int64              `json:"selected"`
	Columns  []productview.Column `json:"columns"`
	Editing  int64                `json:"editing,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (h *Handler) state() stateResponse {
	resp := stateResponse{
		Rows:     h.model.Rows(),
		Params:   h.model.Params(),
		Selected: h.model.Selected(),
		Columns:  h.model.Columns(),
		Editing:  h.model.Editing(),
	}
	if err := h.model.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Warn("view request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) handleDerive(w http.ResponseWriter, r *http.Request) {
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	rows, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productview.Derive(productview.NewSnapshot(rows), params))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseParams(q)
	if err != nil {
		h.fail(w, err)
		return
	}
	columns, err := parseColumns(q.Get("columns"))
	if err != nil {
		h.fail(w, err)
		return
	}
	selected, err := parseIDs(q.Get("ids"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rows, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	snap := productview.NewSnapshot(rows)
	var out []catalog.Product
	if len(selected) > 0 {
		out = productview.Derive(snap.Only(selected), productview.Params{Sort: params.Sort})
	} else {
		out = productview.Derive(snap, params)
	}
	h.writeExport(w, out, columns)
}

func (h *Handler) writeExport(w http.ResponseWriter, rows []catalog.Product, columns []productview.Column) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=\"products.json\"")
	if err := productview.Export(w, rows, columns); err != nil {
		h.logger.Warn("write export", slog.Any("error", err))
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.model.Refresh(r.Context(), h.catalog); err != nil {
		h.logger.Warn("view refresh failed", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var params productview.Params
	if err := httpx.DecodeJSON(r, &params); err != nil {
		h.fail(w, err)
		return
	}
	params, err := normalizeParams(params)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.model.SetParams(params)
	httpx.JSON(w, http.StatusOK, h.state())
}

type columnsRequest struct {
	Columns []productview.Column `json:"columns"`
}

func (h *Handler) handleSetColumns(w http.ResponseWriter, r *http.Request) {
	var req columnsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.model.SetColumns(req.Columns); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	h.model.SelectAll()
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.model.ClearSelection()
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if _, err := h.model.Toggle(id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.model.BeginEdit(id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	h.model.CancelEdit()
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	var patch catalog.ProductPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.fail(w, err)
		return
	}
	if _, err := h.model.SaveEdit(r.Context(), h.catalog, patch); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if _, err := h.model.Remove(r.Context(), h.catalog, id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	h.writeExport(w, h.model.ExportRows(), h.model.Columns())
}

// ParseParams reads filter.<column>, search_field, q, sort and dir.
func ParseParams(q url.Values) (productview.Params, error) {
	var params productview.Params
	for key, values := range q {
		name, ok := strings.CutPrefix(key, "filter.")
		if !ok || len(values) == 0 {
			continue
		}
		col, ok := productview.ParseColumn(name)
		if !ok {
			return productview.Params{}, shared.Validationf("unknown filter column %q", name)
		}
		params = params.WithFilter(col, values[0])
	}
	if field := strings.TrimSpace(q.Get("search_field")); field != "" {
		col, ok := productview.ParseColumn(field)
		if !ok {
			return productview.Params{}, shared.Validationf("unknown search field %q", field)
		}
		params.SearchField = col
		params.SearchText = q.Get("q")
	}
	if sortBy := strings.TrimSpace(q.Get("sort")); sortBy != "" {
		col, ok := productview.ParseColumn(sortBy)
		if !ok {
			return productview.Params{}, shared.Validationf("unknown sort column %q", sortBy)
		}
		dir := productview.Direction(strings.ToLower(strings.TrimSpace(q.Get("dir"))))
		switch dir {
		case "":
			dir = productview.Ascending
		case productview.Ascending, productview.Descending:
		default:
			return productview.Params{}, shared.Validationf("unknown sort direction %q", dir)
		}
		params.Sort = &productview.Sort{Column: col, Direction: dir}
	}
	return params, nil
}

// normalizeParams validates p and rewrites every column name to its
// canonical form.
func normalizeParams(p productview.Params) (productview.Params, error) {
	out := productview.Params{SearchText: p.SearchText}
	for name, text := range p.Filters {
		col, ok := productview.ParseColumn(string(name))
		if !ok {
			return productview.Params{}, shared.Validationf("unknown filter column %q", name)
		}
		out = out.WithFilter(col, text)
	}
	if p.SearchField != "" {
		col, ok := productview.ParseColumn(string(p.SearchField))
		if !ok {
			return productview.Params{}, shared.Validationf("unknown search field %q", p.SearchField)
		}
		out.SearchField = col
	}
	if p.Sort != nil {
		col, ok := productview.ParseColumn(string(p.Sort.Column))
		if !ok {
			return productview.Params{}, shared.Validationf("unknown sort column %q", p.Sort.Column)
		}
		dir := productview.Direction(strings.ToLower(string(p.Sort.Direction)))
		if dir != productview.Ascending && dir != productview.Descending {
			return productview.Params{}, shared.Validationf("unknown sort direction %q", p.Sort.Direction)
		}
		out.Sort = &productview.Sort{Column: col, Direction: dir}
	}
	return out, nil
}

func parseColumns(raw string) ([]productview.Column, error) {
	if strings.TrimSpace(raw) == "" {
		return productview.AllColumns, nil
	}
	var cols []productview.Column
	for _, part := range strings.Split(raw, ",") {
		col, ok := productview.ParseColumn(part)
		if !ok {
			return nil, shared.Validationf("unknown column %q", part)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func parseIDs(raw string) (map[int64]struct{}, error) {
	out := map[int64]struct{}{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, shared.Validationf("invalid id %q", part)
		}
		out[id] = struct{}{}
	}
	return out, nil
}
