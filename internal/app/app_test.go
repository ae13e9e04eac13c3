package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	audithttp "github.com/odyssey-erp/stockdesk/internal/audit/http"
	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/dashboard"
	"github.com/odyssey-erp/stockdesk/internal/observability"
	viewhttp "github.com/odyssey-erp/stockdesk/internal/productview/http"
	"github.com/odyssey-erp/stockdesk/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.StoreDriver)
	require.Equal(t, 5, cfg.LowStockThreshold)
	require.False(t, cfg.RedisEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("LOW_STOCK_THRESHOLD", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &Config{StoreDriver: StoreSQLite, SQLitePath: ":memory:", RateLimitPerMinute: 1000, LowStockThreshold: 5}
	logger := slog.Default()
	stores, err := OpenStores(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	metrics := observability.NewMetrics()
	catalogSvc := catalog.NewService(stores.Catalog, catalog.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		Observer:          metrics,
		Logger:            logger,
	})
	auditSvc := audit.NewService(stores.Audit)

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogSvc),
		AuditHandler:     audithttp.NewHandler(logger, auditSvc, audit.NewExporter()),
		ViewHandler:      viewhttp.NewHandler(logger, catalogSvc, nil),
		DashboardHandler: dashboard.NewHandler(logger, dashboard.NewService(catalogSvc, auditSvc, nil)),
		JobHandler:       jobs.NewHandler(nil, nil, logger),
		Metrics:          metrics,
	})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:5000"
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	rr := serve(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = serve(router, http.MethodPost, "/api/products", `{"name":"Widget","sku":"W-1","stock":2,"price":9.99}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(router, http.MethodPost, "/api/products", `{"name":"Widget","sku":"W-1","stock":2,"price":9.99}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = serve(router, http.MethodGet, "/api/products/view?sort=name", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"sku":"W-1"`)

	rr = serve(router, http.MethodGet, "/api/products/1/history", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"totalProducts":1`)

	rr = serve(router, http.MethodGet, "/api/activity", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"action":"create"`)

	rr = serve(router, http.MethodPost, "/api/label-templates", `{"name":"Shelf","fields":[{"id":"name","name":"Product Name","visible":true,"order":0}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = serve(router, http.MethodPut, "/api/label-templates/1", `{"fields":[{"id":"sku","name":"SKU","visible":true,"order":0},{"id":"price","name":"Price","visible":false,"order":1}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = serve(router, http.MethodGet, "/api/label-templates", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[{"id":1,"name":"Shelf","fields":[{"id":"sku","name":"SKU","visible":true,"order":0},{"id":"price","name":"Price","visible":false,"order":1}]}]`, rr.Body.String())
	rr = serve(router, http.MethodPut, "/api/label-templates/9", `{"name":"Ghost"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr = serve(router, http.MethodDelete, "/api/label-templates/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"deleted":true}`, rr.Body.String())

	rr = serve(router, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `stockdesk_catalog_mutations_total{action="create",entity="product"} 1`)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf strings.Builder
	logger := newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"})
	logger.Debug("hidden")
	logger.Info("ready", slog.Int("port", 8080))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"ready"`)
	require.Contains(t, out, `"service":"stockdesk"`)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "nope")
	RefreshTestMode()
	require.False(t, InTestMode())
}
