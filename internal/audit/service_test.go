package audit

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubRepo struct {
	recent      []ActivityEntry
	history     []HistoryEntry
	windowRows  []ActivityEntry
	lastLimit   int
	lastProduct int64
	lastWindow  TimelineQuery
}

func (s *stubRepo) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	s.lastLimit = limit
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *stubRepo) ProductHistory(ctx context.Context, productID int64) ([]HistoryEntry, error) {
	s.lastProduct = productID
	return s.history, nil
}

func (s *stubRepo) ActivityWindow(ctx context.Context, q TimelineQuery) ([]ActivityEntry, error) {
	s.lastWindow = q
	rows := s.windowRows
	if q.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[q.Offset:]
	if q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func entry(id int64, ts string, action Action, entity EntityType) ActivityEntry {
	at, _ := time.Parse(time.RFC3339, ts)
	return ActivityEntry{ID: id, Action: action, EntityType: entity, EntityID: id, At: at}
}

func TestRecentActivityDefaultsLimit(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	rows, err := svc.RecentActivity(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rows)
	}
	if repo.lastLimit != DefaultRecentLimit {
		t.Fatalf("expected limit %d, got %d", DefaultRecentLimit, repo.lastLimit)
	}

	if _, err := svc.RecentActivity(context.Background(), 3); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
}

func TestProductHistoryPassesID(t *testing.T) {
	repo := &stubRepo{history: []HistoryEntry{{ID: 2, ProductID: 7, Action: ActionUpdate, Details: `{"stock":1}`}}}
	svc := NewService(repo)

	rows, err := svc.ProductHistory(context.Background(), 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 1 || repo.lastProduct != 7 {
		t.Fatalf("unexpected history call: rows=%d product=%d", len(rows), repo.lastProduct)
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubRepo{windowRows: []ActivityEntry{
		entry(3, "2024-03-10T10:00:00Z", ActionUpdate, EntityProduct),
		entry(2, "2024-03-09T09:00:00Z", ActionCreate, EntityBrand),
		entry(1, "2024-03-08T08:00:00Z", ActionCreate, EntityProduct),
	}}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %+v", result.Paging)
	}
	if repo.lastWindow.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastWindow.Limit)
	}
	if repo.lastWindow.Offset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastWindow.Offset)
	}

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 1 || result.Paging.HasNext || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected second page: %+v", result)
	}
	if repo.lastWindow.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastWindow.Offset)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != 50 || repo.lastWindow.Limit != 51 {
		t.Fatalf("expected clamp to 50, got paging=%+v limit=%d", result.Paging, repo.lastWindow.Limit)
	}
	if result.Rows == nil {
		t.Fatalf("expected non-nil rows")
	}
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubRepo{windowRows: []ActivityEntry{
		entry(2, "2024-03-10T10:00:00Z", ActionUpdate, EntityProduct),
		entry(1, "2024-03-09T09:00:00Z", ActionCreate, EntityCategory),
	}}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{EntityType: EntityProduct})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if repo.lastWindow.Limit != MaxExportRows || repo.lastWindow.EntityType != EntityProduct {
		t.Fatalf("unexpected window %+v", repo.lastWindow)
	}
}

func TestExporterWriteCSV(t *testing.T) {
	details := "bulk:1234, batch"
	row := entry(9, "2024-03-10T10:00:00Z", ActionUpdate, EntityProduct)
	row.Details = &details

	out, err := NewExporter().WriteCSV([]ActivityEntry{row, entry(8, "2024-03-09T09:00:00Z", ActionDelete, EntityBrand)})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 lines, got %d", len(lines))
	}
	if lines[0] != "timestamp,action,entity_type,entity_id,details" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `2024-03-10T10:00:00Z,update,product,9,"bulk:1234, batch"` {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if lines[2] != "2024-03-09T09:00:00Z,delete,brand,8," {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestEnumValidity(t *testing.T) {
	if !ActionCreate.Valid() || Action("purge").Valid() {
		t.Fatalf("action validity mismatch")
	}
	if !EntitySupplier.Valid() || !EntityLabelTemplate.Valid() || EntityType("warehouse").Valid() {
		t.Fatalf("entity validity mismatch")
	}
}
