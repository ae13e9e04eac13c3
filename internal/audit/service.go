package audit

import (
	"context"
	"fmt"
)

// DefaultRecentLimit is used when RecentActivity receives a non-positive limit.
const DefaultRecentLimit = 10

// Repository menyediakan akses baca ke activity_log dan product_history.
type Repository interface {
	RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error)
	ProductHistory(ctx context.Context, productID int64) ([]HistoryEntry, error)
	ActivityWindow(ctx context.Context, q TimelineQuery) ([]ActivityEntry, error)
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []ActivityEntry `json:"rows"`
	Paging PagingInfo      `json:"paging"`
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecentActivity returns up to limit entries, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.repo.RecentActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent activity: %w", err)
	}
	if rows == nil {
		rows = []ActivityEntry{}
	}
	return rows, nil
}

// ProductHistory returns every history entry of a product, newest first.
func (s *Service) ProductHistory(ctx context.Context, productID int64) ([]HistoryEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.ProductHistory(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("audit: product history: %w", err)
	}
	if rows == nil {
		rows = []HistoryEntry{}
	}
	return rows, nil
}

// Timeline mengambil data activity dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.ActivityWindow(ctx, TimelineQuery{
		From:       filters.From,
		To:         filters.To,
		EntityType: filters.EntityType,
		Action:     filters.Action,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize + 1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []ActivityEntry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
