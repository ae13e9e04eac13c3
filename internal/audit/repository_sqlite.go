package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type activityRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Action     string    `gorm:"not null"`
	EntityType string    `gorm:"column:entity_type;not null;index"`
	EntityID   int64     `gorm:"column:entity_id;not null"`
	Details    *string   `gorm:"column:details"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index"`
}

func (activityRow) TableName() string { return "activity_log" }

type historyRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ProductID  int64     `gorm:"column:product_id;not null;index"`
	Action     string    `gorm:"not null"`
	Details    string    `gorm:"column:details"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index"`
}

func (historyRow) TableName() string { return "product_history" }

// SQLiteModels returns the gorm models backing the audit tables.
func SQLiteModels() []any {
	return []any{&activityRow{}, &historyRow{}}
}

// GormWriter appends audit rows through a gorm handle, usually a transaction.
type GormWriter struct {
	DB *gorm.DB
}

// AppendActivity inserts one activity_log row.
func (w GormWriter) AppendActivity(ctx context.Context, entry ActivityEntry) error {
	row := activityRow{
		Action:     string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		OccurredAt: entry.At,
	}
	if err := w.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit: append activity: %w", err)
	}
	return nil
}

// AppendHistory inserts one product_history row.
func (w GormWriter) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	row := historyRow{
		ProductID:  entry.ProductID,
		Action:     string(entry.Action),
		Details:    entry.Details,
		OccurredAt: entry.At,
	}
	if err := w.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit: append history: %w", err)
	}
	return nil
}

// SQLiteRepository reads audit rows from the embedded store.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository constructs SQLiteRepository.
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	var rows []activityRow
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toActivityEntries(rows), nil
}

func (r *SQLiteRepository) ProductHistory(ctx context.Context, productID int64) ([]HistoryEntry, error) {
	var rows []historyRow
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("occurred_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, HistoryEntry{
			ID:        row.ID,
			ProductID: row.ProductID,
			Action:    Action(row.Action),
			Details:   row.Details,
			At:        row.OccurredAt,
		})
	}
	return entries, nil
}

func (r *SQLiteRepository) ActivityWindow(ctx context.Context, q TimelineQuery) ([]ActivityEntry, error) {
	tx := r.db.WithContext(ctx).Model(&activityRow{})
	if !q.From.IsZero() {
		tx = tx.Where("occurred_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("occurred_at <= ?", q.To)
	}
	if q.EntityType != "" {
		tx = tx.Where("entity_type = ?", string(q.EntityType))
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", string(q.Action))
	}
	var rows []activityRow
	err := tx.Order("occurred_at DESC").Order("id DESC").
		Limit(q.Limit).Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toActivityEntries(rows), nil
}

func toActivityEntries(rows []activityRow) []ActivityEntry {
	entries := make([]ActivityEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ActivityEntry{
			ID:         row.ID,
			Action:     Action(row.Action),
			EntityType: EntityType(row.EntityType),
			EntityID:   row.EntityID,
			Details:    row.Details,
			At:         row.OccurredAt,
		})
	}
	return entries
}
