package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGExecer is satisfied by pgxpool.Pool and pgx.Tx.
type PGExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGWriter appends audit rows through any PostgreSQL executor, usually the
// transaction that carries the primary mutation.
type PGWriter struct {
	DB PGExecer
}

// AppendActivity inserts one activity_log row.
func (w PGWriter) AppendActivity(ctx context.Context, entry ActivityEntry) error {
	_, err := w.DB.Exec(ctx,
		`INSERT INTO activity_log (action, entity_type, entity_id, details, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		string(entry.Action), string(entry.EntityType), entry.EntityID, entry.Details, entry.At)
	if err != nil {
		return fmt.Errorf("audit: append activity: %w", err)
	}
	return nil
}

// AppendHistory inserts one product_history row.
func (w PGWriter) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := w.DB.Exec(ctx,
		`INSERT INTO product_history (product_id, action, details, occurred_at) VALUES ($1, $2, $3, $4)`,
		entry.ProductID, string(entry.Action), entry.Details, entry.At)
	if err != nil {
		return fmt.Errorf("audit: append history: %w", err)
	}
	return nil
}

// PGRepository reads audit rows from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const activityColumns = `id, action, entity_type, entity_id, details, occurred_at`

func (r *PGRepository) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+` FROM activity_log ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

func (r *PGRepository) ProductHistory(ctx context.Context, productID int64) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, action, COALESCE(details, ''), occurred_at FROM product_history WHERE product_id = $1 ORDER BY occurred_at DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var action string
		if err := rows.Scan(&e.ID, &e.ProductID, &action, &e.Details, &e.At); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PGRepository) ActivityWindow(ctx context.Context, q TimelineQuery) ([]ActivityEntry, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_log WHERE 1=1`
	args := []any{}
	argCount := 0

	if !q.From.IsZero() {
		argCount++
		query += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		argCount++
		query += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, q.To)
	}
	if q.EntityType != "" {
		argCount++
		query += ` AND entity_type = $` + strconv.Itoa(argCount)
		args = append(args, string(q.EntityType))
	}
	if q.Action != "" {
		argCount++
		query += ` AND action = $` + strconv.Itoa(argCount)
		args = append(args, string(q.Action))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, q.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, q.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

func scanActivity(rows pgx.Rows) ([]ActivityEntry, error) {
	defer rows.Close()
	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var action, entity string
		if err := rows.Scan(&e.ID, &action, &entity, &e.EntityID, &e.Details, &e.At); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.EntityType = EntityType(entity)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
