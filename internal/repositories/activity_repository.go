package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "kocrou/internal/config"
	"kocrou/internal/domain/models"
)

type ActivityRepository struct {
	DB *sql.DB
}

func (r ActivityRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ActivityRepository) Insert(ctx context.Context, l *models.ActivityLog) error {
	var userID any
	if l.UserID != nil {
		userID = *l.UserID
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO activity_logs (user_id, type, action, details, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, string(l.Type), l.Action, l.Details, l.IPAddress, l.UserAgent)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

// List returns the newest entries first, optionally of one type.
func (r ActivityRepository) List(ctx context.Context, logType models.LogType, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT l.id, l.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''),
		       l.type, l.action, l.details, l.ip_address, l.user_agent, l.created_at
		FROM activity_logs l
		LEFT JOIN users u ON u.id = l.user_id`
	args := []any{}
	if logType != "" {
		query += ` WHERE l.type=?`
		args = append(args, string(logType))
	}
	query += ` ORDER BY l.created_at DESC, l.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	out := []models.ActivityLog{}
	for rows.Next() {
		var (
			l      models.ActivityLog
			userID sql.NullInt64
			typ    string
		)
		if err := rows.Scan(&l.ID, &userID, &l.UserName, &l.UserEmail, &typ, &l.Action, &l.Details,
			&l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		l.Type = models.LogType(typ)
		if userID.Valid {
			id := userID.Int64
			l.UserID = &id
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r ActivityRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db().ExecContext(ctx, `DELETE FROM activity_logs`)
	if err != nil {
		return 0, fmt.Errorf("clear activity logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
