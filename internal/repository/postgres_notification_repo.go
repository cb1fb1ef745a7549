package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知済み台帳リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Exists は指定の(ユーザー, イベント, 開始時刻)の通知済みレコードが存在するかを返す。
func (r *PostgresNotificationRepo) Exists(ctx context.Context, userID, eventID string, eventStart int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM notifications
		   WHERE user_id = $1 AND event_id = $2 AND event_start = $3
		 )`,
		userID, eventID, eventStart,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification record: %w", err)
	}

	return exists, nil
}

// Insert は通知済みレコードを冪等に挿入する。
// ON CONFLICT DO NOTHINGにより、同一キーへの並行挿入は安全に無視される。
func (r *PostgresNotificationRepo) Insert(ctx context.Context, userID, eventID string, eventStart int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, event_id, event_start)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, event_id, event_start) DO NOTHING`,
		userID, eventID, eventStart,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}

	return nil
}

// DeleteStartedBefore は開催開始時刻がcutoff（unix秒）より古いレコードを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (r *PostgresNotificationRepo) DeleteStartedBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE event_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune notification records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get pruned row count: %w", err)
	}

	return deleted, nil
}
