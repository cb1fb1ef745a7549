package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/calremind/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, google_id, email, access_token,
	COALESCE(refresh_token, ''), token_expiry,
	COALESCE(webhook_url, ''), reminder_minutes, enabled, created_at, updated_at`

// scanUser は1行をmodel.Userに読み込む。
// refresh_token/webhook_urlのNULLは空文字列、token_expiryのNULLはゼロ値にマップする。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var expiry sql.NullTime

	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.AccessToken,
		&user.RefreshToken, &expiry,
		&user.WebhookURL, &user.ReminderMinutes, &user.Enabled,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiry.Valid {
		user.TokenExpiry = expiry.Time
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByGoogleID はGoogleアカウントIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}

	return user, nil
}

// UpsertOAuthUser はOAuthコールバック時にユーザーを作成または更新する。
// 既存ユーザーの場合はemailとトークン系フィールドのみ更新する。
// NULLIF + COALESCEにより、空のリフレッシュトークンは既存値を維持する。
func (r *PostgresUserRepo) UpsertOAuthUser(ctx context.Context, user *model.User) (*model.User, error) {
	var expiry sql.NullTime
	if !user.TokenExpiry.IsZero() {
		expiry = sql.NullTime{Time: user.TokenExpiry, Valid: true}
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, google_id, email, access_token, refresh_token, token_expiry)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		 ON CONFLICT (google_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   access_token = EXCLUDED.access_token,
		   refresh_token = COALESCE(EXCLUDED.refresh_token, users.refresh_token),
		   token_expiry = EXCLUDED.token_expiry,
		   updated_at = now()
		 RETURNING `+userColumns,
		user.ID, user.GoogleID, user.Email, user.AccessToken, user.RefreshToken, expiry,
	)

	saved, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return saved, nil
}

// ListEligible は通知処理の対象ユーザーを取得する。
// enabledかつwebhook_urlが設定されているユーザーのみ返す。
func (r *PostgresUserRepo) ListEligible(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE enabled = TRUE AND webhook_url IS NOT NULL AND webhook_url <> ''
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// UpdateSettings は通知設定を更新する。
// webhookURLが空文字列の場合はNULLとして保存し、通知を抑止する。
func (r *PostgresUserRepo) UpdateSettings(ctx context.Context, id string, webhookURL string, reminderMinutes int, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		   webhook_url = NULLIF($2, ''),
		   reminder_minutes = $3,
		   enabled = $4,
		   updated_at = now()
		 WHERE id = $1`,
		id, webhookURL, reminderMinutes, enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	return nil
}

// UpdateTokens はトークンリフレッシュ後の認証情報を永続化する。
// 空のリフレッシュトークンは既存値を維持する（COALESCE）。
// 存在しないユーザーに対しては0行更新で正常終了する。
func (r *PostgresUserRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	var nullableExpiry sql.NullTime
	if !expiry.IsZero() {
		nullableExpiry = sql.NullTime{Time: expiry, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		   access_token = $2,
		   refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
		   token_expiry = $4,
		   updated_at = now()
		 WHERE id = $1`,
		id, accessToken, refreshToken, nullableExpiry,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	return nil
}
