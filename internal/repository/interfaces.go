// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/calremind/internal/model"
)

// UserRepository はユーザーデータと認証情報の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleアカウントIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// UpsertOAuthUser はOAuthコールバック時にユーザーを作成または更新する。
	// 既存ユーザーの場合はemailとトークン系フィールドのみ更新し、通知設定は保持する。
	// refreshTokenが空文字列の場合は既存のリフレッシュトークンを維持する
	// （プロバイダーはリフレッシュトークンを毎回再発行するとは限らない）。
	UpsertOAuthUser(ctx context.Context, user *model.User) (*model.User, error)

	// ListEligible は通知処理の対象ユーザーを取得する。
	// enabledがtrueかつwebhook_urlが設定されているユーザーのみ返す。
	ListEligible(ctx context.Context) ([]*model.User, error)

	// UpdateSettings は通知設定（webhook URL、リマインド時間、有効フラグ）を更新する。
	UpdateSettings(ctx context.Context, id string, webhookURL string, reminderMinutes int, enabled bool) error

	// UpdateTokens はトークンリフレッシュ後の認証情報を永続化する。
	// refreshTokenが空文字列の場合は既存のリフレッシュトークンを上書きしない。
	// expiryがゼロ値の場合はNULL（有効期限不明）として保存する。
	// 存在しないユーザーIDに対しては0行更新のno-opでありエラーにしない。
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// NotificationRepository は送信済みリマインダー台帳の永続化インターフェース。
type NotificationRepository interface {
	// Exists は指定の(ユーザー, イベント, 開始時刻)の組の通知済みレコードが存在するかを返す。
	Exists(ctx context.Context, userID, eventID string, eventStart int64) (bool, error)

	// Insert は通知済みレコードを冪等に挿入する。
	// 一意制約に衝突した場合は無視する（insert-or-ignore）。
	// read-then-writeではなくストレージ層の原子的な条件付き挿入であるため、
	// 同一キーへの並行挿入が競合しても二重配信にはつながらない。
	Insert(ctx context.Context, userID, eventID string, eventStart int64) error

	// DeleteStartedBefore は開催開始時刻がcutoff（unix秒）より古いレコードを削除し、
	// 削除件数を返す。
	DeleteStartedBefore(ctx context.Context, cutoff int64) (int64, error)
}
