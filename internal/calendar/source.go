// Package calendar はカレンダープロバイダーへのアクセスを抽象化する。
// ユーザーの保存済み認証情報から認証済みアクセスを組み立て、
// アクセストークンの失効時には透過的にリフレッシュして
// 新しいトークンをリポジトリへ書き戻す。
package calendar

import (
	"context"
	"time"

	"github.com/hitoshi/calremind/internal/model"
)

// Source はカレンダープロバイダーの読み取りインターフェース。
type Source interface {
	// ListCalendarIDs はこのユーザーから見える全カレンダーのIDを返す。
	// アクセストークン・リフレッシュトークンの両方が無効な場合は
	// AuthErrorを返す（リトライはしない）。
	ListCalendarIDs(ctx context.Context, user *model.User) ([]string, error)

	// ListOccurrences は指定カレンダーの[timeMin, timeMax)内の開催を
	// 開始時刻の昇順で返す。繰り返しイベントはプロバイダー側で
	// 単一インスタンスに展開された状態で取得する。
	// 開始時刻とIDの両方を欠く開催は不正データとして黙って除外する。
	ListOccurrences(ctx context.Context, user *model.User, calendarID string, timeMin, timeMax time.Time) ([]model.Occurrence, error)
}

// TokenStore はリフレッシュされたトークンの書き戻し先。
// repository.UserRepositoryの部分集合として定義する。
type TokenStore interface {
	// UpdateTokens はリフレッシュ後の認証情報を永続化する。
	// refreshTokenが空文字列の場合は既存値を維持する。
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}
