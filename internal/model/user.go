// Package model はドメインモデルを定義する。
package model

import "time"

// User はリマインダー配信の対象ユーザーを表す。
// Googleアカウントに紐づくOAuthトークンと通知設定を保持する。
// トークン系フィールドはワーカーがリフレッシュ時に更新し、
// 通知設定は設定APIが更新する。
type User struct {
	ID              string
	GoogleID        string
	Email           string
	AccessToken     string
	RefreshToken    string    // 空文字列は「リフレッシュトークン未発行」を表す
	TokenExpiry     time.Time // ゼロ値は「有効期限不明（失効している可能性あり）」を表す
	WebhookURL      string    // 空文字列の場合は通知を抑止する
	ReminderMinutes int       // リマインド開始の何分前に通知するか（1〜60）
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Eligible は通知処理の対象となるかを返す。
// 有効フラグが立っており、かつWebhook URLが設定されている場合のみ対象。
func (u *User) Eligible() bool {
	return u.Enabled && u.WebhookURL != ""
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
