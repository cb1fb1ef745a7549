package calendar

import (
	"errors"
	"fmt"
)

// AuthError は認証情報が無効または失効していることを表す。
// 該当ユーザーの処理のみを中断し、スイープ全体は継続させるための型。
// 外部で再認可されるまで次回以降のスイープでも失敗し続ける。
type AuthError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar auth failed: %v", e.Err)
}

// Unwrap はラップされた元エラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError はエラーが認証失敗かどうかを判定する。
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
