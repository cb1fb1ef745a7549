package middleware

import "net/http"

// corsHeaders はCORSレスポンスに付与する固定ヘッダー。
// 設定画面のフロントエンドはX-CSRF-Tokenヘッダー付きで
// セッションCookieを送信するため、credentialsを許可する。
var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods":     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers":     "Content-Type, X-CSRF-Token",
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Max-Age":           "86400",
}

// NewCORSMiddleware は単一の許可オリジンに対するCORSミドルウェアを返す。
// credentials送信と共存できないため、ワイルドカード(*)は使用しない。
// OPTIONSプリフライトリクエストには204で応答し、後続ハンドラーへ進まない。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", allowedOrigin)
			header.Add("Vary", "Origin")
			for name, value := range corsHeaders {
				header.Set(name, value)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
