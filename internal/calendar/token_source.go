package calendar

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// persistingTokenSource はトークンリフレッシュを検知してTokenStoreへ書き戻す
// oauth2.TokenSourceラッパー。
// リフレッシュを発生させた呼び出しが返る前に同期的に永続化するため、
// 以降の読み取りは常に新しい認証情報を観測する。
// 永続化の失敗はログに記録するのみで、取得済みトークンはそのまま使用する。
type persistingTokenSource struct {
	userID string
	store  TokenStore

	mu   sync.Mutex
	base oauth2.TokenSource
	last string // 最後に永続化したアクセストークン
}

// newPersistingTokenSource はpersistingTokenSourceを生成する。
// currentはユーザーの保存済みトークンで、これと異なるアクセストークンが
// 返された時点でリフレッシュが起きたとみなす。
func newPersistingTokenSource(ctx context.Context, cfg *oauth2.Config, current *oauth2.Token, userID string, store TokenStore) *persistingTokenSource {
	return &persistingTokenSource{
		userID: userID,
		store:  store,
		base:   cfg.TokenSource(ctx, current),
		last:   current.AccessToken,
	}
}

// Token は基底TokenSourceからトークンを取得し、
// リフレッシュが起きていた場合は返す前に永続化する。
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.last {
		// リフレッシュトークンが再発行されなかった場合は空文字列のまま渡し、
		// ストア側のCOALESCEで既存値を維持する。
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.store.UpdateTokens(ctx, s.userID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
			slog.Error("failed to persist refreshed tokens",
				slog.String("user_id", s.userID),
				slog.String("error", err.Error()),
			)
		} else {
			slog.Info("tokens refreshed",
				slog.String("user_id", s.userID),
			)
		}
		s.last = token.AccessToken
	}

	return token, nil
}
