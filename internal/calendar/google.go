package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hitoshi/calremind/internal/model"
)

// persistTimeout はリフレッシュ後トークンの書き戻しに許容する時間。
const persistTimeout = 10 * time.Second

// GoogleSource はGoogle Calendar APIを使用したSource実装。
// ユーザーごとに保存済みトークンからAPIクライアントを組み立て、
// リフレッシュされたトークンはpersistingTokenSourceを通じて
// 呼び出しが返る前にTokenStoreへ書き戻される。
type GoogleSource struct {
	oauth  *oauth2.Config
	tokens TokenStore
	loc    *time.Location // 終日イベントの日付を解釈するタイムゾーン
}

// NewGoogleSource はGoogleSourceを生成する。
// locがnilの場合はUTCとして扱う。
func NewGoogleSource(oauth *oauth2.Config, tokens TokenStore, loc *time.Location) *GoogleSource {
	if loc == nil {
		loc = time.UTC
	}
	return &GoogleSource{
		oauth:  oauth,
		tokens: tokens,
		loc:    loc,
	}
}

// newService はユーザーの保存済みトークンからCalendar APIクライアントを生成する。
// トークンの有効期限がゼロ値（不明）の場合、oauth2は失効済みとして扱い
// 初回の呼び出しでリフレッシュを試みる。
func (s *GoogleSource) newService(ctx context.Context, user *model.User) (*gcal.Service, error) {
	current := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}

	ts := newPersistingTokenSource(ctx, s.oauth, current, user.ID, s.tokens)

	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return svc, nil
}

// ListCalendarIDs はこのユーザーから見える全カレンダー（iCal購読カレンダーを含む）の
// IDを返す。両トークンが無効な場合はAuthErrorを返す。
func (s *GoogleSource) ListCalendarIDs(ctx context.Context, user *model.User) ([]string, error) {
	svc, err := s.newService(ctx, user)
	if err != nil {
		return nil, err
	}

	var ids []string
	call := svc.CalendarList.List().Context(ctx)

	err = call.Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			if item.Id == "" {
				continue
			}
			ids = append(ids, item.Id)
		}
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}

	return ids, nil
}

// ListOccurrences は指定カレンダーの[timeMin, timeMax)内の開催を
// 開始時刻の昇順で返す。singleEvents=trueにより繰り返しイベントは
// プロバイダー側で単一インスタンスに展開される。
func (s *GoogleSource) ListOccurrences(ctx context.Context, user *model.User, calendarID string, timeMin, timeMax time.Time) ([]model.Occurrence, error) {
	svc, err := s.newService(ctx, user)
	if err != nil {
		return nil, err
	}

	var occurrences []model.Occurrence
	call := svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, event := range page.Items {
			occ, ok := s.convertEvent(event)
			if !ok {
				continue // 開始時刻かIDを欠く不正データは黙って除外する
			}
			occurrences = append(occurrences, occ)
		}
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}

	return occurrences, nil
}

// convertEvent はAPIレスポンスの1イベントをmodel.Occurrenceに変換する。
// 開始時刻またはIDを欠くイベントはok=falseを返す。
func (s *GoogleSource) convertEvent(event *gcal.Event) (model.Occurrence, bool) {
	if event == nil || event.Id == "" || event.Start == nil {
		return model.Occurrence{}, false
	}

	start, ok := s.parseEventStart(event.Start)
	if !ok {
		return model.Occurrence{}, false
	}

	title := event.Summary
	if title == "" {
		title = model.DefaultTitle
	}

	return model.Occurrence{
		EventID:  event.Id,
		Title:    title,
		Start:    start,
		Location: event.Location,
		HTMLLink: event.HtmlLink,
	}, true
}

// parseEventStart はイベント開始時刻を解釈する。
// 時刻指定イベントはRFC3339のDateTime、終日イベントは日付のみのDateを持つ。
// 終日イベントは表示タイムゾーンの0時として扱う。
func (s *GoogleSource) parseEventStart(start *gcal.EventDateTime) (time.Time, bool) {
	if start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, start.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	if start.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", start.Date, s.loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	return time.Time{}, false
}

// classifyError はプロバイダーのエラーを分類する。
// トークン失効（invalid_grant）やHTTP 401/403はAuthErrorにラップし、
// それ以外はそのまま返す。
func classifyError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &AuthError{Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &AuthError{Err: err}
		}
	}

	return err
}

// compile-time interface check
var _ Source = (*GoogleSource)(nil)
