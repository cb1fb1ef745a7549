// Package remind はリマインダー通知のバックグラウンド処理を提供する。
// 定期スイープで全対象ユーザーを巡回し、リードタイムウィンドウに入った開催へ
// 重複なく1回だけ通知を配信する。
package remind

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/calremind/internal/model"
	"github.com/hitoshi/calremind/internal/repository"
)

// OccurrenceAggregator は全カレンダー横断の開催取得インターフェース。
type OccurrenceAggregator interface {
	Aggregate(ctx context.Context, user *model.User, timeMin, timeMax time.Time) ([]model.Occurrence, error)
}

// ReminderSender はリマインダー配信のインターフェース。
type ReminderSender interface {
	SendReminder(ctx context.Context, webhookURL string, occ model.Occurrence, minutesUntil float64) bool
}

// Evaluator は1ユーザー分のリマインダー判定と配信を行う。
// 重複排除キーは (ユーザーID, イベントID, 開始時刻unix秒) で、
// 配信成功を確認できた場合にのみ記録を残す。
type Evaluator struct {
	aggregator     OccurrenceAggregator
	sender         ReminderSender
	notifRepo      repository.NotificationRepository
	logger         *slog.Logger
	fetchWindow    time.Duration
	defaultMinutes int // ユーザー設定が不正な場合のリマインド時間
	now            func() time.Time
}

// NewEvaluator はEvaluatorの新しいインスタンスを生成する。
// fetchWindowが0以下の場合はデフォルト値1時間を、
// defaultMinutesが0以下の場合はデフォルト値10分を使用する。
func NewEvaluator(
	aggregator OccurrenceAggregator,
	sender ReminderSender,
	notifRepo repository.NotificationRepository,
	logger *slog.Logger,
	fetchWindow time.Duration,
	defaultMinutes int,
) *Evaluator {
	if fetchWindow <= 0 {
		fetchWindow = time.Hour
	}
	if defaultMinutes <= 0 {
		defaultMinutes = 10
	}
	return &Evaluator{
		aggregator:     aggregator,
		sender:         sender,
		notifRepo:      notifRepo,
		logger:         logger,
		fetchWindow:    fetchWindow,
		defaultMinutes: defaultMinutes,
		now:            time.Now,
	}
}

// ProcessUser は1ユーザーの開催を取得し、リマインダー対象を判定して配信する。
// 対象となるのは残り時間が (0, reminder_minutes] 分の開催のみ。
// 取得失敗（認証失敗を含む）はエラーとして返し、個別開催の配信失敗や
// 記録失敗はログに残して次の開催へ進む。
func (e *Evaluator) ProcessUser(ctx context.Context, user *model.User) error {
	now := e.now()

	occurrences, err := e.aggregator.Aggregate(ctx, user, now, now.Add(e.fetchWindow))
	if err != nil {
		return err
	}

	reminderMinutes := user.ReminderMinutes
	if reminderMinutes <= 0 {
		reminderMinutes = e.defaultMinutes
	}

	for _, occ := range occurrences {
		minutesUntil := occ.Start.Sub(now).Minutes()

		// 開始済みの開催と、まだリードタイム外の開催はどちらも対象外
		if minutesUntil <= 0 || minutesUntil > float64(reminderMinutes) {
			continue
		}

		exists, err := e.notifRepo.Exists(ctx, user.ID, occ.EventID, occ.StartUnix())
		if err != nil {
			// 判定不能のまま配信すると二重通知になりうるためスキップする
			e.logger.Error("重複判定に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("event_id", occ.EventID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if exists {
			continue
		}

		if ok := e.sender.SendReminder(ctx, user.WebhookURL, occ, minutesUntil); !ok {
			// 配信失敗時は記録を残さず、次回スイープで再試行させる
			e.logger.Warn("リマインダー配信に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("event_id", occ.EventID),
			)
			continue
		}

		if err := e.notifRepo.Insert(ctx, user.ID, occ.EventID, occ.StartUnix()); err != nil {
			// 記録失敗は次回スイープでの重複通知につながるが、配信自体は成功している
			e.logger.Error("通知記録の保存に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("event_id", occ.EventID),
				slog.String("error", err.Error()),
			)
			continue
		}

		e.logger.Info("リマインダーを配信しました",
			slog.String("user_id", user.ID),
			slog.String("event_id", occ.EventID),
			slog.Time("event_start", occ.Start),
			slog.Float64("minutes_until", minutesUntil),
		)
	}

	return nil
}
