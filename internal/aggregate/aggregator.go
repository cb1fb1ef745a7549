// Package aggregate は1ユーザーの全カレンダーからの開催の集約を提供する。
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/calremind/internal/calendar"
	"github.com/hitoshi/calremind/internal/model"
)

// FetchFailureRecorder は個別カレンダーの取得失敗メトリクスの記録インターフェース。
type FetchFailureRecorder interface {
	RecordCalendarFetchFailure()
}

// Aggregator は1ユーザーから見える全カレンダーの開催を1本の時系列に統合する。
// 個別カレンダーの取得失敗はそのカレンダーからの開催ゼロとして扱い、
// ユーザー全体の集約を中断させない。
type Aggregator struct {
	source  calendar.Source
	logger  *slog.Logger
	metrics FetchFailureRecorder
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(source calendar.Source, logger *slog.Logger, metrics FetchFailureRecorder) *Aggregator {
	return &Aggregator{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Aggregate は[timeMin, timeMax)内の開催を全カレンダーから取得し、
// 開始時刻の昇順（安定ソート: 同時刻は取得順を維持）で返す。
// カレンダーが1つもない場合や全カレンダーの取得に失敗した場合は
// エラーではなく空のスライスを返す。
// ListCalendarIDsの認証失敗（AuthError）のみ呼び出し元へ伝播する。
func (a *Aggregator) Aggregate(ctx context.Context, user *model.User, timeMin, timeMax time.Time) ([]model.Occurrence, error) {
	calendarIDs, err := a.source.ListCalendarIDs(ctx, user)
	if err != nil {
		return nil, err
	}

	var merged []model.Occurrence
	for _, calendarID := range calendarIDs {
		occurrences, err := a.source.ListOccurrences(ctx, user, calendarID, timeMin, timeMax)
		if err != nil {
			// 1カレンダーの失敗でユーザー全体を中断しない
			a.logger.Error("failed to fetch events from calendar",
				slog.String("user_id", user.ID),
				slog.String("calendar_id", calendarID),
				slog.String("error", err.Error()),
			)
			a.metrics.RecordCalendarFetchFailure()
			continue
		}
		merged = append(merged, occurrences...)
	}

	// カレンダー間で同一イベントが重複しても統合しない
	// （各カレンダーの開催は独立して扱う）
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})

	return merged, nil
}
