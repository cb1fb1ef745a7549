// Package digest はデイリーダイジェスト通知のバックグラウンド処理を提供する。
// 表示タイムゾーンの暦日の開催一覧を、1日1回全対象ユーザーへ配信する。
package digest

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

// DigestSender はダイジェスト配信のインターフェース。
type DigestSender interface {
	SendDigest(ctx context.Context, webhookURL, userEmail string, day time.Time, occurrences []model.Occurrence) bool
}

// Job は全対象ユーザーへのデイリーダイジェスト配信を行う。
// 対象期間は表示タイムゾーンにおける当日の暦日 [0時, 翌0時)。
// 開催が1件もないユーザーにもその旨のメッセージを配信する。
// ダイジェストは重複排除もリトライもせず、失敗はログに残すのみ。
type Job struct {
	userRepo   repository.UserRepository
	aggregator OccurrenceAggregator
	sender     DigestSender
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
// locがnilの場合はUTCとして扱う。
func NewJob(
	userRepo repository.UserRepository,
	aggregator OccurrenceAggregator,
	sender DigestSender,
	logger *slog.Logger,
	loc *time.Location,
) *Job {
	if loc == nil {
		loc = time.UTC
	}
	return &Job{
		userRepo:   userRepo,
		aggregator: aggregator,
		sender:     sender,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

// Run は当日の暦日の開催を全対象ユーザーへ配信する。
// 個別ユーザーの取得失敗・配信失敗はログに残して次のユーザーへ進む。
func (j *Job) Run(ctx context.Context) error {
	now := j.now().In(j.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	users, err := j.userRepo.ListEligible(ctx)
	if err != nil {
		return err
	}

	j.logger.Info("デイリーダイジェストの配信を開始します",
		slog.Int("user_count", len(users)),
		slog.Time("day_start", dayStart),
	)

	for _, user := range users {
		if !user.Eligible() {
			// 無効化済み・Webhook未設定のユーザーには配信しない
			j.logger.Warn("対象外のユーザーをスキップします",
				slog.String("user_id", user.ID),
			)
			continue
		}

		occurrences, err := j.aggregator.Aggregate(ctx, user, dayStart, dayEnd)
		if err != nil {
			j.logger.Error("ダイジェスト用の開催取得に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if ok := j.sender.SendDigest(ctx, user.WebhookURL, user.Email, dayStart, occurrences); !ok {
			j.logger.Warn("ダイジェスト配信に失敗しました",
				slog.String("user_id", user.ID),
			)
			continue
		}

		j.logger.Info("ダイジェストを配信しました",
			slog.String("user_id", user.ID),
			slog.Int("occurrence_count", len(occurrences)),
		)
	}

	return nil
}
