package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler はデイリーダイジェストのスケジューリングを行う。
// 表示タイムゾーンの指定時刻に1日1回Jobを実行する。
type Scheduler struct {
	job    *Job
	logger *slog.Logger
	hour   int
	loc    *time.Location
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// hourは0〜23の範囲であること（設定読み込み時に検証済み）。
func NewScheduler(job *Job, logger *slog.Logger, hour int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		job:    job,
		logger: logger,
		hour:   hour,
		loc:    loc,
	}
}

// Start はcronスケジューラを起動し、コンテキストがキャンセルされるまで
// ブロックする。停止時は実行中のジョブの完了を待つ。
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))

	spec := fmt.Sprintf("0 %d * * *", s.hour)
	_, err := c.AddFunc(spec, func() {
		if err := s.job.Run(ctx); err != nil {
			s.logger.Error("ダイジェストジョブの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register digest schedule: %w", err)
	}

	c.Start()
	s.logger.Info("ダイジェストスケジューラを開始しました",
		slog.Int("hour", s.hour),
		slog.String("timezone", s.loc.String()),
	)

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("ダイジェストスケジューラを停止しました")

	return nil
}
