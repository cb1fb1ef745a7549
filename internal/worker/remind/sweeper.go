package remind

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/calremind/internal/calendar"
	"github.com/hitoshi/calremind/internal/model"
	"github.com/hitoshi/calremind/internal/repository"
)

// pruneRetention は通知記録を保持する期間。
// この期間より前に開始したイベントの記録は各スイープの最後に削除する。
const pruneRetention = 24 * time.Hour

// UserProcessor は1ユーザー分のスイープ処理のインターフェース。
type UserProcessor interface {
	ProcessUser(ctx context.Context, user *model.User) error
}

// SweepMetrics はスイープ結果メトリクスの記録インターフェース。
type SweepMetrics interface {
	RecordSweepDuration(d time.Duration)
	RecordAuthFailure()
	RecordRecordsPruned(count int64)
}

// Sweeper はリマインダースイープのスケジューリングを行う。
// 1分間隔のティッカーで対象ユーザーを取得し、1ユーザーずつ順に処理する。
// RunOnceを同期実行するため、前回のスイープが長引いてもティックは重ならない。
type Sweeper struct {
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	processor UserProcessor
	logger    *slog.Logger
	metrics   SweepMetrics
	now       func() time.Time
}

// NewSweeper はSweeperの新しいインスタンスを生成する。
func NewSweeper(
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	processor UserProcessor,
	logger *slog.Logger,
	metrics SweepMetrics,
) *Sweeper {
	return &Sweeper{
		userRepo:  userRepo,
		notifRepo: notifRepo,
		processor: processor,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Start は指定間隔のティッカーでスイーパーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リマインダースイーパーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("スイープの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインダースイーパーを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("スイープの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は対象ユーザーを1回取得し、1ユーザーずつ順に処理する。
// 個別ユーザーの失敗（認証失敗を含む）はログとメトリクスに記録して
// 次のユーザーへ進み、スイープ全体は中断しない。
// 全ユーザーの処理後、保持期間を過ぎた通知記録を削除する。
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := s.now()

	users, err := s.userRepo.ListEligible(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		if !user.Eligible() {
			// 無効化済み・Webhook未設定のユーザーは通知処理に渡さない
			s.logger.Warn("対象外のユーザーをスキップします",
				slog.String("user_id", user.ID),
			)
			continue
		}
		if err := s.processor.ProcessUser(ctx, user); err != nil {
			if calendar.IsAuthError(err) {
				// 外部で再認可されるまで毎スイープ失敗し続けるユーザー
				s.logger.Warn("ユーザーの認証情報が無効です",
					slog.String("user_id", user.ID),
					slog.String("email", user.Email),
					slog.String("error", err.Error()),
				)
				s.metrics.RecordAuthFailure()
			} else {
				s.logger.Error("ユーザーの処理に失敗しました",
					slog.String("user_id", user.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	pruned, err := s.notifRepo.DeleteStartedBefore(ctx, start.Add(-pruneRetention).Unix())
	if err != nil {
		s.logger.Error("通知記録の削除に失敗しました",
			slog.String("error", err.Error()),
		)
	} else if pruned > 0 {
		s.metrics.RecordRecordsPruned(pruned)
		s.logger.Info("古い通知記録を削除しました",
			slog.Int64("pruned_count", pruned),
		)
	}

	duration := time.Since(start)
	s.metrics.RecordSweepDuration(duration)
	s.logger.Info("スイープが完了しました",
		slog.Int("user_count", len(users)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
